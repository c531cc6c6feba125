package training

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service records pipeline runs in the ledger. Ledger writes after a run has
// started are logged and never abort the run.
type Service struct {
	repo *Repository
	log  logrus.FieldLogger
}

func NewService(repo *Repository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

// Begin creates the running entry for runID.
func (s *Service) Begin(ctx context.Context, runID uuid.UUID, algorithm Algorithm, useGridSearch bool) error {
	now := time.Now().UTC()
	run := &RunModel{
		ID:            runID,
		Algorithm:     algorithm.String(),
		UseGridSearch: useGridSearch,
		Status:        StatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
		StartedAt:     &now,
	}
	return s.repo.Create(ctx, run)
}

func (s *Service) Complete(ctx context.Context, runID uuid.UUID, outcome RunOutcome) {
	if err := s.repo.Finish(ctx, runID, StatusCompleted, outcome, "", time.Now().UTC()); err != nil {
		s.log.WithError(err).WithField("run_id", runID).Error("Failed to mark run complete")
	}
}

func (s *Service) Fail(ctx context.Context, runID uuid.UUID, runErr error) {
	s.log.WithError(runErr).WithField("run_id", runID).Error("Pipeline run failed")
	if err := s.repo.Finish(ctx, runID, StatusFailed, RunOutcome{}, runErr.Error(), time.Now().UTC()); err != nil {
		s.log.WithError(err).WithField("run_id", runID).Error("Failed to mark run failed")
	}
}
