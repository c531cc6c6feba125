package training

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository persists the run ledger in pipeline_runs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{})
}

func (r *Repository) Create(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish stamps the terminal status of runID along with what the run
// produced. Nil metrics or params leave those columns untouched.
func (r *Repository) Finish(ctx context.Context, runID uuid.UUID, status string, outcome RunOutcome, errorMessage string, completedAt time.Time) error {
	updates := map[string]interface{}{
		"status":        status,
		"artifact_path": outcome.ArtifactPath,
		"error_message": errorMessage,
		"completed_at":  completedAt,
		"updated_at":    completedAt,
	}
	if outcome.Metrics != nil {
		updates["metrics"] = datatypes.JSONMap(outcome.Metrics)
	}
	if outcome.BestParams != nil {
		updates["best_params"] = datatypes.JSONMap(outcome.BestParams)
	}
	res := r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}
