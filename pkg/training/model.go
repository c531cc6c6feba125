package training

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/ml/classify"
	"gonum.org/v1/gonum/mat"
)

// Model wraps one algorithm through its Unfit -> Fit lifecycle. Refitting
// replaces the estimator.
type Model struct {
	algorithm Algorithm
	log       logrus.FieldLogger

	estimator classify.Estimator
	search    *SearchResult
}

// NewModel resolves the selector up front so configuration errors surface
// before any data is read.
func NewModel(name string, log logrus.FieldLogger) (*Model, error) {
	a, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return &Model{algorithm: a, log: log.WithField("algorithm", a)}, nil
}

func (m *Model) Algorithm() Algorithm {
	return m.algorithm
}

func (m *Model) Fitted() bool {
	return m.estimator != nil
}

// Fit trains on x and y. With useGridSearch the algorithm's grid is
// cross-validated and the best candidate, refit on all rows, serves every
// later prediction.
func (m *Model) Fit(ctx context.Context, x *mat.Dense, y []int, useGridSearch bool) error {
	if !useGridSearch {
		est, err := newEstimator(m.algorithm, nil)
		if err != nil {
			return err
		}
		if err := est.Fit(x, y); err != nil {
			return fmt.Errorf("fit %s: %w", m.algorithm, err)
		}
		m.estimator, m.search = est, nil
		return nil
	}

	result, err := NewGridSearch(m.algorithm, CVFolds, m.log).Run(ctx, x, y)
	if err != nil {
		return fmt.Errorf("grid search %s: %w", m.algorithm, err)
	}
	m.log.WithFields(logrus.Fields{
		"best_params": result.BestParams,
		"accuracy":    result.BestScore,
	}).Info("Grid search selected parameters")
	m.estimator, m.search = result.Best, result
	return nil
}

func (m *Model) Predict(x mat.Matrix) ([]int, error) {
	if m.estimator == nil {
		return nil, ErrNotFitted
	}
	return m.estimator.Predict(x)
}

func (m *Model) SupportsProbability() bool {
	return m.algorithm.SupportsProbability()
}

// PredictProbability returns one column per class in ascending class order.
func (m *Model) PredictProbability(x mat.Matrix) (*mat.Dense, error) {
	if !m.SupportsProbability() {
		return nil, fmt.Errorf("%w: %s has no probability estimates", ErrUnsupportedOperation, m.algorithm)
	}
	if m.estimator == nil {
		return nil, ErrNotFitted
	}
	pe, ok := m.estimator.(classify.ProbabilityEstimator)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no probability estimates", ErrUnsupportedOperation, m.algorithm)
	}
	return pe.PredictProba(x)
}

// Classes lists the labels seen during fit, when the estimator exposes them.
func (m *Model) Classes() []int {
	if pe, ok := m.estimator.(classify.ProbabilityEstimator); ok {
		return pe.Classes()
	}
	return nil
}

// BestParams is nil unless the last fit used grid search.
func (m *Model) BestParams() Params {
	if m.search == nil {
		return nil
	}
	return m.search.BestParams
}

func (m *Model) Search() *SearchResult {
	return m.search
}
