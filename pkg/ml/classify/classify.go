// Package classify implements the grade classifiers. Every estimator takes a
// dense feature matrix and integer class labels.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted         = errors.New("estimator is not fitted")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNoSamples         = errors.New("no training samples")
	ErrSingular          = errors.New("matrix factorization failed")
)

type Estimator interface {
	Fit(x mat.Matrix, y []int) error
	Predict(x mat.Matrix) ([]int, error)
}

// ProbabilityEstimator is implemented by estimators that expose calibrated
// class membership probabilities. Columns follow Classes().
type ProbabilityEstimator interface {
	Estimator
	PredictProba(x mat.Matrix) (*mat.Dense, error)
	Classes() []int
}

func checkTraining(x mat.Matrix, y []int) (int, int, error) {
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return 0, 0, ErrNoSamples
	}
	if len(y) != r {
		return 0, 0, fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, r, len(y))
	}
	return r, c, nil
}

func checkFeatures(x mat.Matrix, want int) (int, error) {
	r, c := x.Dims()
	if c != want {
		return 0, fmt.Errorf("%w: %d features, fitted on %d", ErrDimensionMismatch, c, want)
	}
	return r, nil
}

// uniqueClasses returns the sorted distinct labels.
func uniqueClasses(y []int) []int {
	seen := make(map[int]struct{})
	for _, v := range y {
		seen[v] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func row(x mat.Matrix, i int) []float64 {
	_, c := x.Dims()
	out := make([]float64, c)
	for j := range out {
		out[j] = x.At(i, j)
	}
	return out
}
