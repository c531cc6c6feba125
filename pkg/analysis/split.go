// Package analysis evaluates a grade classifier on a held-out partition of the
// feature table.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/synaptica-ai/dcis/pkg/terminology"
	"gonum.org/v1/gonum/mat"
)

// The held-out fraction and seed are fixed so every run scores the same
// partition.
const (
	TestFraction = 0.33
	SplitSeed    = 42
)

var ErrInvalidSplit = errors.New("invalid train/test split")

// TrainTestSplit shuffles n row indices with a seeded source and holds out
// ceil(testFraction*n) of them. The same n, fraction and seed always give the
// same partition.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction %v", ErrInvalidSplit, testFraction)
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("%w: %d rows cannot hold out %v", ErrInvalidSplit, n, testFraction)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// ClassCodes maps G1, G2 and G3 to 0, 1 and 2.
func ClassCodes(cat terminology.Catalog, labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, label := range labels {
		code, ok := cat.ClassCode(label)
		if !ok {
			return nil, fmt.Errorf("row %d: unknown grade label %q", i, label)
		}
		out[i] = code
	}
	return out, nil
}

// Rows copies the selected rows of x into a new matrix.
func Rows(x *mat.Dense, idx []int) *mat.Dense {
	_, c := x.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for r, i := range idx {
		out.SetRow(r, x.RawRowView(i))
	}
	return out
}

func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for r, i := range idx {
		out[r] = y[i]
	}
	return out
}
