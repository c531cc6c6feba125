package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrImputerNotFitted = errors.New("imputer is not fitted")

// Imputer fills NaN cells with the mean of the observed training values of
// their column. A column with no observed values fills with zero.
type Imputer struct {
	means []float64
}

func (im *Imputer) Fit(x mat.Matrix) {
	r, c := x.Dims()
	im.means = make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		var seen int
		for i := 0; i < r; i++ {
			if v := x.At(i, j); !math.IsNaN(v) {
				sum += v
				seen++
			}
		}
		if seen > 0 {
			im.means[j] = sum / float64(seen)
		}
	}
}

func (im *Imputer) Means() []float64 {
	return append([]float64(nil), im.means...)
}

// Transform returns a copy of x with NaN cells replaced.
func (im *Imputer) Transform(x mat.Matrix) (*mat.Dense, error) {
	if im.means == nil {
		return nil, ErrImputerNotFitted
	}
	r, c := x.Dims()
	if c != len(im.means) {
		return nil, fmt.Errorf("imputer fitted on %d columns, got %d", len(im.means), c)
	}
	out := mat.DenseCopyOf(x)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, im.means[j])
			}
		}
	}
	return out, nil
}
