package classify

import (
	"fmt"
	"math"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/ensemble"
	"gonum.org/v1/gonum/mat"
)

const DefaultTrees = 100

// RandomForest bags ID3 trees over random feature subsets. Tree construction
// draws from the process random source, so two fits on the same data may
// disagree.
type RandomForest struct {
	Trees int

	model    *ensemble.RandomForest
	class    *base.CategoricalAttribute
	features int
}

func NewRandomForest(trees int) *RandomForest {
	if trees <= 0 {
		trees = DefaultTrees
	}
	return &RandomForest{Trees: trees}
}

// featuresPerTree is the square root of the feature count, at least one.
func featuresPerTree(c int) int {
	k := int(math.Sqrt(float64(c)))
	if k < 1 {
		k = 1
	}
	return k
}

func (f *RandomForest) Fit(x mat.Matrix, y []int) error {
	_, c, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	grid, class, err := trainingGrid(x, y)
	if err != nil {
		return err
	}
	model := ensemble.NewRandomForest(f.Trees, featuresPerTree(c))
	if err := model.Fit(grid.inst); err != nil {
		return fmt.Errorf("random forest fit: %w", err)
	}
	f.model, f.class, f.features = model, class, c
	return nil
}

func (f *RandomForest) Predict(x mat.Matrix) ([]int, error) {
	if f.model == nil {
		return nil, ErrNotFitted
	}
	if _, err := checkFeatures(x, f.features); err != nil {
		return nil, err
	}
	grid, err := newGrid(x, f.class)
	if err != nil {
		return nil, err
	}
	pred, err := f.model.Predict(grid.inst)
	if err != nil {
		return nil, fmt.Errorf("random forest predict: %w", err)
	}
	return readClasses(pred)
}
