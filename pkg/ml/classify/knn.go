package classify

import (
	"fmt"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/knn"
	"gonum.org/v1/gonum/mat"
)

const DefaultNeighbors = 5

// KNN is a euclidean k-nearest-neighbours vote.
type KNN struct {
	Neighbors int

	model    *knn.KNNClassifier
	class    *base.CategoricalAttribute
	features int
}

func NewKNN(neighbors int) *KNN {
	if neighbors <= 0 {
		neighbors = DefaultNeighbors
	}
	return &KNN{Neighbors: neighbors}
}

func (k *KNN) Fit(x mat.Matrix, y []int) error {
	_, c, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	grid, class, err := trainingGrid(x, y)
	if err != nil {
		return err
	}
	model := knn.NewKnnClassifier("euclidean", "linear", k.Neighbors)
	if err := model.Fit(grid.inst); err != nil {
		return fmt.Errorf("knn fit: %w", err)
	}
	k.model, k.class, k.features = model, class, c
	return nil
}

func (k *KNN) Predict(x mat.Matrix) ([]int, error) {
	if k.model == nil {
		return nil, ErrNotFitted
	}
	if _, err := checkFeatures(x, k.features); err != nil {
		return nil, err
	}
	grid, err := newGrid(x, k.class)
	if err != nil {
		return nil, err
	}
	pred, err := k.model.Predict(grid.inst)
	if err != nil {
		return nil, fmt.Errorf("knn predict: %w", err)
	}
	return readClasses(pred)
}
