package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sjwhitworth/golearn/base"
	"gonum.org/v1/gonum/mat"
)

const classAttributeName = "grade"

// learnGrid holds a golearn instance set together with the attribute specs
// needed to fill it.
type learnGrid struct {
	inst      *base.DenseInstances
	features  []base.AttributeSpec
	classSpec base.AttributeSpec
}

func featureName(j int) string {
	return "f" + strconv.Itoa(j)
}

// newGrid lays x out as golearn float attributes plus the shared class
// attribute. Training and prediction grids must share class so golearn sees
// compatible attribute sets.
func newGrid(x mat.Matrix, class *base.CategoricalAttribute) (*learnGrid, error) {
	r, c := x.Dims()
	inst := base.NewDenseInstances()

	features := make([]base.AttributeSpec, c)
	for j := 0; j < c; j++ {
		features[j] = inst.AddAttribute(base.NewFloatAttribute(featureName(j)))
	}
	classSpec := inst.AddAttribute(class)
	if err := inst.AddClassAttribute(class); err != nil {
		return nil, fmt.Errorf("add class attribute: %w", err)
	}
	if err := inst.Extend(r); err != nil {
		return nil, fmt.Errorf("extend instances: %w", err)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			inst.Set(features[j], i, base.PackFloatToBytes(x.At(i, j)))
		}
	}
	return &learnGrid{inst: inst, features: features, classSpec: classSpec}, nil
}

func newClassAttribute() *base.CategoricalAttribute {
	class := base.NewCategoricalAttribute()
	class.SetName(classAttributeName)
	return class
}

// trainingGrid builds labelled instances for Fit.
func trainingGrid(x mat.Matrix, y []int) (*learnGrid, *base.CategoricalAttribute, error) {
	class := newClassAttribute()
	for _, label := range uniqueClasses(y) {
		class.GetSysValFromString(strconv.Itoa(label))
	}
	grid, err := newGrid(x, class)
	if err != nil {
		return nil, nil, err
	}
	for i, label := range y {
		grid.inst.Set(grid.classSpec, i, class.GetSysValFromString(strconv.Itoa(label)))
	}
	return grid, class, nil
}

// readClasses decodes golearn predictions back into integer labels.
func readClasses(pred base.FixedDataGrid) ([]int, error) {
	_, rows := pred.Size()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		raw := strings.TrimSpace(base.GetClass(pred, i))
		label, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode predicted class %q: %w", raw, err)
		}
		out[i] = label
	}
	return out, nil
}
