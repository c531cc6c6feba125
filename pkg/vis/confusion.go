package vis

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
)

// cellGrid exposes a confusion matrix as a heat map grid. Row 0 of the
// matrix is drawn at the top.
type cellGrid struct {
	m *mat.Dense
}

func (g cellGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g cellGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g cellGrid) X(c int) float64 { return float64(c) }
func (g cellGrid) Y(r int) float64 { return float64(r) }

// NormalizeRows divides each row by its sum. Rows summing to zero stay zero.
func NormalizeRows(cm *mat.Dense) *mat.Dense {
	r, c := cm.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		sum := mat.Sum(cm.RowView(i))
		if sum == 0 {
			continue
		}
		for j := 0; j < c; j++ {
			out.Set(i, j, cm.At(i, j)/sum)
		}
	}
	return out
}

// ConfusionTitle is the chart title for an algorithm, e.g.
// "Confusion Matrix For FOREST".
func ConfusionTitle(algorithm string) string {
	return "Confusion Matrix For " + strings.ToUpper(algorithm)
}

// ConfusionMatrix draws an annotated heat map with true labels on the y axis
// and predicted labels on the x axis.
func (r *Renderer) ConfusionMatrix(cm *mat.Dense, classNames []string, algorithm string, normalize bool) (string, error) {
	rows, cols := cm.Dims()
	if rows == 0 || cols == 0 {
		return "", ErrNoData
	}
	if len(classNames) != rows || rows != cols {
		return "", fmt.Errorf("confusion matrix is %dx%d with %d class names", rows, cols, len(classNames))
	}

	values := cm
	format := func(v float64) string { return strconv.Itoa(int(v)) }
	if normalize {
		values = NormalizeRows(cm)
		format = func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	}

	p := plot.New()
	p.Title.Text = ConfusionTitle(algorithm)
	p.X.Label.Text = "Predicted Label"
	p.Y.Label.Text = "True Label"

	heat := plotter.NewHeatMap(cellGrid{m: values}, palette.Heat(16, 1))
	if heat.Min == heat.Max {
		heat.Max = heat.Min + 1
	}
	p.Add(heat)

	var points plotter.XYs
	var labels []string
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			points = append(points, plotter.XY{X: float64(j), Y: float64(rows - 1 - i)})
			labels = append(labels, format(values.At(i, j)))
		}
	}
	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: labels})
	if err != nil {
		return "", fmt.Errorf("failed to annotate confusion matrix: %w", err)
	}
	p.Add(annotations)

	xTicks := make([]plot.Tick, cols)
	yTicks := make([]plot.Tick, rows)
	for i, name := range classNames {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[i] = plot.Tick{Value: float64(rows - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)

	return r.save(p, ConfusionMatrixFile)
}
