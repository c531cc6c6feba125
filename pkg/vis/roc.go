package vis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// Curve is a ROC curve: false and true positive rates at each distinct
// score threshold, from (0,0) to (1,1).
type Curve struct {
	FPR []float64
	TPR []float64
	AUC float64
}

// ROC builds the curve for one binary problem. ok is false when the labels
// hold only one class and the curve is undefined.
func ROC(scores []float64, positive []bool) (curve Curve, ok bool) {
	var pos, neg float64
	for _, p := range positive {
		if p {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return Curve{}, false
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	curve.FPR = []float64{0}
	curve.TPR = []float64{0}
	var tp, fp float64
	for k, i := range order {
		if positive[i] {
			tp++
		} else {
			fp++
		}
		// emit one point per distinct threshold
		if k+1 < len(order) && scores[order[k+1]] == scores[i] {
			continue
		}
		curve.FPR = append(curve.FPR, fp/neg)
		curve.TPR = append(curve.TPR, tp/pos)
	}

	for k := 1; k < len(curve.FPR); k++ {
		curve.AUC += (curve.FPR[k] - curve.FPR[k-1]) * (curve.TPR[k] + curve.TPR[k-1]) / 2
	}
	return curve, true
}

// ROCCurves computes one-vs-rest curves, one per probability column. Classes
// absent from yTrue (or present in every row) are skipped.
func ROCCurves(proba *mat.Dense, yTrue []int, classes []int) map[int]Curve {
	n, c := proba.Dims()
	curves := make(map[int]Curve, c)
	for j := 0; j < c && j < len(classes); j++ {
		scores := make([]float64, n)
		positive := make([]bool, n)
		for i := 0; i < n; i++ {
			scores[i] = proba.At(i, j)
			positive[i] = yTrue[i] == classes[j]
		}
		if curve, ok := ROC(scores, positive); ok {
			curves[classes[j]] = curve
		}
	}
	return curves
}

// ROC draws one curve per class with its AUC in the legend, plus the chance
// diagonal.
func (r *Renderer) ROC(proba *mat.Dense, yTrue []int, classes []int, classNames []string) (string, error) {
	if proba == nil {
		return "", ErrNoData
	}
	if n, _ := proba.Dims(); n != len(yTrue) {
		return "", fmt.Errorf("%d probability rows for %d labels", n, len(yTrue))
	}
	curves := ROCCurves(proba, yTrue, classes)
	if len(curves) == 0 {
		return "", ErrNoData
	}

	p := plot.New()
	p.Title.Text = "One-vs-Rest ROC Curves"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = false

	var lines []interface{}
	for j, class := range classes {
		curve, ok := curves[class]
		if !ok {
			continue
		}
		name := fmt.Sprint(class)
		if j < len(classNames) {
			name = classNames[j]
		}
		xys := make(plotter.XYs, len(curve.FPR))
		for k := range curve.FPR {
			xys[k] = plotter.XY{X: curve.FPR[k], Y: curve.TPR[k]}
		}
		lines = append(lines, fmt.Sprintf("%s (AUC = %.2f)", name, curve.AUC), xys)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return "", fmt.Errorf("failed to draw ROC curves: %w", err)
	}

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return "", err
	}
	chance.Dashes = plotutil.Dashes(2)
	p.Add(chance)

	return r.save(p, ROCCurvesFile)
}
