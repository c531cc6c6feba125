package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sjwhitworth/golearn/evaluation"
	"github.com/synaptica-ai/dcis/pkg/table"
	"gonum.org/v1/gonum/mat"
)

// ClassMetrics is one row of the classification report.
type ClassMetrics struct {
	Label     string  `json:"label" yaml:"label"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1_score" yaml:"f1_score"`
	Support   int     `json:"support" yaml:"support"`
}

// Report holds per-class precision, recall, F1 and support plus the usual
// aggregates. Undefined ratios (zero denominators) report as 0.
type Report struct {
	Classes     []ClassMetrics `json:"classes" yaml:"classes"`
	Accuracy    float64        `json:"accuracy" yaml:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg" yaml:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg" yaml:"weighted_avg"`
	Total       int            `json:"total" yaml:"total"`
}

// Labeler names an integer class code.
type Labeler func(code int) string

func numericLabel(code int) string {
	return strconv.Itoa(code)
}

// reportClasses is the sorted union of true and predicted codes.
func reportClasses(yTrue, yPred []int) []int {
	seen := make(map[int]struct{})
	for _, v := range yTrue {
		seen[v] = struct{}{}
	}
	for _, v := range yPred {
		seen[v] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// confusionMap builds golearn's actual -> predicted -> count layout.
func confusionMap(yTrue, yPred []int, classes []int, name Labeler) evaluation.ConfusionMatrix {
	cm := make(evaluation.ConfusionMatrix, len(classes))
	for _, a := range classes {
		cm[name(a)] = make(map[string]int, len(classes))
		for _, p := range classes {
			cm[name(a)][name(p)] = 0
		}
	}
	for i := range yTrue {
		cm[name(yTrue[i])][name(yPred[i])]++
	}
	return cm
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NewReport scores predictions against the truth. name may be nil, in which
// case classes are labelled by their code.
func NewReport(yTrue, yPred []int, name Labeler) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%d true labels, %d predictions", len(yTrue), len(yPred))
	}
	if name == nil {
		name = numericLabel
	}
	classes := reportClasses(yTrue, yPred)
	cm := confusionMap(yTrue, yPred, classes, name)

	report := &Report{Total: len(yTrue)}
	if len(yTrue) > 0 {
		report.Accuracy = finite(evaluation.GetAccuracy(cm))
	}
	report.MacroAvg.Label = "macro avg"
	report.WeightedAvg.Label = "weighted avg"

	for _, code := range classes {
		label := name(code)
		support := 0
		for _, n := range cm[label] {
			support += n
		}
		m := ClassMetrics{
			Label:     label,
			Precision: finite(evaluation.GetPrecision(label, cm)),
			Recall:    finite(evaluation.GetRecall(label, cm)),
			F1:        finite(evaluation.GetF1Score(label, cm)),
			Support:   support,
		}
		report.Classes = append(report.Classes, m)

		report.MacroAvg.Precision += m.Precision
		report.MacroAvg.Recall += m.Recall
		report.MacroAvg.F1 += m.F1
		w := float64(support)
		report.WeightedAvg.Precision += w * m.Precision
		report.WeightedAvg.Recall += w * m.Recall
		report.WeightedAvg.F1 += w * m.F1
	}

	if k := float64(len(classes)); k > 0 {
		report.MacroAvg.Precision /= k
		report.MacroAvg.Recall /= k
		report.MacroAvg.F1 /= k
	}
	if total := float64(report.Total); total > 0 {
		report.WeightedAvg.Precision /= total
		report.WeightedAvg.Recall /= total
		report.WeightedAvg.F1 /= total
	}
	report.MacroAvg.Support = report.Total
	report.WeightedAvg.Support = report.Total
	return report, nil
}

// ConfusionMatrix counts rows by true class (rows) and predicted class
// (columns) over the given class codes.
func ConfusionMatrix(yTrue, yPred []int, classes []int) *mat.Dense {
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	out := mat.NewDense(len(classes), len(classes), nil)
	for i := range yTrue {
		a, okA := index[yTrue[i]]
		p, okP := index[yPred[i]]
		if okA && okP {
			out.Set(a, p, out.At(a, p)+1)
		}
	}
	return out
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Table lays the report out with one row per class and aggregate, and columns
// precision, recall, f1-score and support.
func (r *Report) Table() (*table.Table, error) {
	columns := []string{"", "precision", "recall", "f1-score", "support"}
	metricRow := func(m ClassMetrics) []table.Cell {
		return []table.Cell{
			table.Str(m.Label),
			table.Str(formatMetric(m.Precision)),
			table.Str(formatMetric(m.Recall)),
			table.Str(formatMetric(m.F1)),
			table.Str(strconv.Itoa(m.Support)),
		}
	}

	rows := make([][]table.Cell, 0, len(r.Classes)+3)
	for _, m := range r.Classes {
		rows = append(rows, metricRow(m))
	}
	rows = append(rows, []table.Cell{
		table.Str("accuracy"),
		table.Missing(),
		table.Missing(),
		table.Str(formatMetric(r.Accuracy)),
		table.Str(strconv.Itoa(r.Total)),
	})
	rows = append(rows, metricRow(r.MacroAvg), metricRow(r.WeightedAvg))

	return table.New("classification_report", columns, rows)
}

// String renders the report as aligned text.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	for _, m := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	return b.String()
}
