package vis

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Count is the size of one category.
type Count struct {
	Label string
	N     int
}

// CountBy tallies values into categories ordered by label.
func CountBy(values []string) []Count {
	tally := make(map[string]int)
	for _, v := range values {
		tally[v]++
	}
	out := make([]Count, 0, len(tally))
	for label, n := range tally {
		out = append(out, Count{Label: label, N: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Label < out[b].Label })
	return out
}

func (r *Renderer) bars(counts []Count, title, xLabel, file string) (string, error) {
	if len(counts) == 0 {
		return "", ErrNoData
	}
	values := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.N)
		names[i] = c.Label
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "counts"

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return "", fmt.Errorf("failed to build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(names...)

	return r.save(p, file)
}

func (r *Renderer) histogram(values []float64, bins int, title, xLabel, file string) (string, error) {
	finite := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return "", ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(finite, bins)
	if err != nil {
		return "", fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(hist)

	return r.save(p, file)
}

// ClassCounts draws the number of patients per tumor grade.
func (r *Renderer) ClassCounts(grades []string) (string, error) {
	return r.bars(CountBy(grades), "Number of Patients With Specific DCIS Risk", "Tumor Grade", ClassCountsFile)
}

// AgeHistogram skips patients whose age is unknown.
func (r *Renderer) AgeHistogram(ages []float64) (string, error) {
	return r.histogram(ages, sturgesBins(len(ages)), "Distribution of DCIS Patient Ages", "Age at Diagnosis", AgeHistogramFile)
}

func (r *Renderer) EthnicityCounts(ethnicity []int) (string, error) {
	labels := make([]string, len(ethnicity))
	for i, e := range ethnicity {
		labels[i] = strconv.Itoa(e)
	}
	return r.bars(CountBy(labels), "Number of Patients With Specific Ethnicity", "Ethnicity", EthnicityFile)
}

func (r *Renderer) FollowUpHistogram(days []int) (string, error) {
	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = float64(d)
	}
	return r.histogram(values, FollowUpBins, "Distribution of Days to Last Follow Up Across Patients", "Days to Last Follow up", FollowUpFile)
}

func sturgesBins(n int) int {
	if n < 2 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}
