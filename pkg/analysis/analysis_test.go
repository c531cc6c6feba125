package analysis

import (
	"context"
	"io"
	"math"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dcis/pkg/terminology"
	"github.com/synaptica-ai/dcis/pkg/training"
	"gonum.org/v1/gonum/mat"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestTrainTestSplitIsReproducible(t *testing.T) {
	trainA, testA, err := TrainTestSplit(100, 0.33, 42)
	require.NoError(t, err)
	trainB, testB, err := TrainTestSplit(100, 0.33, 42)
	require.NoError(t, err)

	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)
	assert.Len(t, testA, 33)
	assert.Len(t, trainA, 67)

	all := append(append([]int(nil), trainA...), testA...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestTrainTestSplitRoundsTestUp(t *testing.T) {
	train, test, err := TrainTestSplit(10, 0.33, 42)
	require.NoError(t, err)
	assert.Len(t, test, 4)
	assert.Len(t, train, 6)
}

func TestTrainTestSplitSeedMatters(t *testing.T) {
	_, a, err := TrainTestSplit(50, 0.33, 42)
	require.NoError(t, err)
	_, b, err := TrainTestSplit(50, 0.33, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTrainTestSplitRejectsDegenerate(t *testing.T) {
	_, _, err := TrainTestSplit(1, 0.33, 42)
	assert.ErrorIs(t, err, ErrInvalidSplit)
	_, _, err = TrainTestSplit(10, 1.2, 42)
	assert.ErrorIs(t, err, ErrInvalidSplit)
}

func TestClassCodes(t *testing.T) {
	codes, err := ClassCodes(terminology.DefaultCatalog(), []string{"G1", "G2", "G3", "G1"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0}, codes)

	_, err = ClassCodes(terminology.DefaultCatalog(), []string{"G4"})
	assert.Error(t, err)
}

func TestImputerUsesTrainingMeans(t *testing.T) {
	nan := math.NaN()
	train := mat.NewDense(3, 2, []float64{
		1, nan,
		3, 4,
		nan, 8,
	})
	test := mat.NewDense(1, 2, []float64{nan, nan})

	var im Imputer
	_, err := im.Transform(test)
	assert.ErrorIs(t, err, ErrImputerNotFitted)

	im.Fit(train)
	assert.Equal(t, []float64{2, 6}, im.Means())

	out, err := im.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.At(0, 0))
	assert.Equal(t, 6.0, out.At(0, 1))
	assert.True(t, math.IsNaN(test.At(0, 0)))

	_, err = im.Transform(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestReportMetrics(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}
	cat := terminology.DefaultCatalog()

	report, err := NewReport(yTrue, yPred, func(c int) string { name, _ := cat.ClassName(c); return name })
	require.NoError(t, err)

	require.Len(t, report.Classes, 3)
	g1 := report.Classes[0]
	assert.Equal(t, "G1", g1.Label)
	assert.InDelta(t, 0.5, g1.Precision, 1e-9)
	assert.InDelta(t, 0.5, g1.Recall, 1e-9)
	assert.InDelta(t, 0.5, g1.F1, 1e-9)
	assert.Equal(t, 2, g1.Support)

	g2 := report.Classes[1]
	assert.InDelta(t, 2.0/3, g2.Precision, 1e-9)
	assert.InDelta(t, 1.0, g2.Recall, 1e-9)
	assert.InDelta(t, 0.8, g2.F1, 1e-9)

	assert.InDelta(t, 4.0/6, report.Accuracy, 1e-9)
	assert.InDelta(t, (0.5+2.0/3+1.0)/3, report.MacroAvg.Precision, 1e-9)
	assert.InDelta(t, (0.5+2.0/3+1.0)/3, report.WeightedAvg.Precision, 1e-9)
	assert.Equal(t, 6, report.WeightedAvg.Support)
}

func TestReportZeroDivision(t *testing.T) {
	report, err := NewReport([]int{0, 0, 1}, []int{0, 0, 0}, nil)
	require.NoError(t, err)

	one := report.Classes[1]
	assert.Equal(t, "1", one.Label)
	assert.Equal(t, 0.0, one.Precision)
	assert.Equal(t, 0.0, one.Recall)
	assert.Equal(t, 0.0, one.F1)
	assert.Equal(t, 1, one.Support)
}

func TestReportTableAndString(t *testing.T) {
	report, err := NewReport([]int{0, 1}, []int{0, 1}, nil)
	require.NoError(t, err)

	tbl, err := report.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "precision", "recall", "f1-score", "support"}, tbl.Columns())
	assert.Equal(t, 5, tbl.Len())
	assert.True(t, tbl.Value(2, "").Equals("accuracy"))
	assert.True(t, tbl.Value(2, "precision").IsMissing())
	assert.True(t, tbl.Value(2, "f1-score").Equals("1.000000"))

	text := report.String()
	assert.Contains(t, text, "macro avg")
	assert.Contains(t, text, "weighted avg")
	assert.True(t, strings.Contains(text, "accuracy"))
}

func TestConfusionMatrix(t *testing.T) {
	cm := ConfusionMatrix([]int{0, 0, 1, 2}, []int{0, 1, 1, 2}, []int{0, 1, 2})
	assert.Equal(t, 1.0, cm.At(0, 0))
	assert.Equal(t, 1.0, cm.At(0, 1))
	assert.Equal(t, 1.0, cm.At(1, 1))
	assert.Equal(t, 1.0, cm.At(2, 2))
	assert.Equal(t, 0.0, cm.At(2, 0))
}

func gradeBlobs(n int) (*mat.Dense, []string) {
	rng := rand.New(rand.NewSource(11))
	grades := []string{"G1", "G2", "G3"}
	x := mat.NewDense(n, 3, nil)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		k := i % 3
		x.Set(i, 0, float64(k*10)+rng.NormFloat64())
		x.Set(i, 1, float64(k*5)+rng.NormFloat64())
		if i%7 == 0 {
			x.Set(i, 2, math.NaN())
		} else {
			x.Set(i, 2, rng.NormFloat64())
		}
		labels[i] = grades[k]
	}
	return x, labels
}

func TestEvaluateLDA(t *testing.T) {
	x, labels := gradeBlobs(60)
	model, err := training.NewModel("lda", quietLogger())
	require.NoError(t, err)

	ev := NewEvaluator(terminology.DefaultCatalog(), quietLogger())
	result, err := ev.Evaluate(context.Background(), x, labels, model, false)
	require.NoError(t, err)

	assert.Len(t, result.TestRows, 20)
	assert.Len(t, result.TrainRows, 40)
	assert.Equal(t, []string{"G1", "G2", "G3"}, result.ClassNames)
	assert.GreaterOrEqual(t, result.Report.Accuracy, 0.9)
	require.NotNil(t, result.Probabilities)
	r, c := result.Probabilities.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []int{0, 1, 2}, result.ProbaClasses)
}

func TestEvaluateSplitIsStable(t *testing.T) {
	x, labels := gradeBlobs(30)
	ev := NewEvaluator(terminology.DefaultCatalog(), quietLogger())

	var tests [][]int
	for i := 0; i < 2; i++ {
		model, err := training.NewModel("knn", quietLogger())
		require.NoError(t, err)
		result, err := ev.Evaluate(context.Background(), x, labels, model, false)
		require.NoError(t, err)
		assert.Nil(t, result.Probabilities)
		tests = append(tests, result.TestRows)
	}
	assert.Equal(t, tests[0], tests[1])

	_, want, err := TrainTestSplit(30, 0.33, 42)
	require.NoError(t, err)
	assert.Equal(t, want, tests[0])
	assert.Len(t, tests[0], 10)
}

func TestEvaluateRejectsUnknownLabels(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	model, err := training.NewModel("lda", quietLogger())
	require.NoError(t, err)

	ev := NewEvaluator(terminology.DefaultCatalog(), quietLogger())
	_, err = ev.Evaluate(context.Background(), x, []string{"G1", "G9", "G2"}, model, false)
	assert.Error(t, err)
	assert.False(t, model.Fitted())
}
