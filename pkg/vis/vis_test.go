package vis

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := NewRenderer(filepath.Join(t.TempDir(), "outputs"), log)
	require.NoError(t, err)
	return r
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestROCPerfectAndMixed(t *testing.T) {
	curve, ok := ROC([]float64{0.9, 0.8, 0.2, 0.1}, []bool{true, true, false, false})
	require.True(t, ok)
	assert.InDelta(t, 1.0, curve.AUC, 1e-12)

	curve, ok = ROC([]float64{0.9, 0.8, 0.7, 0.6}, []bool{true, false, true, false})
	require.True(t, ok)
	assert.InDelta(t, 0.75, curve.AUC, 1e-12)
	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, curve.FPR)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, curve.TPR)
}

func TestROCTiedScoresShareAPoint(t *testing.T) {
	curve, ok := ROC([]float64{0.5, 0.5, 0.5, 0.5}, []bool{true, false, true, false})
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, curve.FPR)
	assert.Equal(t, []float64{0, 1}, curve.TPR)
	assert.InDelta(t, 0.5, curve.AUC, 1e-12)
}

func TestROCUndefinedForSingleClass(t *testing.T) {
	_, ok := ROC([]float64{0.1, 0.2}, []bool{true, true})
	assert.False(t, ok)
}

func TestROCCurvesSkipsAbsentClass(t *testing.T) {
	proba := mat.NewDense(4, 3, []float64{
		0.8, 0.1, 0.1,
		0.2, 0.7, 0.1,
		0.6, 0.3, 0.1,
		0.1, 0.8, 0.1,
	})
	curves := ROCCurves(proba, []int{0, 1, 0, 1}, []int{0, 1, 2})
	assert.Len(t, curves, 2)
	assert.InDelta(t, 1.0, curves[0].AUC, 1e-12)
	assert.NotContains(t, curves, 2)
}

func TestNormalizeRows(t *testing.T) {
	cm := mat.NewDense(2, 2, []float64{3, 1, 0, 0})
	norm := NormalizeRows(cm)
	assert.Equal(t, 0.75, norm.At(0, 0))
	assert.Equal(t, 0.25, norm.At(0, 1))
	assert.Equal(t, 0.0, norm.At(1, 0))
}

func TestConfusionTitle(t *testing.T) {
	assert.Equal(t, "Confusion Matrix For FOREST", ConfusionTitle("forest"))
}

func TestCountBy(t *testing.T) {
	counts := CountBy([]string{"G3", "G1", "G3", "G2", "G3"})
	assert.Equal(t, []Count{{"G1", 1}, {"G2", 1}, {"G3", 3}}, counts)
}

func TestRenderConfusionMatrix(t *testing.T) {
	r := newTestRenderer(t)
	cm := mat.NewDense(3, 3, []float64{5, 1, 0, 2, 7, 1, 0, 1, 4})

	path, err := r.ConfusionMatrix(cm, []string{"G1", "G2", "G3"}, "forest", false)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrixFile, filepath.Base(path))
	assertPNG(t, path)

	_, err = r.ConfusionMatrix(cm, []string{"G1", "G2"}, "forest", true)
	assert.Error(t, err)
}

func TestRenderUniformConfusionMatrix(t *testing.T) {
	r := newTestRenderer(t)
	path, err := r.ConfusionMatrix(mat.NewDense(2, 2, []float64{1, 1, 1, 1}), []string{"G1", "G2"}, "lda", true)
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestRenderROC(t *testing.T) {
	r := newTestRenderer(t)
	proba := mat.NewDense(4, 2, []float64{0.9, 0.1, 0.3, 0.7, 0.6, 0.4, 0.2, 0.8})
	path, err := r.ROC(proba, []int{0, 1, 0, 1}, []int{0, 1}, []string{"G1", "G2"})
	require.NoError(t, err)
	assertPNG(t, path)

	_, err = r.ROC(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRenderDistributions(t *testing.T) {
	r := newTestRenderer(t)

	path, err := r.ClassCounts([]string{"G1", "G2", "G2", "G3"})
	require.NoError(t, err)
	assertPNG(t, path)

	path, err = r.AgeHistogram([]float64{45.2, 51.9, math.NaN(), 63.0, 70.4})
	require.NoError(t, err)
	assertPNG(t, path)

	path, err = r.EthnicityCounts([]int{0, 1, 1, 0, 0})
	require.NoError(t, err)
	assertPNG(t, path)

	path, err = r.FollowUpHistogram([]int{10, 200, 350, 1200, 40})
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestRenderEmptyInputs(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.ClassCounts(nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = r.AgeHistogram([]float64{math.NaN()})
	assert.ErrorIs(t, err, ErrNoData)
}
