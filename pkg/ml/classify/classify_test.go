package classify

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// blobs draws perClass points around each center with unit noise.
func blobs(seed int64, perClass int, centers [][2]float64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	n := perClass * len(centers)
	x := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for k, c := range centers {
		for i := 0; i < perClass; i++ {
			r := k*perClass + i
			x.Set(r, 0, c[0]+rng.NormFloat64())
			x.Set(r, 1, c[1]+rng.NormFloat64())
			y[r] = k
		}
	}
	return x, y
}

var threeCenters = [][2]float64{{0, 0}, {10, 10}, {0, 10}}

func accuracy(want, got []int) float64 {
	correct := 0
	for i := range want {
		if want[i] == got[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(want))
}

func TestEstimatorsSeparateBlobs(t *testing.T) {
	xTrain, yTrain := blobs(1, 20, threeCenters)
	xTest, yTest := blobs(2, 10, threeCenters)

	cases := map[string]struct {
		est Estimator
		min float64
	}{
		"knn":        {NewKNN(3), 0.95},
		"forest":     {NewRandomForest(25), 0.8},
		"lda":        {NewLDA(false), 0.95},
		"lda shrunk": {NewLDA(true), 0.95},
		"svm linear": {&SVM{C: 1, Kernel: KernelLinear, Rand: rand.New(rand.NewSource(3))}, 0.9},
		"svm rbf":    {&SVM{C: 1, Kernel: KernelRBF, Rand: rand.New(rand.NewSource(3))}, 0.9},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tc.est.Fit(xTrain, yTrain))
			pred, err := tc.est.Predict(xTest)
			require.NoError(t, err)
			require.Len(t, pred, len(yTest))
			assert.GreaterOrEqual(t, accuracy(yTest, pred), tc.min)
		})
	}
}

func TestPredictBeforeFit(t *testing.T) {
	x := mat.NewDense(1, 2, []float64{0, 0})
	for name, est := range map[string]Estimator{
		"knn":    NewKNN(0),
		"forest": NewRandomForest(0),
		"lda":    NewLDA(false),
		"svm":    NewSVM(0, ""),
	} {
		_, err := est.Predict(x)
		assert.ErrorIs(t, err, ErrNotFitted, name)
	}
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, DefaultNeighbors, NewKNN(0).Neighbors)
	assert.Equal(t, DefaultTrees, NewRandomForest(-1).Trees)
	svm := NewSVM(0, "")
	assert.Equal(t, DefaultC, svm.C)
	assert.Equal(t, KernelRBF, svm.Kernel)
	assert.Equal(t, 3, featuresPerTree(12))
	assert.Equal(t, 1, featuresPerTree(1))
}

func TestFitRejectsMismatchedLabels(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	err := NewLDA(false).Fit(x, []int{0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	x, y := blobs(1, 5, threeCenters)
	lda := NewLDA(false)
	require.NoError(t, lda.Fit(x, y))

	_, err := lda.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLDAIsDeterministic(t *testing.T) {
	xTrain, yTrain := blobs(4, 15, threeCenters)
	xTest, _ := blobs(5, 10, threeCenters)

	first, second := NewLDA(true), NewLDA(true)
	require.NoError(t, first.Fit(xTrain, yTrain))
	require.NoError(t, second.Fit(xTrain, yTrain))

	a, err := first.Predict(xTest)
	require.NoError(t, err)
	b, err := second.Predict(xTest)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProbabilitiesSumToOne(t *testing.T) {
	xTrain, yTrain := blobs(6, 15, threeCenters)
	xTest, _ := blobs(7, 5, threeCenters)

	for name, est := range map[string]ProbabilityEstimator{
		"lda": NewLDA(false),
		"svm": &SVM{C: 1, Kernel: KernelRBF, Rand: rand.New(rand.NewSource(8))},
	} {
		require.NoError(t, est.Fit(xTrain, yTrain), name)
		assert.Equal(t, []int{0, 1, 2}, est.Classes(), name)

		proba, err := est.PredictProba(xTest)
		require.NoError(t, err, name)
		r, c := proba.Dims()
		assert.Equal(t, 15, r, name)
		assert.Equal(t, 3, c, name)
		for i := 0; i < r; i++ {
			assert.InDelta(t, 1.0, floats.Sum(proba.RawRowView(i)), 1e-9, name)
		}
	}
}

func TestPseudoInverse(t *testing.T) {
	diag := mat.NewDense(2, 2, []float64{2, 0, 0, 4})
	inv, err := pseudoInverse(diag)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, inv.At(0, 0), 1e-12)
	assert.InDelta(t, 0.25, inv.At(1, 1), 1e-12)

	singular := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	inv, err = pseudoInverse(singular)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 0.25, inv.At(i, j), 1e-12)
		}
	}
}

func TestLedoitWolfShrinksTowardsScaledIdentity(t *testing.T) {
	x, _ := blobs(9, 10, [][2]float64{{0, 0}})
	centered := centerColumns(x)

	emp := empiricalCovariance(x)
	shrunk := ledoitWolf(centered)

	mu := mat.Trace(emp) / 2
	assert.InDelta(t, mat.Trace(emp), mat.Trace(shrunk), 1e-9)
	assert.LessOrEqual(t, absf(shrunk.At(0, 1)), absf(emp.At(0, 1))+1e-12)
	assert.Greater(t, mu, 0.0)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestScaleGamma(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{0, 0, 2, 2})
	assert.InDelta(t, 0.5, scaleGamma(x), 1e-12)
	assert.Equal(t, 1.0, scaleGamma(mat.NewDense(1, 2, []float64{3, 3})))
}

func TestSVMSingleClass(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	svm := &SVM{C: 1, Kernel: KernelLinear, Rand: rand.New(rand.NewSource(1))}
	require.NoError(t, svm.Fit(x, []int{2, 2, 2}))

	pred, err := svm.Predict(mat.NewDense(1, 1, []float64{10}))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, pred)
}
