package classify

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/synaptica-ai/dcis/pkg/ml/linear"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type Kernel string

const (
	KernelLinear Kernel = "linear"
	KernelRBF    Kernel = "rbf"
)

const (
	DefaultC      = 1.0
	DefaultKernel = KernelRBF

	smoTolerance = 1e-3
	smoMaxPasses = 5
	smoMaxIter   = 200
	alphaEpsilon = 1e-5
)

// SVM is a one-vs-rest kernel support vector classifier trained with a
// simplified SMO. Pair selection is randomized; Rand pins it for
// reproducible fits and defaults to a time seeded source.
type SVM struct {
	C      float64
	Kernel Kernel
	Rand   *rand.Rand

	classes  []int
	machines []*binarySVM
	gamma    float64
	features int
}

type binarySVM struct {
	support [][]float64
	coef    []float64 // alpha_i * y_i
	bias    float64
	platt   linear.Weights
}

func NewSVM(c float64, kernel Kernel) *SVM {
	if c <= 0 {
		c = DefaultC
	}
	if kernel == "" {
		kernel = DefaultKernel
	}
	return &SVM{C: c, Kernel: kernel}
}

func (s *SVM) Classes() []int {
	return append([]int(nil), s.classes...)
}

// scaleGamma is 1 / (features * var(X)) over every entry of X.
func scaleGamma(x mat.Matrix) float64 {
	r, c := x.Dims()
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		values = append(values, row(x, i)...)
	}
	_, variance := stat.PopMeanVariance(values, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(c) * variance)
}

func (s *SVM) kernel(a, b []float64) float64 {
	if s.Kernel == KernelLinear {
		return floats.Dot(a, b)
	}
	d := floats.Distance(a, b, 2)
	return math.Exp(-s.gamma * d * d)
}

func (s *SVM) Fit(x mat.Matrix, y []int) error {
	n, p, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	if s.Kernel != KernelLinear && s.Kernel != KernelRBF {
		return fmt.Errorf("unknown kernel %q", s.Kernel)
	}
	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s.gamma = scaleGamma(x)
	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = row(x, i)
	}
	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			gram.SetSym(i, j, s.kernel(samples[i], samples[j]))
		}
	}

	classes := uniqueClasses(y)
	machines := make([]*binarySVM, len(classes))
	for k, class := range classes {
		target := make([]float64, n)
		positive := make([]bool, n)
		for i, label := range y {
			target[i] = -1
			if label == class {
				target[i] = 1
				positive[i] = true
			}
		}
		m := s.smo(gram, samples, target, rng)
		scores := make([]float64, n)
		for i := range samples {
			scores[i] = s.decide(m, samples[i])
		}
		m.platt = linear.FitPlatt(scores, positive)
		machines[k] = m
	}

	s.classes, s.machines, s.features = classes, machines, p
	return nil
}

// smo solves one binary problem with targets in {-1, +1}.
func (s *SVM) smo(gram *mat.SymDense, samples [][]float64, target []float64, rng *rand.Rand) *binarySVM {
	n := len(target)
	alpha := make([]float64, n)
	var b float64

	f := func(i int) float64 {
		sum := b
		for k := 0; k < n; k++ {
			if alpha[k] != 0 {
				sum += alpha[k] * target[k] * gram.At(k, i)
			}
		}
		return sum
	}

	if n > 1 {
		for passes, iter := 0, 0; passes < smoMaxPasses && iter < smoMaxIter; iter++ {
			changed := 0
			for i := 0; i < n; i++ {
				ei := f(i) - target[i]
				if !((target[i]*ei < -smoTolerance && alpha[i] < s.C) || (target[i]*ei > smoTolerance && alpha[i] > 0)) {
					continue
				}
				j := rng.Intn(n - 1)
				if j >= i {
					j++
				}
				ej := f(j) - target[j]
				ai, aj := alpha[i], alpha[j]

				var lo, hi float64
				if target[i] != target[j] {
					lo, hi = math.Max(0, aj-ai), math.Min(s.C, s.C+aj-ai)
				} else {
					lo, hi = math.Max(0, ai+aj-s.C), math.Min(s.C, ai+aj)
				}
				if lo == hi {
					continue
				}
				eta := 2*gram.At(i, j) - gram.At(i, i) - gram.At(j, j)
				if eta >= 0 {
					continue
				}

				alpha[j] = math.Min(hi, math.Max(lo, aj-target[j]*(ei-ej)/eta))
				if math.Abs(alpha[j]-aj) < alphaEpsilon {
					alpha[j] = aj
					continue
				}
				alpha[i] = ai + target[i]*target[j]*(aj-alpha[j])

				b1 := b - ei - target[i]*(alpha[i]-ai)*gram.At(i, i) - target[j]*(alpha[j]-aj)*gram.At(i, j)
				b2 := b - ej - target[i]*(alpha[i]-ai)*gram.At(i, j) - target[j]*(alpha[j]-aj)*gram.At(j, j)
				switch {
				case alpha[i] > 0 && alpha[i] < s.C:
					b = b1
				case alpha[j] > 0 && alpha[j] < s.C:
					b = b2
				default:
					b = (b1 + b2) / 2
				}
				changed++
			}
			if changed == 0 {
				passes++
			} else {
				passes = 0
			}
		}
	}

	m := &binarySVM{bias: b}
	for i := range alpha {
		if alpha[i] > 0 {
			m.support = append(m.support, samples[i])
			m.coef = append(m.coef, alpha[i]*target[i])
		}
	}
	if len(m.support) == 0 && oneSided(target) {
		m.bias = target[0]
	}
	return m
}

func oneSided(target []float64) bool {
	for _, t := range target {
		if t != target[0] {
			return false
		}
	}
	return true
}

func (s *SVM) decide(m *binarySVM, sample []float64) float64 {
	sum := m.bias
	for k, sv := range m.support {
		sum += m.coef[k] * s.kernel(sv, sample)
	}
	return sum
}

// DecisionFunction returns the one-vs-rest margin of every row per class.
func (s *SVM) DecisionFunction(x mat.Matrix) (*mat.Dense, error) {
	if s.machines == nil {
		return nil, ErrNotFitted
	}
	r, err := checkFeatures(x, s.features)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(s.classes), nil)
	for i := 0; i < r; i++ {
		sample := row(x, i)
		for k, m := range s.machines {
			out.Set(i, k, s.decide(m, sample))
		}
	}
	return out, nil
}

func (s *SVM) Predict(x mat.Matrix) ([]int, error) {
	scores, err := s.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	r, _ := scores.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = s.classes[floats.MaxIdx(scores.RawRowView(i))]
	}
	return out, nil
}

// PredictProba calibrates each margin with its Platt sigmoid and normalizes
// the row to sum to one.
func (s *SVM) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	scores, err := s.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	r, _ := scores.Dims()
	for i := 0; i < r; i++ {
		v := scores.RawRowView(i)
		for k, m := range s.machines {
			v[k] = linear.Predict(m.platt, []float64{v[k]})
		}
		if sum := floats.Sum(v); sum > 0 {
			floats.Scale(1/sum, v)
		}
	}
	return scores, nil
}
