package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LDA is linear discriminant analysis with a shared within-class covariance.
// With Shrinkage set, each class covariance is regularized with the
// Ledoit-Wolf estimate before pooling. Fitting is deterministic.
type LDA struct {
	Shrinkage bool

	classes   []int
	coef      *mat.Dense // classes x features
	intercept []float64
	features  int
}

func NewLDA(shrinkage bool) *LDA {
	return &LDA{Shrinkage: shrinkage}
}

func (l *LDA) Classes() []int {
	return append([]int(nil), l.classes...)
}

func (l *LDA) Fit(x mat.Matrix, y []int) error {
	n, p, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	classes := uniqueClasses(y)

	pooled := mat.NewSymDense(p, nil)
	means := mat.NewDense(len(classes), p, nil)
	priors := make([]float64, len(classes))

	for k, class := range classes {
		var members []int
		for i, label := range y {
			if label == class {
				members = append(members, i)
			}
		}
		group := mat.NewDense(len(members), p, nil)
		for r, i := range members {
			group.SetRow(r, row(x, i))
		}
		for j := 0; j < p; j++ {
			means.Set(k, j, stat.Mean(mat.Col(nil, j, group), nil))
		}
		priors[k] = float64(len(members)) / float64(n)

		cov := empiricalCovariance(group)
		if l.Shrinkage {
			cov = shrunkCovariance(group)
		}
		pooled.AddSym(pooled, scaleSym(priors[k], cov))
	}

	inv, err := pseudoInverse(pooled)
	if err != nil {
		return err
	}

	var coef mat.Dense
	coef.Mul(means, inv)
	intercept := make([]float64, len(classes))
	for k := range classes {
		mu := means.RawRowView(k)
		intercept[k] = -0.5*floats.Dot(coef.RawRowView(k), mu) + math.Log(priors[k])
	}

	l.classes, l.coef, l.intercept, l.features = classes, &coef, intercept, p
	return nil
}

// decision returns the linear discriminant score of every row per class.
func (l *LDA) decision(x mat.Matrix) (*mat.Dense, error) {
	if l.coef == nil {
		return nil, ErrNotFitted
	}
	r, err := checkFeatures(x, l.features)
	if err != nil {
		return nil, err
	}
	scores := mat.NewDense(r, len(l.classes), nil)
	scores.Mul(x, l.coef.T())
	for i := 0; i < r; i++ {
		floats.Add(scores.RawRowView(i), l.intercept)
	}
	return scores, nil
}

func (l *LDA) Predict(x mat.Matrix) ([]int, error) {
	scores, err := l.decision(x)
	if err != nil {
		return nil, err
	}
	r, _ := scores.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = l.classes[floats.MaxIdx(scores.RawRowView(i))]
	}
	return out, nil
}

// PredictProba applies a softmax over the discriminant scores.
func (l *LDA) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	scores, err := l.decision(x)
	if err != nil {
		return nil, err
	}
	r, _ := scores.Dims()
	for i := 0; i < r; i++ {
		softmax(scores.RawRowView(i))
	}
	return scores, nil
}

func softmax(v []float64) {
	peak := floats.Max(v)
	var sum float64
	for i := range v {
		v[i] = math.Exp(v[i] - peak)
		sum += v[i]
	}
	floats.Scale(1/sum, v)
}

// empiricalCovariance is the maximum likelihood (1/n) covariance.
func empiricalCovariance(x *mat.Dense) *mat.SymDense {
	n, p := x.Dims()
	centered := centerColumns(x)
	cov := mat.NewSymDense(p, nil)
	cov.SymOuterK(1/float64(n), centered.T())
	return cov
}

func centerColumns(x *mat.Dense) *mat.Dense {
	n, p := x.Dims()
	out := mat.NewDense(n, p, nil)
	out.Copy(x)
	for j := 0; j < p; j++ {
		mean := stat.Mean(mat.Col(nil, j, x), nil)
		for i := 0; i < n; i++ {
			out.Set(i, j, out.At(i, j)-mean)
		}
	}
	return out
}

// shrunkCovariance standardizes the columns, applies Ledoit-Wolf shrinkage
// and maps the result back to the original scale.
func shrunkCovariance(x *mat.Dense) *mat.SymDense {
	n, p := x.Dims()
	scale := make([]float64, p)
	standardized := centerColumns(x)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, standardized)
		sd := math.Sqrt(floats.Dot(col, col) / float64(n))
		if sd == 0 {
			sd = 1
		}
		scale[j] = sd
		for i := 0; i < n; i++ {
			standardized.Set(i, j, col[i]/sd)
		}
	}

	s := ledoitWolf(standardized)
	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			out.SetSym(i, j, scale[i]*s.At(i, j)*scale[j])
		}
	}
	return out
}

// ledoitWolf estimates the shrunk covariance of x, whose columns are already
// centered.
func ledoitWolf(x *mat.Dense) *mat.SymDense {
	n, p := x.Dims()
	nf, pf := float64(n), float64(p)

	emp := mat.NewSymDense(p, nil)
	emp.SymOuterK(1/nf, x.T())
	mu := mat.Trace(emp) / pf

	x2 := mat.NewDense(n, p, nil)
	x2.MulElem(x, x)

	var xtx2, xtx mat.Dense
	xtx2.Mul(x2.T(), x2)
	xtx.Mul(x.T(), x)

	beta := mat.Sum(&xtx2)
	var sq mat.Dense
	sq.MulElem(&xtx, &xtx)
	delta := mat.Sum(&sq) / (nf * nf)
	traceSum := mat.Sum(x2) / nf

	beta = (beta/nf - delta) / (pf * nf)
	delta = (delta - 2*mu*traceSum + pf*mu*mu) / pf
	beta = math.Min(beta, delta)

	shrinkage := 0.0
	if beta != 0 {
		shrinkage = beta / delta
	}

	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := (1 - shrinkage) * emp.At(i, j)
			if i == j {
				v += shrinkage * mu
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}

func scaleSym(f float64, s *mat.SymDense) *mat.SymDense {
	out := mat.NewSymDense(s.SymmetricDim(), nil)
	out.ScaleSym(f, s)
	return out
}

// pseudoInverse inverts a symmetric matrix through its SVD, discarding
// singular values below the relative tolerance.
func pseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, ErrSingular
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r, _ := a.Dims()
	tol := 0.0
	if len(values) > 0 {
		tol = values[0] * float64(r) * 1e-15
	}
	inv := make([]float64, len(values))
	for i, s := range values {
		if s > tol {
			inv[i] = 1 / s
		}
	}

	var vs mat.Dense
	vs.Mul(&v, mat.NewDiagDense(len(inv), inv))
	var out mat.Dense
	out.Mul(&vs, u.T())
	return &out, nil
}
