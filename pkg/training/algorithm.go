package training

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synaptica-ai/dcis/pkg/ml/classify"
)

// Algorithm selects one of the supported grade classifiers.
type Algorithm string

const (
	KNN          Algorithm = "knn"
	SVM          Algorithm = "svm"
	RandomForest Algorithm = "forest"
	LDA          Algorithm = "lda"
)

var algorithms = []Algorithm{KNN, SVM, RandomForest, LDA}

// ParseAlgorithm accepts any casing of a supported selector.
func ParseAlgorithm(name string) (Algorithm, error) {
	key := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, a := range algorithms {
		if a == key {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfiguration, name)
}

func (a Algorithm) String() string {
	return string(a)
}

// SupportsProbability reports whether the algorithm exposes calibrated class
// probabilities.
func (a Algorithm) SupportsProbability() bool {
	return a == SVM || a == LDA
}

// Params is one hyperparameter assignment. A nil value keeps the default.
type Params map[string]interface{}

const (
	paramNeighbors = "n_neighbors"
	paramC         = "C"
	paramKernel    = "kernel"
	paramTrees     = "n_estimators"
	paramShrinkage = "shrinkage"

	shrinkageAuto = "auto"
)

// ParamGrid returns the fixed search space of an algorithm.
func ParamGrid(a Algorithm) (map[string][]interface{}, error) {
	switch a {
	case SVM:
		return map[string][]interface{}{
			paramC:      {0.1, 1.0, 10.0},
			paramKernel: {"linear", "rbf"},
		}, nil
	case KNN:
		return map[string][]interface{}{
			paramNeighbors: {3, 5, 7},
		}, nil
	case RandomForest:
		return map[string][]interface{}{
			paramTrees: {50, 100, 300},
		}, nil
	case LDA:
		return map[string][]interface{}{
			paramShrinkage: {nil, shrinkageAuto},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfiguration, a)
	}
}

// Candidates expands a grid into every assignment. Parameter names are sorted
// and the last name varies fastest.
func Candidates(grid map[string][]interface{}) []Params {
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []Params{{}}
	for _, name := range names {
		var next []Params
		for _, partial := range out {
			for _, v := range grid[name] {
				p := make(Params, len(partial)+1)
				for k, pv := range partial {
					p[k] = pv
				}
				p[name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// newEstimator builds an unfitted estimator. Missing parameters take the
// library defaults.
func newEstimator(a Algorithm, p Params) (classify.Estimator, error) {
	switch a {
	case KNN:
		k, err := intParam(p, paramNeighbors, classify.DefaultNeighbors)
		if err != nil {
			return nil, err
		}
		return classify.NewKNN(k), nil
	case RandomForest:
		trees, err := intParam(p, paramTrees, classify.DefaultTrees)
		if err != nil {
			return nil, err
		}
		return classify.NewRandomForest(trees), nil
	case LDA:
		switch v := p[paramShrinkage]; v {
		case nil:
			return classify.NewLDA(false), nil
		case shrinkageAuto:
			return classify.NewLDA(true), nil
		default:
			return nil, fmt.Errorf("%w: shrinkage %v", ErrInvalidConfiguration, v)
		}
	case SVM:
		c := classify.DefaultC
		if v, ok := p[paramC]; ok && v != nil {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: C %v", ErrInvalidConfiguration, v)
			}
			c = f
		}
		kernel := classify.DefaultKernel
		if v, ok := p[paramKernel]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: kernel %v", ErrInvalidConfiguration, v)
			}
			kernel = classify.Kernel(s)
		}
		return classify.NewSVM(c, kernel), nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfiguration, a)
	}
}

func intParam(p Params, name string, fallback int) (int, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return fallback, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %s %v", ErrInvalidConfiguration, name, v)
	}
	return n, nil
}
