package training

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/ml/classify"
	"gonum.org/v1/gonum/mat"
)

// CVFolds is the cross-validation fold count of every grid search.
const CVFolds = 5

// CandidateScore is the cross-validated accuracy of one assignment.
type CandidateScore struct {
	Params     Params    `json:"params"`
	FoldScores []float64 `json:"fold_scores"`
	Mean       float64   `json:"mean"`
}

type SearchResult struct {
	BestParams Params
	BestScore  float64
	Candidates []CandidateScore
	Best       classify.Estimator
}

// GridSearch scores every candidate of an algorithm's grid by mean fold
// accuracy and refits the winner on all rows.
type GridSearch struct {
	Algorithm Algorithm
	Folds     int
	log       logrus.FieldLogger
}

func NewGridSearch(a Algorithm, folds int, log logrus.FieldLogger) *GridSearch {
	if folds <= 0 {
		folds = CVFolds
	}
	return &GridSearch{Algorithm: a, Folds: folds, log: log}
}

// Run evaluates candidates in grid order. Ties keep the earliest candidate.
func (g *GridSearch) Run(ctx context.Context, x *mat.Dense, y []int) (*SearchResult, error) {
	grid, err := ParamGrid(g.Algorithm)
	if err != nil {
		return nil, err
	}
	folds, err := StratifiedKFold(y, g.Folds)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{BestScore: -1}
	for _, params := range Candidates(grid) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := CandidateScore{Params: params}
		for _, fold := range folds {
			acc, err := g.scoreFold(x, y, params, fold)
			if err != nil {
				return nil, fmt.Errorf("cross-validate %v: %w", params, err)
			}
			score.FoldScores = append(score.FoldScores, acc)
			score.Mean += acc
		}
		score.Mean /= float64(len(folds))
		result.Candidates = append(result.Candidates, score)

		g.log.WithFields(logrus.Fields{
			"algorithm": g.Algorithm,
			"params":    params,
			"accuracy":  score.Mean,
		}).Debug("Grid candidate scored")

		if score.Mean > result.BestScore {
			result.BestScore = score.Mean
			result.BestParams = params
		}
	}

	best, err := newEstimator(g.Algorithm, result.BestParams)
	if err != nil {
		return nil, err
	}
	if err := best.Fit(x, y); err != nil {
		return nil, fmt.Errorf("refit best candidate: %w", err)
	}
	result.Best = best
	return result, nil
}

func (g *GridSearch) scoreFold(x *mat.Dense, y []int, params Params, fold Fold) (float64, error) {
	est, err := newEstimator(g.Algorithm, params)
	if err != nil {
		return 0, err
	}
	xTrain, yTrain := subset(x, y, fold.Train)
	if err := est.Fit(xTrain, yTrain); err != nil {
		return 0, err
	}
	xTest, yTest := subset(x, y, fold.Test)
	pred, err := est.Predict(xTest)
	if err != nil {
		return 0, err
	}
	return Accuracy(yTest, pred), nil
}

// Accuracy is the share of positions where want and got agree.
func Accuracy(want, got []int) float64 {
	if len(want) == 0 {
		return 0
	}
	correct := 0
	for i := range want {
		if want[i] == got[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(want))
}

func subset(x *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	_, c := x.Dims()
	out := mat.NewDense(len(idx), c, nil)
	labels := make([]int, len(idx))
	for r, i := range idx {
		out.SetRow(r, x.RawRowView(i))
		labels[r] = y[i]
	}
	return out, labels
}
