package analysis

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/terminology"
	"github.com/synaptica-ai/dcis/pkg/training"
	"gonum.org/v1/gonum/mat"
)

// Result is everything one evaluation run produced.
type Result struct {
	Algorithm     training.Algorithm
	TrainRows     []int
	TestRows      []int
	YTest         []int
	YPred         []int
	Classes       []int
	ClassNames    []string
	Confusion     *mat.Dense
	Probabilities *mat.Dense // nil unless the algorithm supports it
	ProbaClasses  []int      // class code of each probability column
	Report        *Report
	BestParams    training.Params
	ImputedMeans  []float64
}

type Evaluator struct {
	catalog terminology.Catalog
	log     logrus.FieldLogger
}

func NewEvaluator(cat terminology.Catalog, log logrus.FieldLogger) *Evaluator {
	return &Evaluator{catalog: cat, log: log}
}

// Evaluate holds out a reproducible test partition, imputes missing features
// from training means, fits the model and scores its predictions.
func (e *Evaluator) Evaluate(ctx context.Context, x *mat.Dense, labels []string, model *training.Model, useGridSearch bool) (*Result, error) {
	y, err := ClassCodes(e.catalog, labels)
	if err != nil {
		return nil, err
	}
	n, _ := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("%d feature rows, %d labels", n, len(y))
	}

	trainRows, testRows, err := TrainTestSplit(n, TestFraction, SplitSeed)
	if err != nil {
		return nil, err
	}

	var imputer Imputer
	imputer.Fit(Rows(x, trainRows))
	xTrain, err := imputer.Transform(Rows(x, trainRows))
	if err != nil {
		return nil, err
	}
	xTest, err := imputer.Transform(Rows(x, testRows))
	if err != nil {
		return nil, err
	}
	yTrain, yTest := pick(y, trainRows), pick(y, testRows)

	if err := model.Fit(ctx, xTrain, yTrain, useGridSearch); err != nil {
		return nil, err
	}
	yPred, err := model.Predict(xTest)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	report, err := NewReport(yTest, yPred, e.className)
	if err != nil {
		return nil, err
	}
	classes := reportClasses(yTest, yPred)
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = e.className(c)
	}

	result := &Result{
		Algorithm:    model.Algorithm(),
		TrainRows:    trainRows,
		TestRows:     testRows,
		YTest:        yTest,
		YPred:        yPred,
		Classes:      classes,
		ClassNames:   names,
		Confusion:    ConfusionMatrix(yTest, yPred, classes),
		Report:       report,
		BestParams:   model.BestParams(),
		ImputedMeans: imputer.Means(),
	}

	if model.SupportsProbability() {
		proba, err := model.PredictProbability(xTest)
		if err != nil {
			return nil, fmt.Errorf("predict probability: %w", err)
		}
		result.Probabilities = proba
		result.ProbaClasses = model.Classes()
	}

	e.log.WithFields(logrus.Fields{
		"algorithm":  model.Algorithm(),
		"train_rows": len(trainRows),
		"test_rows":  len(testRows),
		"accuracy":   report.Accuracy,
	}).Info("Model evaluated")

	return result, nil
}

func (e *Evaluator) className(code int) string {
	if name, ok := e.catalog.ClassName(code); ok {
		return name
	}
	return numericLabel(code)
}
