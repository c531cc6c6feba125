// Package linear fits binary logistic models by batch gradient descent. Labels
// may be soft targets in [0, 1].
package linear

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type Options struct {
	Epochs       int
	LearningRate float64
}

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

func TrainLogistic(samples [][]float64, labels []float64, opts Options) (Weights, Metrics) {
	if opts.Epochs <= 0 {
		opts.Epochs = 200
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.01
	}

	n := len(samples)
	if n == 0 {
		return Weights{}, Metrics{}
	}
	featureCount := len(samples[0])
	weights := make([]float64, featureCount)
	grad := make([]float64, featureCount)
	var bias float64

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64
		for i, sample := range samples {
			residual := sigmoid(floats.Dot(weights, sample)+bias) - labels[i]
			floats.AddScaled(grad, residual, sample)
			biasGrad += residual
		}
		floats.AddScaled(weights, -opts.LearningRate/float64(n), grad)
		bias -= opts.LearningRate * biasGrad / float64(n)
	}

	loss, accuracy := evaluate(weights, bias, samples, labels)
	return Weights{Bias: bias, Coefficients: weights}, Metrics{Loss: loss, Accuracy: accuracy}
}

func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(floats.Dot(weights.Coefficients, sample) + weights.Bias)
}

// PlattTargets returns the smoothed targets (N+ + 1)/(N+ + 2) and 1/(N- + 2)
// used to calibrate a score against binary outcomes.
func PlattTargets(positive []bool) []float64 {
	var nPos, nNeg float64
	for _, p := range positive {
		if p {
			nPos++
		} else {
			nNeg++
		}
	}
	hi := (nPos + 1) / (nPos + 2)
	lo := 1 / (nNeg + 2)
	targets := make([]float64, len(positive))
	for i, p := range positive {
		if p {
			targets[i] = hi
		} else {
			targets[i] = lo
		}
	}
	return targets
}

// FitPlatt maps raw decision scores onto probabilities with a one feature
// logistic fit.
func FitPlatt(scores []float64, positive []bool) Weights {
	samples := make([][]float64, len(scores))
	for i, s := range scores {
		samples[i] = []float64{s}
	}
	weights, _ := TrainLogistic(samples, PlattTargets(positive), Options{Epochs: 2000, LearningRate: 0.5})
	return weights
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func evaluate(weights []float64, bias float64, samples [][]float64, labels []float64) (float64, float64) {
	var loss float64
	var correct int
	for i, sample := range samples {
		prediction := sigmoid(floats.Dot(weights, sample) + bias)
		loss += -labels[i]*math.Log(prediction+1e-9) - (1-labels[i])*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5) == (labels[i] >= 0.5) {
			correct++
		}
	}
	loss /= float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))
	return loss, accuracy
}
