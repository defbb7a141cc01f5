// Package evaluation scores rating columns against what happened later.
package evaluation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric names
const (
	MetricRSQ  = "rsq"
	MetricRMSE = "rmse"
)

// MetricFunc scores ratings against outcomes of the same length. NaN means
// the score is undefined for the input.
type MetricFunc func(ratings, outcomes []float64) float64

// Metrics is the registry of evaluation metrics by name
var Metrics = map[string]MetricFunc{
	MetricRSQ:  RSquared,
	MetricRMSE: RMSE,
}

// MetricNames returns the registered metric names in sorted order
func MetricNames() []string {
	names := make([]string, 0, len(Metrics))
	for name := range Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RSquared is the coefficient of determination of an ordinary least squares
// fit of outcomes on ratings with an intercept. A constant rating explains
// nothing and scores 0.
func RSquared(ratings, outcomes []float64) float64 {
	if len(ratings) != len(outcomes) || len(ratings) < 2 {
		return math.NaN()
	}
	if stat.Variance(ratings, nil) == 0 {
		return 0
	}
	alpha, beta := stat.LinearRegression(ratings, outcomes, nil, false)
	return stat.RSquared(ratings, outcomes, nil, alpha, beta)
}

// RMSE is the root mean squared error of predictions against outcomes
func RMSE(predictions, outcomes []float64) float64 {
	if len(predictions) != len(outcomes) || len(predictions) == 0 {
		return math.NaN()
	}
	return floats.Distance(predictions, outcomes, 2) / math.Sqrt(float64(len(predictions)))
}
