package features

import (
	"churn-predictor/internal/common"

	"gonum.org/v1/gonum/stat"
)

// Trend returns the least-squares slope of ys against the positions 1..len(ys).
func Trend(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}

// Volatility returns the sample standard deviation (n-1 denominator) of ys.
func Volatility(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	return stat.StdDev(ys, nil)
}

// PriorRatio compares the last value with the mean of the ones before it:
// (last - prior) / (prior + Epsilon).
func PriorRatio(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}
	prior := stat.Mean(ys[:n-1], nil)
	return (ys[n-1] - prior) / (prior + common.Epsilon)
}
