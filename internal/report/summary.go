// Package report summarizes prediction runs for the API and the command line.
package report

import (
	"fmt"
	"math"

	"churn-predictor/internal/ml"
)

const (
	histogramBins = 10
	sweepStep     = 5 // percent
)

// Bin counts probabilities in [Lower, Upper). The last bin also holds 1.0.
type Bin struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// ThresholdPoint is the share of customers flagged when churn is declared at
// probability >= Threshold.
type ThresholdPoint struct {
	Threshold float64 `json:"threshold"`
	Count     int     `json:"count"`
	Rate      float64 `json:"rate"` // percent, two decimals
}

// Summary describes one run.
type Summary struct {
	Total            int              `json:"total"`
	Churned          int              `json:"churned"`
	Retained         int              `json:"retained"`
	ChurnRate        float64          `json:"churn_rate"`
	HasProbabilities bool             `json:"has_probabilities"`
	Threshold        float64          `json:"threshold"`
	AtRisk           int              `json:"at_risk"`
	Histogram        []Bin            `json:"histogram"`
	Sweep            []ThresholdPoint `json:"sweep"`
}

// Summarize counts labels and, when probabilities exist, builds the probability
// histogram and threshold sweep. AtRisk counts probabilities >= threshold.
func Summarize(preds []ml.Prediction, threshold float64) Summary {
	s := Summary{
		Total:     len(preds),
		Threshold: threshold,
		Histogram: make([]Bin, histogramBins),
	}

	var probs []float64
	for _, p := range preds {
		s.Churned += p.Label
		if p.Probability != nil {
			probs = append(probs, *p.Probability)
		}
	}
	s.Retained = s.Total - s.Churned
	if s.Total > 0 {
		s.ChurnRate = round2(float64(s.Churned) / float64(s.Total) * 100)
	}
	s.HasProbabilities = len(probs) > 0

	for i := range s.Histogram {
		lower, upper := float64(i)/histogramBins, float64(i+1)/histogramBins
		s.Histogram[i] = Bin{Label: fmt.Sprintf("%.1f-%.1f", lower, upper), Lower: lower, Upper: upper}
	}
	for _, p := range probs {
		s.Histogram[binIndex(p)].Count++
		if p >= threshold {
			s.AtRisk++
		}
	}

	for pct := 0; pct <= 100; pct += sweepStep {
		t := float64(pct) / 100
		point := ThresholdPoint{Threshold: t}
		for _, p := range probs {
			if p >= t {
				point.Count++
			}
		}
		if len(probs) > 0 {
			point.Rate = round2(float64(point.Count) / float64(len(probs)) * 100)
		}
		s.Sweep = append(s.Sweep, point)
	}

	return s
}

// Func adapts Summarize to the server's summary hook.
func Func(threshold float64) ml.SummaryFunc {
	return func(preds []ml.Prediction) any {
		return Summarize(preds, threshold)
	}
}

func binIndex(p float64) int {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return histogramBins - 1
	}
	idx := int(p * histogramBins)
	if idx >= histogramBins {
		idx = histogramBins - 1
	}
	return idx
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
