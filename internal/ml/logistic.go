package ml

import "math"

// LogisticRegression is a fitted binary logistic model. coef weighs the feature
// columns toward classes[1].
type LogisticRegression struct {
	coef      []float64
	intercept float64
	classes   []int
}

func (m *LogisticRegression) Classes() []int {
	return append([]int(nil), m.classes...)
}

func (m *LogisticRegression) PredictProba(X [][]float64) ([][]float64, error) {
	if err := checkWidth(X, len(m.coef)); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		z := m.intercept
		for j, w := range m.coef {
			z += w * x[j]
		}
		p := sigmoid(z)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

func (m *LogisticRegression) Predict(X [][]float64) ([]int, error) {
	probas, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probas))
	for i, p := range probas {
		if p[1] > 0.5 {
			out[i] = m.classes[1]
		} else {
			out[i] = m.classes[0]
		}
	}
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
