// Package ml provides churn prediction for uploaded customer tables.
// It includes the classifier capabilities evaluated natively from JSON artifacts,
// a load-once registry of the three trained models and their feature schemas, and the
// runner that turns a raw table into one prediction per customer.
package ml

import (
	"encoding/json"
	"fmt"
	"time"
)

// Classifier predicts a class label for every feature row.
type Classifier interface {
	Predict(X [][]float64) ([]int, error)
}

// ProbabilityEstimator is implemented by classifiers that expose class probabilities.
// PredictProba returns one row per input, with columns ordered like Classes.
type ProbabilityEstimator interface {
	Classes() []int
	PredictProba(X [][]float64) ([][]float64, error)
}

// Artifact kinds
const (
	KindDecisionTree       = "decision_tree"
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
)

// ArtifactInfo describes a loaded classifier artifact.
type ArtifactInfo struct {
	Kind      string    `json:"kind"`
	Version   string    `json:"version,omitempty"`
	Classes   []int     `json:"classes"`
	NFeatures int       `json:"n_features"`
	Trees     int       `json:"trees,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// artifact is the serialized classifier format. Trees use the node arrays of a fitted
// scikit-learn tree; value holds per-node class weights.
type artifact struct {
	Kind      string       `json:"kind"`
	Version   string       `json:"version,omitempty"`
	Classes   []int        `json:"classes"`
	NFeatures int          `json:"n_features"`
	Tree      *treeArrays  `json:"tree,omitempty"`
	Trees     []treeArrays `json:"trees,omitempty"`
	Coef      []float64    `json:"coef,omitempty"`
	Intercept float64      `json:"intercept"`
}

type treeArrays struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// ParseClassifier decodes and validates a JSON classifier artifact.
func ParseClassifier(data []byte) (Classifier, ArtifactInfo, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, ArtifactInfo{}, fmt.Errorf("decode artifact: %w", err)
	}
	if err := validateClasses(a.Classes); err != nil {
		return nil, ArtifactInfo{}, err
	}
	if a.NFeatures <= 0 {
		return nil, ArtifactInfo{}, fmt.Errorf("n_features must be positive, got %d", a.NFeatures)
	}

	info := ArtifactInfo{
		Kind:      a.Kind,
		Version:   a.Version,
		Classes:   append([]int(nil), a.Classes...),
		NFeatures: a.NFeatures,
	}

	switch a.Kind {
	case KindDecisionTree:
		if a.Tree == nil {
			return nil, info, fmt.Errorf("decision_tree artifact has no tree")
		}
		t, err := newTree(*a.Tree, len(a.Classes), a.NFeatures)
		if err != nil {
			return nil, info, err
		}
		info.Trees = 1
		return &DecisionTree{tree: t, classes: info.Classes, nFeatures: a.NFeatures}, info, nil

	case KindRandomForest:
		if len(a.Trees) == 0 {
			return nil, info, fmt.Errorf("random_forest artifact has no trees")
		}
		trees := make([]*tree, len(a.Trees))
		for i, arr := range a.Trees {
			t, err := newTree(arr, len(a.Classes), a.NFeatures)
			if err != nil {
				return nil, info, fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = t
		}
		info.Trees = len(trees)
		return &RandomForest{trees: trees, classes: info.Classes, nFeatures: a.NFeatures}, info, nil

	case KindLogisticRegression:
		if len(a.Coef) != a.NFeatures {
			return nil, info, fmt.Errorf("expected %d coefficients, got %d", a.NFeatures, len(a.Coef))
		}
		return &LogisticRegression{
			coef:      append([]float64(nil), a.Coef...),
			intercept: a.Intercept,
			classes:   info.Classes,
		}, info, nil
	}

	return nil, info, fmt.Errorf("unknown artifact kind %q", a.Kind)
}

func validateClasses(classes []int) error {
	if len(classes) != 2 {
		return fmt.Errorf("expected 2 classes, got %d", len(classes))
	}
	if classes[0] == classes[1] {
		return fmt.Errorf("duplicate class %d", classes[0])
	}
	for _, c := range classes {
		if c != 0 && c != 1 {
			return fmt.Errorf("class %d is not a churn label", c)
		}
	}
	return nil
}

func checkWidth(X [][]float64, want int) error {
	for i, row := range X {
		if len(row) != want {
			return fmt.Errorf("row %d: expected %d features, got %d", i, want, len(row))
		}
	}
	return nil
}

// argmax returns the first index of the largest value.
func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
