package common

import (
	"fmt"
	"strings"
)

// ModelID selects a trained classifier, its feature schema and its feature encoding.
type ModelID string

const (
	RandomForest       ModelID = "RF"
	DecisionTree       ModelID = "DT"
	LogisticRegression ModelID = "LR"
)

// ModelIDs lists every legal identifier.
var ModelIDs = []ModelID{RandomForest, DecisionTree, LogisticRegression}

// ParseModelID accepts an identifier in any letter case ("rf", "RF").
func ParseModelID(s string) (ModelID, error) {
	id := ModelID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("unknown model identifier %q", s)
	}
	return id, nil
}

// Valid reports whether id is one of RF, DT or LR.
func (id ModelID) Valid() bool {
	switch id {
	case RandomForest, DecisionTree, LogisticRegression:
		return true
	}
	return false
}

// DisplayName returns the human readable model name.
func (id ModelID) DisplayName() string {
	switch id {
	case RandomForest:
		return "RandomForest"
	case DecisionTree:
		return "DecisionTree"
	case LogisticRegression:
		return "LogisticRegression"
	}
	return string(id)
}

func (id ModelID) String() string {
	return string(id)
}
