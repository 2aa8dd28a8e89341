package ml

import (
	"errors"
	"fmt"

	"churn-predictor/internal/common"
)

// ConfigurationError reports an unknown model identifier or a missing, unreadable or
// corrupt model artifact.
type ConfigurationError struct {
	ModelID common.ModelID
	Op      string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.ModelID == "" {
		return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("configuration error: model %s: %s: %v", e.ModelID, e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InputError reports an empty or structurally unreadable input table.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "input error: " + e.Reason
}

// ErrRunNotFound is returned by a RunStore for an unknown run id.
var ErrRunNotFound = errors.New("run not found")
