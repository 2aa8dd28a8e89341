package ml

import (
	"context"
	"fmt"
	"math"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the runner
type MetricsInterface interface {
	RunsInc(model string)
	RunFailuresInc(model string)
	RowsAdd(model string, n int)
	RunLatencyObserve(model string, seconds float64)
	ProbabilityFallbackInc(model string)
	ChurnScoreObserve(model string, p float64)
}

// Prediction is the outcome for one uploaded customer. Label is 1 when the customer
// is predicted to churn. Probability is nil when the run produced no probabilities.
type Prediction struct {
	CustomerID   string   `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	Label        int      `json:"label"`
	Probability  *float64 `json:"probability,omitempty"`
}

// RunResult is a completed prediction run over one uploaded table.
type RunResult struct {
	ID               string         `json:"id"`
	Model            common.ModelID `json:"model"`
	Source           string         `json:"source"`
	CreatedAt        time.Time      `json:"created_at"`
	Duration         time.Duration  `json:"duration"`
	TotalRows        int            `json:"total_rows"`
	HasProbabilities bool           `json:"has_probabilities"`
	Predictions      []Prediction   `json:"predictions"`
}

// Runner builds, aligns and classifies uploaded tables. It keeps no per-call state,
// so one Runner serves concurrent uploads.
type Runner struct {
	source  ArtifactSource
	metrics MetricsInterface
}

// NewRunner creates a runner over the given artifacts. metrics may be nil.
func NewRunner(source ArtifactSource, metrics MetricsInterface) *Runner {
	return &Runner{source: source, metrics: metrics}
}

// PredictRun runs Predict and records the run's bookkeeping.
func (r *Runner) PredictRun(ctx context.Context, t *features.Table, id common.ModelID, source string) (*RunResult, error) {
	start := time.Now()
	preds, err := r.Predict(ctx, t, id)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		ID:               uuid.NewString(),
		Model:            id,
		Source:           source,
		CreatedAt:        start.UTC(),
		Duration:         time.Since(start),
		TotalRows:        len(preds),
		HasProbabilities: len(preds) > 0 && preds[0].Probability != nil,
		Predictions:      preds,
	}, nil
}

// Predict returns one prediction per record of t, in record order. Labels are
// mandatory; probabilities are dropped for every row if they cannot be computed.
func (r *Runner) Predict(ctx context.Context, t *features.Table, id common.ModelID) ([]Prediction, error) {
	if r == nil {
		return nil, fmt.Errorf("runner is nil")
	}

	start := time.Now()
	model := id.String()
	preds, err := r.predict(ctx, t, id)

	if r.metrics != nil {
		r.metrics.RunLatencyObserve(model, time.Since(start).Seconds())
		if err != nil {
			r.metrics.RunFailuresInc(model)
		} else {
			r.metrics.RunsInc(model)
			r.metrics.RowsAdd(model, len(preds))
		}
	}
	if err != nil {
		log.Error().Err(err).Str("model", model).Int("rows", t.Len()).Msg("prediction run failed")
		return nil, err
	}

	churned := 0
	for _, p := range preds {
		churned += p.Label
	}
	log.Info().
		Str("model", model).
		Int("rows", len(preds)).
		Int("churned", churned).
		Bool("has_probabilities", preds[0].Probability != nil).
		Dur("duration", time.Since(start)).
		Msg("prediction run completed")

	return preds, nil
}

func (r *Runner) predict(ctx context.Context, t *features.Table, id common.ModelID) ([]Prediction, error) {
	if !id.Valid() {
		return nil, &ConfigurationError{ModelID: id, Op: "lookup", Err: fmt.Errorf("unknown model identifier")}
	}
	if t == nil {
		return nil, &InputError{Reason: "no table supplied"}
	}
	if t.Len() == 0 {
		return nil, &InputError{Reason: "table has no rows"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := r.source.Schema(id)
	if err != nil {
		return nil, err
	}
	clf, err := r.source.Classifier(id)
	if err != nil {
		return nil, err
	}

	raw, err := features.Build(t, id)
	if err != nil {
		return nil, &ConfigurationError{ModelID: id, Op: "build features", Err: err}
	}
	X := features.Align(raw, schema).Rows

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels, err := clf.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("predict labels: %w", err)
	}
	if len(labels) != len(X) {
		return nil, fmt.Errorf("classifier returned %d labels for %d rows", len(labels), len(X))
	}

	for i, label := range labels {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("row %d: classifier returned non-binary label %d", i, label)
		}
	}

	probs := r.churnProbabilities(clf, X, id)

	preds := make([]Prediction, len(X))
	for i, label := range labels {
		preds[i] = Prediction{
			CustomerID:   t.Text(i, common.ColCustomerID),
			CustomerName: t.Text(i, common.ColCustomerName),
			Label:        label,
		}
		if probs != nil {
			p := probs[i]
			preds[i].Probability = &p
		}
	}
	return preds, nil
}

// churnProbabilities returns the probability of class 1 per row, or nil when the
// classifier cannot estimate probabilities for this run.
func (r *Runner) churnProbabilities(clf Classifier, X [][]float64, id common.ModelID) []float64 {
	pe, ok := clf.(ProbabilityEstimator)
	if !ok {
		return nil
	}

	probs, err := estimate(pe, X)
	if err != nil {
		log.Warn().Err(err).Str("model", id.String()).Msg("probability estimation failed, returning labels only")
		if r.metrics != nil {
			r.metrics.ProbabilityFallbackInc(id.String())
		}
		return nil
	}

	if r.metrics != nil {
		for _, p := range probs {
			r.metrics.ChurnScoreObserve(id.String(), p)
		}
	}
	return probs
}

func estimate(pe ProbabilityEstimator, X [][]float64) (out []float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("probability estimation panicked: %v", rec)
		}
	}()

	churnIdx := -1
	for i, c := range pe.Classes() {
		if c == 1 {
			churnIdx = i
		}
	}
	if churnIdx < 0 {
		return nil, fmt.Errorf("classifier has no churn class")
	}

	probas, err := pe.PredictProba(X)
	if err != nil {
		return nil, err
	}
	if len(probas) != len(X) {
		return nil, fmt.Errorf("expected %d probability rows, got %d", len(X), len(probas))
	}

	out = make([]float64, len(X))
	for i, row := range probas {
		if churnIdx >= len(row) {
			return nil, fmt.Errorf("row %d has %d probabilities", i, len(row))
		}
		p := row[churnIdx]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("row %d: invalid probability %v", i, p)
		}
		out[i] = p
	}
	return out, nil
}
