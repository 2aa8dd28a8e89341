// Package metrics provides Prometheus metrics collection for the churn prediction
// service. Run metrics are labeled by model identifier (RF, DT, LR) and exposed via
// the Prometheus metrics endpoint of churnd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const modelLabel = "model"

// Metrics holds all Prometheus metrics of the prediction service.
type Metrics struct {
	// Run metrics
	RunsTotal            *prometheus.CounterVec   // Completed prediction runs
	RunFailures          *prometheus.CounterVec   // Failed prediction runs
	RowsPredicted        *prometheus.CounterVec   // Customers classified
	RunLatency           *prometheus.HistogramVec // End-to-end run latency in seconds
	ProbabilityFallbacks *prometheus.CounterVec   // Runs returned without probabilities
	ChurnScores          *prometheus.HistogramVec // Distribution of churn probabilities

	// Persistence metrics
	RunsStored   prometheus.Counter // Runs written to the store
	StoreErrors  prometheus.Counter // Failed store writes
	ModelsLoaded prometheus.Gauge   // Models whose artifacts loaded at startup

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_runs_total",
			Help: "Total number of completed prediction runs",
		}, []string{modelLabel}),
		RunFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_run_failures_total",
			Help: "Total number of failed prediction runs",
		}, []string{modelLabel}),
		RowsPredicted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_rows_predicted_total",
			Help: "Total number of customers classified",
		}, []string{modelLabel}),
		RunLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "churn_run_latency_seconds",
			Help:    "Prediction run latency in seconds (end-to-end)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{modelLabel}),
		ProbabilityFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_probability_fallbacks_total",
			Help: "Total number of runs returned without churn probabilities",
		}, []string{modelLabel}),
		ChurnScores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "churn_probability",
			Help:    "Distribution of predicted churn probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{modelLabel}),
		RunsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_runs_stored_total",
			Help: "Total number of runs written to the store",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_store_errors_total",
			Help: "Total number of failed store writes",
		}),
		ModelsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_models_loaded",
			Help: "Number of models whose artifacts are loaded",
		}),
		gatherer: gatherer,
	}
}

// GetFailureRate returns failed runs over all attempted runs across models, or 0 if
// no runs have been recorded.
func (m *Metrics) GetFailureRate() float64 {
	var runs, failures float64

	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "churn_runs_total":
			for _, metric := range mf.Metric {
				runs += metric.GetCounter().GetValue()
			}
		case "churn_run_failures_total":
			for _, metric := range mf.Metric {
				failures += metric.GetCounter().GetValue()
			}
		}
	}

	if runs+failures == 0 {
		return 0
	}
	return failures / (runs + failures)
}
