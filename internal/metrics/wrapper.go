package metrics

// MetricsWrapper adapts Metrics to the runner's metrics interface
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) RunsInc(model string) {
	w.m.RunsTotal.WithLabelValues(model).Inc()
}

func (w *MetricsWrapper) RunFailuresInc(model string) {
	w.m.RunFailures.WithLabelValues(model).Inc()
}

func (w *MetricsWrapper) RowsAdd(model string, n int) {
	w.m.RowsPredicted.WithLabelValues(model).Add(float64(n))
}

func (w *MetricsWrapper) RunLatencyObserve(model string, seconds float64) {
	w.m.RunLatency.WithLabelValues(model).Observe(seconds)
}

func (w *MetricsWrapper) ProbabilityFallbackInc(model string) {
	w.m.ProbabilityFallbacks.WithLabelValues(model).Inc()
}

func (w *MetricsWrapper) ChurnScoreObserve(model string, p float64) {
	w.m.ChurnScores.WithLabelValues(model).Observe(p)
}

// RunStored records the outcome of persisting a run.
func (w *MetricsWrapper) RunStored(err error) {
	if err != nil {
		w.m.StoreErrors.Inc()
		return
	}
	w.m.RunsStored.Inc()
}

// ModelsLoaded sets the number of loaded models.
func (w *MetricsWrapper) ModelsLoaded(n int) {
	w.m.ModelsLoaded.Set(float64(n))
}
