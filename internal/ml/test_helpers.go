package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu                   sync.Mutex
	runs                 int
	failures             int
	rows                 int
	latencySum           float64
	probabilityFallbacks int
	churnScores          []float64
}

func (m *MockMetrics) RunsInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func (m *MockMetrics) RunFailuresInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) RowsAdd(model string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows += n
}

func (m *MockMetrics) RunLatencyObserve(model string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) ProbabilityFallbackInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probabilityFallbacks++
}

func (m *MockMetrics) ChurnScoreObserve(model string, p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.churnScores = append(m.churnScores, p)
}
