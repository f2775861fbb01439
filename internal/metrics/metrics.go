package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	FetchesServed     int64
	HeadlinesGathered int64
	AnalysesServed    int64
	AnalysesFailed    int64
	QuotaDenials      int64
	ParseFailures     int64

	// Timings
	LastAnalysisTime    time.Duration
	AverageAnalysisTime time.Duration
	TotalAnalysisTime   time.Duration
	AnalysisCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementFetches(headlines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchesServed++
	m.HeadlinesGathered += int64(headlines)
}

func (m *Metrics) IncrementAnalyses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalysesServed++
}

func (m *Metrics) IncrementAnalysesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalysesFailed++
}

func (m *Metrics) IncrementQuotaDenials() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuotaDenials++
}

func (m *Metrics) IncrementParseFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ParseFailures++
}

func (m *Metrics) RecordAnalysisTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastAnalysisTime = duration
	m.TotalAnalysisTime += duration
	m.AnalysisCount++

	if m.AnalysisCount > 0 {
		m.AverageAnalysisTime = m.TotalAnalysisTime / time.Duration(m.AnalysisCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"fetches_served":           m.FetchesServed,
		"headlines_gathered":       m.HeadlinesGathered,
		"analyses_served":          m.AnalysesServed,
		"analyses_failed":          m.AnalysesFailed,
		"quota_denials":            m.QuotaDenials,
		"parse_failures":           m.ParseFailures,
		"last_analysis_time_ms":    m.LastAnalysisTime.Milliseconds(),
		"average_analysis_time_ms": m.AverageAnalysisTime.Milliseconds(),
		"last_run_time":            m.LastRunTime.Format(time.RFC3339),
		"last_error_time":          m.LastErrorTime.Format(time.RFC3339),
		"last_error":               m.LastError,
		"is_healthy":               m.IsHealthy,
	}
}
