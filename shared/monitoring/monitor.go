package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Monitor keeps track of the outcome of pipeline runs for health reporting.
type Monitor struct {
	mu             sync.Mutex
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	totalRuns      int
	failedRuns     int
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary
	m.totalRuns++
	m.mu.Unlock()

	log.Printf("✅ Run completed successfully - %s (took %v)", summary, duration)
}

func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	// Partial failures do not flip the health status
	log.Printf("⚠️  PARTIAL FAILURE: %s (Duration: %v)", err.Error(), duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()
	m.totalRuns++
	m.failedRuns++
	m.mu.Unlock()

	log.Printf("🚨 CRITICAL FAILURE: %s (Duration: %v)", err.Error(), duration)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet, assume healthy
	}
	return m.lastRunSuccess
}

// Status is the snapshot served as JSON by the /status endpoint.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastRunTime time.Time `json:"last_run_time"`
	LastSummary string    `json:"last_summary"`
	TotalRuns   int       `json:"total_runs"`
	FailedRuns  int       `json:"failed_runs"`
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		Healthy:     m.lastRunSuccess || m.lastRunTime.IsZero(),
		LastRunTime: m.lastRunTime,
		LastSummary: m.lastSummary,
		TotalRuns:   m.totalRuns,
		FailedRuns:  m.failedRuns,
	}
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}

	state := "✅"
	if !m.lastRunSuccess {
		state = "❌"
	}
	return fmt.Sprintf("%s Last run %s: %s (%d runs, %d failed)",
		state, m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary, m.totalRuns, m.failedRuns)
}
