package monitoring

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMonitorHealthyBeforeAnyRun(t *testing.T) {
	m := NewMonitor()

	if !m.IsHealthy() {
		t.Error("IsHealthy() = false before any run")
	}
	if m.GetStatusSummary() != "No runs yet" {
		t.Errorf("GetStatusSummary() = %q, want No runs yet", m.GetStatusSummary())
	}
}

func TestMonitorRecordSuccess(t *testing.T) {
	m := NewMonitor()

	m.RecordSuccess("processed 2 channels", time.Second)

	if !m.IsHealthy() {
		t.Error("IsHealthy() = false after a successful run")
	}
	summary := m.GetStatusSummary()
	if !strings.Contains(summary, "processed 2 channels") {
		t.Errorf("GetStatusSummary() = %q, missing the run summary", summary)
	}
	if !strings.Contains(summary, "1 runs, 0 failed") {
		t.Errorf("GetStatusSummary() = %q, missing run counters", summary)
	}
}

func TestMonitorRecordCriticalFailure(t *testing.T) {
	m := NewMonitor()

	m.RecordSuccess("ok", time.Second)
	m.RecordCriticalFailure(errors.New("pipeline exploded"), time.Second)

	if m.IsHealthy() {
		t.Error("IsHealthy() = true after a critical failure")
	}
	summary := m.GetStatusSummary()
	if !strings.Contains(summary, "pipeline exploded") {
		t.Errorf("GetStatusSummary() = %q, missing the failure reason", summary)
	}
	if !strings.Contains(summary, "2 runs, 1 failed") {
		t.Errorf("GetStatusSummary() = %q, missing run counters", summary)
	}
}

func TestMonitorPartialFailureKeepsHealth(t *testing.T) {
	m := NewMonitor()

	m.RecordSuccess("ok", time.Second)
	m.RecordPartialFailure(errors.New("one channel failed"), time.Second)

	if !m.IsHealthy() {
		t.Error("IsHealthy() = false after a partial failure")
	}
}

func TestMonitorRecoversAfterSuccess(t *testing.T) {
	m := NewMonitor()

	m.RecordCriticalFailure(errors.New("boom"), time.Second)
	m.RecordSuccess("back to normal", time.Second)

	if !m.IsHealthy() {
		t.Error("IsHealthy() = false after recovery")
	}
}
