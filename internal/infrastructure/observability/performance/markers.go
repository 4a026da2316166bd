// Package performance provides per-operation timing markers for duplication
// work across tenants.
package performance

import (
	"sync"
	"time"
)

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation string         `json:"operation"` // e.g. "duplicate:cross_tenant", "media:copy"
	TenantID  string         `json:"tenantId"`
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	Completed bool           `json:"completed"`

	mu      sync.Mutex
	tracker *Tracker
}

// Complete marks the operation as finished and reports it to the tracker.
func (m *Marker) Complete() {
	m.mu.Lock()
	if m.Completed {
		m.mu.Unlock()
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true
	m.mu.Unlock()

	if m.tracker != nil {
		m.tracker.record(m)
	}
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.mu.Lock()
	m.Success = success
	m.mu.Unlock()
}

// SetError sets an error message and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.Error = err.Error()
	m.Success = false
	m.mu.Unlock()
}

// AddMetadata adds key-value metadata to the marker
func (m *Marker) AddMetadata(key string, value any) {
	m.mu.Lock()
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
	m.mu.Unlock()
}
