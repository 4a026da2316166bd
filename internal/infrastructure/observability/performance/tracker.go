package performance

import (
	"strings"
	"sync"
	"time"
)

// AlertSeverity grades a slow operation.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// PerformanceAlert records an operation that crossed a threshold.
type PerformanceAlert struct {
	Operation string        `json:"operation"`
	TenantID  string        `json:"tenantId"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers   int  `json:"maxMarkers"`
	MaxAlerts    int  `json:"maxAlerts"`
	EnableAlerts bool `json:"enableAlerts"`
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:   2000,
		MaxAlerts:    200,
		EnableAlerts: true,
	}
}

// AlertThresholds are keyed by operation prefix ("duplicate", "media", ...).
type AlertThresholds struct {
	Warning  time.Duration
	Critical time.Duration
	ByPrefix map[string]time.Duration
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		Warning:  2 * time.Second,
		Critical: 10 * time.Second,
		ByPrefix: map[string]time.Duration{
			"auth":     200 * time.Millisecond,
			"slug":     100 * time.Millisecond,
			"taxonomy": 500 * time.Millisecond,
			"meta":     500 * time.Millisecond,
			"media":    3 * time.Second,
		},
	}
}

// Observer receives every completed marker, e.g. to feed histograms.
type Observer func(m *Marker)

// Tracker manages performance markers and keeps a bounded history
type Tracker struct {
	completed  []*Marker
	active     map[*Marker]struct{}
	alerts     []*PerformanceAlert
	thresholds *AlertThresholds
	observers  []Observer
	mu         sync.RWMutex
	started    time.Time
	config     *TrackerConfig
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		active:     make(map[*Marker]struct{}),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}
}

// Observe registers fn to be called for each completed marker.
func (t *Tracker) Observe(fn Observer) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	marker := &Marker{
		Operation: operation,
		TenantID:  tenantID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true,
		tracker:   t,
	}

	t.mu.Lock()
	t.active[marker] = struct{}{}
	t.mu.Unlock()

	return marker
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	delete(t.active, m)
	t.completed = append(t.completed, m)
	if len(t.completed) > t.config.MaxMarkers {
		t.completed = t.completed[len(t.completed)-t.config.MaxMarkers:]
	}
	if t.config.EnableAlerts {
		if alert := t.evaluate(m); alert != nil {
			t.alerts = append(t.alerts, alert)
			if len(t.alerts) > t.config.MaxAlerts {
				t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
			}
		}
	}
	observers := append([]Observer(nil), t.observers...)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(m)
	}
}

func (t *Tracker) evaluate(m *Marker) *PerformanceAlert {
	severity := AlertSeverity("")
	message := ""

	switch {
	case m.Duration > t.thresholds.Critical:
		severity, message = AlertCritical, "Operation exceeded critical response time threshold"
	case m.Duration > t.thresholds.Warning:
		severity, message = AlertWarning, "Operation exceeded slow response time threshold"
	default:
		prefix, _, _ := strings.Cut(m.Operation, ":")
		if limit, ok := t.thresholds.ByPrefix[prefix]; ok && m.Duration > limit {
			severity, message = AlertWarning, prefix+" operation exceeded threshold"
		}
	}
	if severity == "" {
		return nil
	}

	return &PerformanceAlert{
		Operation: m.Operation,
		TenantID:  m.TenantID,
		Severity:  severity,
		Message:   message,
		Duration:  m.Duration,
		Timestamp: time.Now(),
	}
}

// GetAlerts returns recorded alerts, optionally filtered by tenant.
func (t *Tracker) GetAlerts(tenantID string) []*PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*PerformanceAlert
	for _, a := range t.alerts {
		if tenantID == "" || a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out
}

// GetRecentMetrics returns completed markers for a tenant within a window.
func (t *Tracker) GetRecentMetrics(tenantID string, within time.Duration) []*Marker {
	cutoff := time.Now().Add(-within)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Marker
	for _, m := range t.completed {
		if (tenantID == "" || m.TenantID == tenantID) && m.EndTime.After(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// GetOverallStats summarises tracked activity for the health endpoint.
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	failed := 0
	var total time.Duration
	for _, m := range t.completed {
		if !m.Success {
			failed++
		}
		total += m.Duration
	}

	avg := time.Duration(0)
	if len(t.completed) > 0 {
		avg = total / time.Duration(len(t.completed))
	}

	return map[string]any{
		"uptime":          time.Since(t.started).String(),
		"completed":       len(t.completed),
		"failed":          failed,
		"active":          len(t.active),
		"alerts":          len(t.alerts),
		"averageDuration": avg.String(),
		"trackingStarted": t.started.Format(time.RFC3339),
	}
}
