package voice

import (
	"sync"
	"time"
)

// Metrics counts listener activity.
type Metrics struct {
	Sessions int `json:"sessions"` // Listen calls started
	Results  int `json:"results"`  // utterances recognized
	Commands int `json:"commands"` // utterances that matched a command
	Errors   int `json:"errors"`   // recognizer errors

	LastCommand     Command       `json:"last_command"`
	LastCommandTime time.Time     `json:"last_command_time"`
	LastListen      time.Duration `json:"last_listen"`    // how long the last successful Listen blocked
	AverageListen   time.Duration `json:"average_listen"` // mean over the last 100 results
}

// MetricsCollector collects listener metrics.
// It is goroutine-safe.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
	started time.Time
	history []time.Duration // recent listen durations for averaging

	onUpdate func(Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]time.Duration, 0, 100),
	}
}

// OnUpdate sets a callback that fires whenever a command is recorded.
func (m *MetricsCollector) OnUpdate(fn func(Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// MarkListenStart records the start of a Listen call.
func (m *MetricsCollector) MarkListenStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Sessions++
	m.started = time.Now()
}

// MarkResult records a recognized utterance and the command it mapped to.
func (m *MetricsCollector) MarkResult(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.Results++
	if !m.started.IsZero() {
		m.current.LastListen = time.Since(m.started)
		m.history = append(m.history, m.current.LastListen)
		if len(m.history) > 100 {
			m.history = m.history[1:]
		}
	}
	if cmd != CommandNone {
		m.current.Commands++
		m.current.LastCommand = cmd
		m.current.LastCommandTime = time.Now()
		m.notify()
	}
}

// MarkError records a recognizer error.
func (m *MetricsCollector) MarkError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Errors++
}

// Current returns the current metrics snapshot.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current
	snap.AverageListen = m.averageListen()
	return snap
}

// averageListen returns the mean Listen duration over recent results.
// Must be called with mutex held.
func (m *MetricsCollector) averageListen() time.Duration {
	if len(m.history) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.history {
		sum += d
	}
	return sum / time.Duration(len(m.history))
}

// notify calls the update callback if set.
// Must be called with mutex held.
func (m *MetricsCollector) notify() {
	if m.onUpdate != nil {
		metrics := m.current
		metrics.AverageListen = m.averageListen()
		go m.onUpdate(metrics)
	}
}
