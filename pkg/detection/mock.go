package detection

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// Mock implements Detector for testing.
type Mock struct {
	// RecognizeFunc is called when Recognize is invoked.
	// If nil, Recognize returns Results.
	RecognizeFunc func(ctx context.Context, img image.Image) ([]Detection, error)

	// Results is returned when RecognizeFunc is nil.
	Results []Detection

	calls   atomic.Int64
	mu      sync.Mutex
	accel   []bool
	threads []int
	closed  bool
}

// NewMock creates a mock that always returns results.
func NewMock(results ...Detection) *Mock {
	return &Mock{Results: results}
}

// Recognize calls RecognizeFunc and records the call.
func (m *Mock) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	m.calls.Add(1)
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, img)
	}
	out := make([]Detection, len(m.Results))
	copy(out, m.Results)
	return out, nil
}

// Calls returns how many times Recognize was invoked.
func (m *Mock) Calls() int {
	return int(m.calls.Load())
}

// SetAccelerated records the requested setting.
func (m *Mock) SetAccelerated(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accel = append(m.accel, enabled)
}

// SetNumThreads records the requested thread count.
func (m *Mock) SetNumThreads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads = append(m.threads, n)
}

// Settings returns the recorded configuration calls.
func (m *Mock) Settings() (accel []bool, threads []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.accel...), append([]int(nil), m.threads...)
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Detector at compile time.
var (
	_ Detector     = (*Mock)(nil)
	_ Configurable = (*Mock)(nil)
)
