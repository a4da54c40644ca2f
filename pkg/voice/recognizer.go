package voice

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Common errors returned by recognizers.
var (
	ErrClosed       = errors.New("voice: recognizer closed")
	ErrNotConnected = errors.New("voice: recognizer not connected")
	ErrDisabled     = errors.New("voice: voice commands disabled")
)

// Recognizer produces recognized utterances.
type Recognizer interface {
	// Listen blocks until one utterance is recognized and returns its
	// alternative transcriptions, best first. It returns ErrClosed once the
	// recognizer can produce nothing more.
	Listen(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// NewRecognizer creates the recognizer selected by cfg.Source.
func NewRecognizer(cfg Config, logger *slog.Logger) (Recognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Source {
	case SourceStdin:
		return NewLineRecognizer(os.Stdin), nil
	case SourceWebSocket:
		return NewWebSocketRecognizer(cfg, logger), nil
	default:
		return nil, ErrDisabled
	}
}

// LineRecognizer treats each non-empty line of a reader as one utterance.
// A line may carry several alternatives separated by "|".
type LineRecognizer struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
}

// NewLineRecognizer starts reading r in the background.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	l := &LineRecognizer{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go l.read(r)
	return l
}

func (l *LineRecognizer) read(r io.Reader) {
	defer close(l.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case l.lines <- line:
		case <-l.done:
			return
		}
	}
}

// Listen returns the alternatives on the next line.
func (l *LineRecognizer) Listen(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrClosed
	case line, ok := <-l.lines:
		if !ok {
			return nil, ErrClosed
		}
		parts := strings.Split(line, "|")
		alts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				alts = append(alts, p)
			}
		}
		return alts, nil
	}
}

// Close stops delivering lines. The reader goroutine exits on its next line.
func (l *LineRecognizer) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// MockRecognizer implements Recognizer for testing.
type MockRecognizer struct {
	// ListenFunc is called by Listen when set.
	ListenFunc func(ctx context.Context) ([]string, error)

	mu      sync.Mutex
	results []mockResult
	calls   int
	closed  bool
}

type mockResult struct {
	alts []string
	err  error
}

// NewMockRecognizer creates a mock that returns each result in turn.
func NewMockRecognizer(results ...[]string) *MockRecognizer {
	m := &MockRecognizer{}
	for _, r := range results {
		m.results = append(m.results, mockResult{alts: r})
	}
	return m
}

// PushResult queues a recognized utterance.
func (m *MockRecognizer) PushResult(alts ...string) *MockRecognizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, mockResult{alts: alts})
	return m
}

// PushError queues a recognizer error.
func (m *MockRecognizer) PushError(err error) *MockRecognizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, mockResult{err: err})
	return m
}

// Listen returns the next queued result, or ErrClosed when the queue is empty.
func (m *MockRecognizer) Listen(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.calls++
	fn := m.ListenFunc
	if fn == nil && len(m.results) > 0 {
		r := m.results[0]
		m.results = m.results[1:]
		m.mu.Unlock()
		return r.alts, r.err
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil, ErrClosed
}

// Calls returns how many times Listen ran.
func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the mock closed.
func (m *MockRecognizer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockRecognizer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify implementations at compile time.
var (
	_ Recognizer = (*LineRecognizer)(nil)
	_ Recognizer = (*MockRecognizer)(nil)
	_ Recognizer = (*WebSocketRecognizer)(nil)
)
