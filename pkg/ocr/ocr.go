// Package ocr extracts printed text from camera frames.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("ocr: empty image")

// Result is the text found in one image.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-1, 0 when the backend does not report one
}

// Empty reports whether no text was found.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Recognizer runs text recognition. Calls may fail independently.
type Recognizer interface {
	Process(ctx context.Context, img image.Image) (Result, error)
	Close() error
}

// EncodePNG encodes img for backends that take encoded bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Mock implements Recognizer for tests.
type Mock struct {
	// ProcessFunc is called by Process. If nil, Result is returned.
	ProcessFunc func(ctx context.Context, img image.Image) (Result, error)
	Result      Result

	mu    sync.Mutex
	calls int
}

// Process records the call and returns ProcessFunc's result or Result.
func (m *Mock) Process(ctx context.Context, img image.Image) (Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, img)
	}
	return m.Result, nil
}

// Calls returns how many times Process ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close does nothing.
func (m *Mock) Close() error {
	return nil
}

var _ Recognizer = (*Mock)(nil)
