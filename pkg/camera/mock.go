package camera

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
	"time"
)

// MockSource emits solid frames from a fixed buffer pool. Like a real
// device it waits when every buffer is still held by a consumer.
type MockSource struct {
	cfg      Config
	count    int
	interval time.Duration
	fill     color.RGBA

	delivered atomic.Int64
	released  atomic.Int64
}

// NewMockSource creates a source that delivers count frames (0 = until
// cancelled) every interval.
func NewMockSource(cfg Config, count int, interval time.Duration) *MockSource {
	return &MockSource{
		cfg:      cfg,
		count:    count,
		interval: interval,
		fill:     color.RGBA{R: 128, G: 128, B: 128, A: 255},
	}
}

// Run delivers frames to fn.
func (m *MockSource) Run(ctx context.Context, fn func(Frame)) error {
	buffers := m.cfg.Buffers
	if buffers < 1 {
		buffers = 1
	}
	pool := make(chan *image.RGBA, buffers)
	for i := 0; i < buffers; i++ {
		img := image.NewRGBA(image.Rect(0, 0, m.cfg.Width, m.cfg.Height))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = m.fill.R, m.fill.G, m.fill.B, m.fill.A
		}
		pool <- img
	}

	var ticker *time.Ticker
	if m.interval > 0 {
		ticker = time.NewTicker(m.interval)
		defer ticker.Stop()
	}

	for n := 0; m.count == 0 || n < m.count; n++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		var img *image.RGBA
		select {
		case <-ctx.Done():
			return ctx.Err()
		case img = <-pool:
		}

		m.delivered.Add(1)
		fn(NewFrame(img, time.Now(), func() {
			m.released.Add(1)
			pool <- img
		}))
	}
	return nil
}

// Delivered returns how many frames were handed to the consumer.
func (m *MockSource) Delivered() int64 {
	return m.delivered.Load()
}

// Released returns how many frames were released.
func (m *MockSource) Released() int64 {
	return m.released.Load()
}

// Close does nothing.
func (m *MockSource) Close() error {
	return nil
}

var _ Source = (*MockSource)(nil)
