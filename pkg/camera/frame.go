package camera

import (
	"context"
	"image"
	"sync"
	"time"
)

// Frame is one captured image in RGBA. Pixels are owned by the source
// until Release is called; after that they must not be read.
type Frame struct {
	Width     int
	Height    int
	Stride    int
	Pix       []uint8
	Timestamp time.Time

	release func()
	once    *sync.Once
}

// NewFrame wraps img. release runs at most once, on the first Release.
func NewFrame(img *image.RGBA, ts time.Time, release func()) Frame {
	b := img.Bounds()
	return Frame{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Stride:    img.Stride,
		Pix:       img.Pix,
		Timestamp: ts,
		release:   release,
		once:      new(sync.Once),
	}
}

// Image returns an RGBA view over the frame pixels. It is only valid
// until Release.
func (f Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Release hands the buffer back to the source. Safe to call more than once.
func (f Frame) Release() {
	if f.once == nil || f.release == nil {
		return
	}
	f.once.Do(f.release)
}

// Source produces frames on a single goroutine.
type Source interface {
	// Run delivers frames to fn until ctx is cancelled or the device fails.
	// fn is called synchronously; the source does not deliver the next
	// frame until fn returns.
	Run(ctx context.Context, fn func(Frame)) error

	// Close releases the device.
	Close() error
}
