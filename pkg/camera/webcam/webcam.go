// Package webcam captures frames from a local camera or video file through
// OpenCV.
package webcam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-visionaid/pkg/camera"
)

// ErrNotOpened is returned when the device cannot be opened.
var ErrNotOpened = errors.New("webcam: device not opened")

// Source reads frames with gocv.VideoCapture.
type Source struct {
	cfg     camera.Config
	capture *gocv.VideoCapture
	logger  *slog.Logger
}

// Open opens the configured device. A numeric Device is a camera index;
// anything else is passed to OpenCV as a file or stream URL.
func Open(cfg camera.Config, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var device interface{} = cfg.Device
	if id, err := strconv.Atoi(cfg.Device); err == nil {
		device = id
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOpened, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, ErrNotOpened
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	s := &Source{
		cfg:     cfg,
		capture: capture,
		logger:  logger.With("component", "camera.webcam"),
	}
	s.logger.Info("camera opened",
		"device", cfg.Device,
		"width", int(capture.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	return s, nil
}

// Run delivers frames to fn until ctx is cancelled. When all buffers are
// held by the consumer, capture waits for a release.
func (s *Source) Run(ctx context.Context, fn func(camera.Frame)) error {
	buffers := s.cfg.Buffers
	if buffers < 1 {
		buffers = 1
	}
	pool := make(chan *image.RGBA, buffers)
	for i := 0; i < buffers; i++ {
		pool <- nil
	}

	mat := gocv.NewMat()
	defer mat.Close()
	rgba := gocv.NewMat()
	defer rgba.Close()

	misses := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if ok := s.capture.Read(&mat); !ok || mat.Empty() {
			misses++
			if misses > 30 {
				return fmt.Errorf("webcam: no frames from device %s", s.cfg.Device)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		misses = 0
		ts := time.Now()

		var buf *image.RGBA
		select {
		case <-ctx.Done():
			return ctx.Err()
		case buf = <-pool:
		}

		gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA)
		buf = fill(buf, rgba.Cols(), rgba.Rows(), rgba.ToBytes())

		fn(camera.NewFrame(buf, ts, func() { pool <- buf }))
	}
}

// Close releases the device.
func (s *Source) Close() error {
	return s.capture.Close()
}

// fill copies packed RGBA bytes into buf, reallocating when the size changed.
func fill(buf *image.RGBA, w, h int, data []byte) *image.RGBA {
	if buf == nil || buf.Rect.Dx() != w || buf.Rect.Dy() != h {
		buf = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	copy(buf.Pix, data)
	return buf
}

var _ camera.Source = (*Source)(nil)
