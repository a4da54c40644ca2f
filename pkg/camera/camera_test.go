package camera

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 10
	cfg.SensorRotation = 45
	cfg.Buffers = 0
	assert.Len(t, cfg.Validate(), 3)
}

func TestPreset(t *testing.T) {
	cfg, ok := Preset(Preset720p)
	require.True(t, ok)
	assert.Equal(t, 1280, cfg.Width)

	_, ok = Preset("8k")
	assert.False(t, ok)
}

func TestOrientation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SensorRotation = 90
	cfg.ScreenOrientation = 270
	assert.Equal(t, -180, cfg.Orientation())
}

func TestFrameReleaseOnce(t *testing.T) {
	calls := 0
	f := NewFrame(image.NewRGBA(image.Rect(0, 0, 4, 2)), time.Now(), func() { calls++ })

	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, 16, f.Stride)

	copyOfFrame := f
	f.Release()
	copyOfFrame.Release()
	assert.Equal(t, 1, calls)

	var zero Frame
	zero.Release()
}

func TestFrameImageView(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Pix[0] = 200
	f := NewFrame(img, time.Now(), nil)
	assert.Equal(t, uint8(200), f.Image().Pix[0])
	assert.Equal(t, image.Rect(0, 0, 2, 2), f.Image().Bounds())
}

func TestMockSource_ReleasesReturnBuffers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buffers = 1
	src := NewMockSource(cfg, 5, 0)

	err := src.Run(context.Background(), func(f Frame) { f.Release() })
	require.NoError(t, err)
	assert.Equal(t, int64(5), src.Delivered())
	assert.Equal(t, int64(5), src.Released())
}

func TestMockSource_StallsWithoutRelease(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buffers = 2
	src := NewMockSource(cfg, 10, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := src.Run(ctx, func(f Frame) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(2), src.Delivered())
}
