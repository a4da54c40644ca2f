// Package yolo runs YOLOv8 ONNX models through OpenCV's DNN module.
package yolo

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-visionaid/pkg/detection"
	"github.com/teslashibe/go-visionaid/pkg/geometry"
)

// Config holds YOLO detector configuration
type Config struct {
	ModelPath        string
	ConfidenceThresh float32 // Pre-NMS candidate threshold
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	Accelerated      bool
	NumThreads       int
}

// DefaultConfig returns production defaults for YOLOv8n
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.25,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// FromDetectionConfig adapts the generic detector config.
func FromDetectionConfig(cfg detection.Config) Config {
	out := DefaultConfig()
	if cfg.ModelPath != "" {
		out.ModelPath = cfg.ModelPath
	}
	out.Accelerated = cfg.Accelerated
	out.NumThreads = cfg.NumThreads
	return out
}

// Detector uses YOLOv8 for general object detection
type Detector struct {
	net       gocv.Net
	config    Config
	mu        sync.Mutex
	inputSize image.Point
	logger    *slog.Logger
}

// New loads the model. A missing or unreadable model is returned as an error;
// callers treat that as fatal since nothing can be detected without it.
func New(cfg Config, logger *slog.Logger) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelLoad, cfg.ModelPath)
	}

	d := &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    logger.With("component", "detection.yolo"),
	}
	d.applyTarget()

	d.logger.Info("model loaded",
		"path", cfg.ModelPath,
		"input", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight),
		"accelerated", cfg.Accelerated,
	)
	return d, nil
}

// Recognize finds objects in img. Boxes are returned in img pixel coordinates.
func (d *Detector) Recognize(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, detection.ErrEmptyImage
	}

	imgW := float32(mat.Cols())
	imgH := float32(mat.Rows())

	blob := gocv.BlobFromImage(mat, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// YOLOv8 output is a 3-D blob [1, 4+classes, N]: for each of the N
	// candidates cx, cy, w, h then one score per class, attribute-major.
	// Rows and Cols are -1 on a 3-D Mat, so view it as (4+classes) x N.
	dims := output.Size()
	if len(dims) != 3 || dims[0] != 1 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	pred := output.Reshape(1, dims[1])
	defer pred.Close()

	data, err := pred.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	cands := decode(data, pred.Rows(), pred.Cols(), d.config, imgW/float32(d.config.InputWidth), imgH/float32(d.config.InputHeight))
	if len(cands) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.box
		scores[i] = c.score
	}
	indices := gocv.NMSBoxes(boxes, scores, d.config.ConfidenceThresh, d.config.NMSThresh)

	out := make([]detection.Detection, 0, len(indices))
	for _, idx := range indices {
		c := cands[idx]
		out = append(out, detection.Detection{
			Label:      detection.ClassName(c.classID),
			Confidence: float64(c.score),
			Box: geometry.Rect{
				Left:   float64(c.box.Min.X),
				Top:    float64(c.box.Min.Y),
				Right:  float64(c.box.Max.X),
				Bottom: float64(c.box.Max.Y),
			},
		})
	}

	d.logger.Debug("inference complete", "candidates", len(cands), "kept", len(out))
	return out, nil
}

// SetAccelerated switches between the CUDA target and the CPU target.
func (d *Detector) SetAccelerated(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.Accelerated = enabled
	d.applyTarget()
	d.logger.Info("acceleration changed", "enabled", enabled)
}

// SetNumThreads records the requested thread count. OpenCV sizes its own
// worker pool, so the value is informational for this backend.
func (d *Detector) SetNumThreads(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.NumThreads = n
	d.logger.Info("thread count changed", "threads", n)
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// applyTarget must be called with mu held.
func (d *Detector) applyTarget() {
	if d.config.Accelerated {
		d.net.SetPreferableBackend(gocv.NetBackendCUDA)
		d.net.SetPreferableTarget(gocv.NetTargetCUDA)
		return
	}
	d.net.SetPreferableBackend(gocv.NetBackendDefault)
	d.net.SetPreferableTarget(gocv.NetTargetCPU)
}

var (
	_ detection.Detector     = (*Detector)(nil)
	_ detection.Configurable = (*Detector)(nil)
)
