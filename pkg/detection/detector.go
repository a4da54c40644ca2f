// Package detection defines the object detector contract used by the frame
// pipeline, plus the helpers that post-process raw detector output.
package detection

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/teslashibe/go-visionaid/pkg/geometry"
)

// Sentinel errors for detector backends.
var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("detection: model not found")

	// ErrModelLoad is returned when the model cannot be loaded.
	ErrModelLoad = errors.New("detection: model could not be loaded")

	// ErrEmptyImage is returned when the input image has no pixels.
	ErrEmptyImage = errors.New("detection: empty image")
)

// Detection is a single labeled box produced by a detector.
// Box is in the coordinate space of the image passed to the detector
// until the pipeline maps it back to frame coordinates.
type Detection struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"` // 0-1
	Box        geometry.Rect `json:"box"`
}

// Detector is the interface for object detection backends.
// Implementations receive the fixed-size model input and may take longer
// than one camera frame period.
type Detector interface {
	// Recognize finds objects in img.
	Recognize(ctx context.Context, img image.Image) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Configurable is implemented by backends that expose runtime tuning.
type Configurable interface {
	// SetAccelerated switches between the hardware-accelerated delegate
	// and the default CPU path.
	SetAccelerated(enabled bool)

	// SetNumThreads sets the number of inference threads.
	SetNumThreads(n int)
}

// Config holds detector configuration
type Config struct {
	ModelPath   string `json:"model_path" yaml:"model_path"`   // Path to ONNX model
	Accelerated bool   `json:"accelerated" yaml:"accelerated"` // Prefer accelerated backend
	NumThreads  int    `json:"num_threads" yaml:"num_threads"` // Inference threads, 0 = backend default
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ModelPath: "models/yolov8n.onnx",
	}
}

// Filter returns the detections whose confidence is at least min.
// The threshold is inclusive.
func Filter(dets []Detection, min float64) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= min {
			out = append(out, d)
		}
	}
	return out
}

// Ranged is a detection with its estimated distance in meters.
type Ranged struct {
	Detection
	Distance float64 `json:"distance"`
}

// Nearest returns the ranged detection with the smallest distance.
// The first one wins on ties. ok is false for an empty slice.
func Nearest(dets []Ranged) (nearest Ranged, ok bool) {
	for i, d := range dets {
		if i == 0 || d.Distance < nearest.Distance {
			nearest = d
			ok = true
		}
	}
	return nearest, ok
}

// NormalizeLabel lowercases and trims a label for table lookups.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// ClassName returns the COCO label for id, or "unknown".
func ClassName(id int) string {
	if id < 0 || id >= len(COCOClasses) {
		return "unknown"
	}
	return COCOClasses[id]
}
