package yolo

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-visionaid/pkg/detection"
)

func TestNew_InvalidPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	_, err := New(cfg, nil)
	if !errors.Is(err, detection.ErrModelNotFound) {
		t.Errorf("New: got %v, want ErrModelNotFound", err)
	}
}

func TestNew_LoadsModel(t *testing.T) {
	path := findModelPath()
	if path == "" {
		t.Skip("YOLO model not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.ModelPath = path
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()
}

func TestDecode(t *testing.T) {
	// A [1, 7, 2] output viewed as 7 attribute rows by 2 candidates:
	// cx, cy, w, h then 3 class scores.
	attrs, n := 7, 2
	data := make([]float32, attrs*n)
	set := func(attr, cand int, v float32) { data[attr*n+cand] = v }

	// Candidate 0: centered box, class 2 strong.
	set(0, 0, 100)
	set(1, 0, 100)
	set(2, 0, 40)
	set(3, 0, 20)
	set(6, 0, 0.9)

	// Candidate 1: below threshold.
	set(4, 1, 0.1)

	cfg := DefaultConfig()
	got := decode(data, attrs, n, cfg, 0.5, 0.5)
	if len(got) != 1 {
		t.Fatalf("decode: got %d candidates, want 1", len(got))
	}
	if got[0].classID != 2 {
		t.Errorf("classID = %d, want 2", got[0].classID)
	}
	want := image.Rect(40, 45, 60, 55)
	if got[0].box != want {
		t.Errorf("box = %v, want %v", got[0].box, want)
	}
}

func TestDecode_AttributeMajorLayout(t *testing.T) {
	// Three candidates; only the last has a passing score. Reading the
	// buffer candidate-major would pick up the wrong box values.
	attrs, n := 6, 3
	data := []float32{
		1, 2, 300,   // cx
		4, 5, 200,   // cy
		7, 8, 60,    // w
		10, 11, 40,  // h
		0, 0, 0.2,   // class 0
		0, 0.1, 0.8, // class 1
	}
	got := decode(data, attrs, n, DefaultConfig(), 1, 1)
	if len(got) != 1 {
		t.Fatalf("decode: got %d candidates, want 1", len(got))
	}
	if got[0].classID != 1 || got[0].score != 0.8 {
		t.Errorf("class/score = %d/%v, want 1/0.8", got[0].classID, got[0].score)
	}
	if want := image.Rect(270, 180, 330, 220); got[0].box != want {
		t.Errorf("box = %v, want %v", got[0].box, want)
	}
}

func TestDecode_ShortBuffer(t *testing.T) {
	if got := decode(make([]float32, 3), 7, 2, DefaultConfig(), 1, 1); got != nil {
		t.Errorf("decode: got %v, want nil", got)
	}
}

func TestFromDetectionConfig(t *testing.T) {
	cfg := FromDetectionConfig(detection.Config{ModelPath: "m.onnx", Accelerated: true, NumThreads: 3})
	if cfg.ModelPath != "m.onnx" || !cfg.Accelerated || cfg.NumThreads != 3 {
		t.Errorf("FromDetectionConfig: got %+v", cfg)
	}
	if cfg.InputWidth != 640 {
		t.Errorf("InputWidth = %d, want 640", cfg.InputWidth)
	}
}

func findModelPath() string {
	candidates := []string{
		"models/yolov8n.onnx",
		"../../../models/yolov8n.onnx",
		filepath.Join(os.Getenv("HOME"), ".visionaid", "models", "yolov8n.onnx"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
