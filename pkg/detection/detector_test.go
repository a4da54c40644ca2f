package detection

import (
	"context"
	"testing"

	"github.com/teslashibe/go-visionaid/pkg/geometry"
)

func TestFilter_BoundaryInclusive(t *testing.T) {
	dets := []Detection{
		{Label: "cup", Confidence: 0.54, Box: geometry.NewRect(0, 0, 10, 10)},
		{Label: "car", Confidence: 0.55, Box: geometry.NewRect(0, 0, 10, 10)},
		{Label: "dog", Confidence: 0.9, Box: geometry.NewRect(0, 0, 10, 10)},
	}

	got := Filter(dets, 0.55)
	if len(got) != 2 {
		t.Fatalf("Filter: got %d detections, want 2", len(got))
	}
	if got[0].Label != "car" || got[1].Label != "dog" {
		t.Errorf("Filter: got labels %q, %q", got[0].Label, got[1].Label)
	}
}

func TestFilter_Empty(t *testing.T) {
	if got := Filter(nil, 0.5); len(got) != 0 {
		t.Errorf("Filter(nil): got %d, want 0", len(got))
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Car", "car"},
		{"  Traffic Light ", "traffic light"},
		{"person", "person"},
	}
	for _, tc := range tests {
		if got := NormalizeLabel(tc.in); got != tc.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassName(t *testing.T) {
	if got := ClassName(2); got != "car" {
		t.Errorf("ClassName(2) = %q, want car", got)
	}
	if got := ClassName(-1); got != "unknown" {
		t.Errorf("ClassName(-1) = %q, want unknown", got)
	}
	if got := ClassName(len(COCOClasses)); got != "unknown" {
		t.Errorf("ClassName(out of range) = %q, want unknown", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelPath == "" {
		t.Error("DefaultConfig: ModelPath should not be empty")
	}
	if cfg.Accelerated {
		t.Error("DefaultConfig: Accelerated should be off")
	}
}

func TestMock(t *testing.T) {
	m := NewMock(Detection{Label: "car", Confidence: 0.9})

	got, err := m.Recognize(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Label != "car" {
		t.Errorf("Recognize: got %+v", got)
	}

	// Callers may mutate the returned slice without affecting the mock.
	got[0].Label = "bus"
	again, _ := m.Recognize(context.Background(), nil)
	if again[0].Label != "car" {
		t.Errorf("Recognize: results were aliased")
	}

	if m.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", m.Calls())
	}

	m.SetAccelerated(true)
	m.SetNumThreads(4)
	accel, threads := m.Settings()
	if len(accel) != 1 || !accel[0] || len(threads) != 1 || threads[0] != 4 {
		t.Errorf("Settings() = %v, %v", accel, threads)
	}
}

func TestNearest(t *testing.T) {
	dets := []Ranged{
		{Detection: Detection{Label: "car"}, Distance: 7.75},
		{Detection: Detection{Label: "person"}, Distance: 2.1},
		{Detection: Detection{Label: "dog"}, Distance: 2.1},
	}

	got, ok := Nearest(dets)
	if !ok {
		t.Fatal("Nearest: expected ok")
	}
	if got.Label != "person" {
		t.Errorf("Nearest: got %q, want person", got.Label)
	}

	if _, ok := Nearest(nil); ok {
		t.Error("Nearest(nil): expected !ok")
	}
}
