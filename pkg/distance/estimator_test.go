package distance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_UnknownLabelUsesDefault(t *testing.T) {
	e := NewEstimator(nil)

	for _, label := range []string{"spaceship", "", "unicorn"} {
		got := e.Estimate(80, 40, label, 640)
		want := e.EstimateWithWidth(80, 40, DefaultWidth, 640)
		assert.Equal(t, want, got, "label %q", label)
	}
}

func TestEstimate_SwapDimensions(t *testing.T) {
	e := NewEstimator(nil)
	assert.Equal(t, e.Estimate(10, 20, "person", 640), e.Estimate(20, 10, "person", 640))
}

func TestEstimate_ZeroSize(t *testing.T) {
	e := NewEstimator(nil)

	tests := []struct {
		label   string
		preview int
	}{
		{"car", 640},
		{"person", 1920},
		{"unknown", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, 0.0, e.Estimate(0, 0, tc.label, tc.preview))
	}
}

func TestEstimate_Car(t *testing.T) {
	e := NewEstimator(nil)

	// 1.8 * (640 * 4.15 / 6.17) / 100
	got := e.Estimate(100, 50, "car", 640)
	assert.InDelta(t, 7.75, got, 0.01)
}

func TestEstimate_CaseInsensitive(t *testing.T) {
	e := NewEstimator(nil)
	assert.Equal(t, e.Estimate(100, 50, "car", 640), e.Estimate(100, 50, "CAR", 640))
	assert.Equal(t, e.Estimate(30, 90, "traffic light", 640), e.Estimate(30, 90, " Traffic Light ", 640))
}

func TestEstimate_RoundsToTwoDecimals(t *testing.T) {
	e := NewEstimator(nil)
	got := e.Estimate(37, 11, "bottle", 640)
	assert.Equal(t, got, float64(int64(got*100+0.5))/100)
}

func TestWithOptics(t *testing.T) {
	e := NewEstimator(nil, WithOptics(1, 1))
	assert.Equal(t, 640.0, e.FocalLengthPixels(640))
	assert.Equal(t, 3.2, e.Estimate(100, 10, "person", 640))
}

func TestReferenceTable(t *testing.T) {
	tbl := DefaultReferenceTable()

	w, ok := tbl.Lookup("Car")
	assert.True(t, ok)
	assert.Equal(t, 1.8, w)

	_, ok = tbl.Lookup("spaceship")
	assert.False(t, ok)
	assert.Equal(t, DefaultWidth, tbl.Width("spaceship"))
	assert.Greater(t, tbl.Len(), 70)

	custom := NewReferenceTable(map[string]float64{" Scooter ": 0.6})
	w, ok = custom.Lookup("SCOOTER")
	assert.True(t, ok, "override keys and lookups share detection label normalization")
	assert.Equal(t, 0.6, w)
}

func TestLoadReferenceTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widths.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: 0.4\nwidths:\n  Car: 1.9\n  scooter: 0.6\n"), 0o644))

	tbl, err := LoadReferenceTable(path)
	require.NoError(t, err)

	assert.Equal(t, 1.9, tbl.Width("car"))
	assert.Equal(t, 0.6, tbl.Width("SCOOTER"))
	assert.Equal(t, 0.5, tbl.Width("person"))
	assert.Equal(t, 0.4, tbl.Width("spaceship"))
	assert.Equal(t, 0.4, tbl.Default())
}

func TestLoadReferenceTable_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadReferenceTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("widths:\n  car: -1\n"), 0o644))
	_, err = LoadReferenceTable(bad)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("widths: [1, 2"), 0o644))
	_, err = LoadReferenceTable(garbage)
	assert.Error(t, err)
}

func TestBuiltInTableNotMutatedByOverrides(t *testing.T) {
	_ = NewReferenceTable(map[string]float64{"car": 9})
	assert.Equal(t, 1.8, DefaultReferenceTable().Width("car"))
}
