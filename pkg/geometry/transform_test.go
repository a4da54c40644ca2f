package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_RoundTrip(t *testing.T) {
	points := [][2]float64{
		{0, 0}, {640, 480}, {320, 240}, {12.5, 401.25}, {639, 1}, {100, 50},
	}

	for _, rot := range []int{0, 90, 180, 270} {
		for _, keep := range []bool{false, true} {
			fwd, err := Compute(640, 480, 300, 300, rot, keep)
			require.NoError(t, err)
			inv, err := fwd.Invert()
			require.NoError(t, err)

			for _, p := range points {
				x, y := fwd.Apply(p[0], p[1])
				bx, by := inv.Apply(x, y)
				assert.InDelta(t, p[0], bx, 1e-3, "rot=%d keep=%v x", rot, keep)
				assert.InDelta(t, p[1], by, 1e-3, "rot=%d keep=%v y", rot, keep)
			}
		}
	}
}

func TestCompute_NoRotationScalesAxesIndependently(t *testing.T) {
	fwd, err := Compute(640, 480, 300, 300, 0, false)
	require.NoError(t, err)

	x, y := fwd.Apply(640, 480)
	assert.InDelta(t, 300, x, 1e-9)
	assert.InDelta(t, 300, y, 1e-9)

	x, y = fwd.Apply(320, 240)
	assert.InDelta(t, 150, x, 1e-9)
	assert.InDelta(t, 150, y, 1e-9)
}

func TestCompute_MaintainAspectUsesLargerScale(t *testing.T) {
	fwd, err := Compute(640, 480, 300, 300, 0, true)
	require.NoError(t, err)

	// max(300/640, 300/480) = 0.625
	x, y := fwd.Apply(640, 480)
	assert.InDelta(t, 400, x, 1e-9)
	assert.InDelta(t, 300, y, 1e-9)
}

func TestCompute_QuarterTurnFillsCrop(t *testing.T) {
	fwd, err := Compute(640, 480, 300, 300, 90, false)
	require.NoError(t, err)

	full := fwd.MapRect(NewRect(0, 0, 640, 480))
	assert.InDelta(t, 0, full.Left, 1e-9)
	assert.InDelta(t, 0, full.Top, 1e-9)
	assert.InDelta(t, 300, full.Right, 1e-9)
	assert.InDelta(t, 300, full.Bottom, 1e-9)

	// Clockwise quarter turn: the source's bottom-left corner lands top-left.
	x, y := fwd.Apply(0, 480)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestCompute_Errors(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH int
		rotation               int
	}{
		{"zero source", 0, 480, 300, 300, 0},
		{"negative destination", 640, 480, -1, 300, 0},
		{"odd rotation", 640, 480, 300, 300, 45},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.srcW, tc.srcH, tc.dstW, tc.dstH, tc.rotation, false)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0}, {90, 90}, {-90, 270}, {360, 0}, {450, 90}, {-180, 180},
	}
	for _, tc := range tests {
		got, err := NormalizeRotation(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "NormalizeRotation(%d)", tc.in)
	}
}

func TestInvert_Singular(t *testing.T) {
	_, err := Scale(0, 1).Invert()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestMapRect_CropToFrame(t *testing.T) {
	fwd, err := Compute(640, 480, 300, 300, 0, false)
	require.NoError(t, err)
	inv, err := fwd.Invert()
	require.NoError(t, err)

	r := inv.MapRect(NewRect(0, 0, 150, 150))
	assert.InDelta(t, 320, r.Width(), 1e-9)
	assert.InDelta(t, 240, r.Height(), 1e-9)
}

func TestAff3MatchesApply(t *testing.T) {
	fwd, err := Compute(640, 480, 300, 300, 270, false)
	require.NoError(t, err)

	a := fwd.Aff3()
	x, y := fwd.Apply(10, 20)
	assert.InDelta(t, x, a[0]*10+a[1]*20+a[2], 1e-12)
	assert.InDelta(t, y, a[3]*10+a[4]*20+a[5], 1e-12)
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want float64
	}{
		{"identical", NewRect(0, 0, 10, 10), NewRect(0, 0, 10, 10), 1},
		{"disjoint", NewRect(0, 0, 10, 10), NewRect(20, 20, 10, 10), 0},
		{"half overlap", NewRect(0, 0, 10, 10), NewRect(5, 0, 10, 10), 50.0 / 150.0},
		{"empty", Rect{}, NewRect(0, 0, 10, 10), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, IoU(tc.a, tc.b), 1e-9)
		})
	}
}

func TestBlendAndCenterDistance(t *testing.T) {
	b := Blend(NewRect(0, 0, 10, 10), NewRect(10, 10, 10, 10), 0.5)
	assert.Equal(t, NewRect(5, 5, 10, 10), b)
	assert.InDelta(t, math.Sqrt(200), CenterDistance(NewRect(0, 0, 10, 10), NewRect(10, 10, 10, 10)), 1e-9)
}
