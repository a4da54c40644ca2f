// Package geometry maps between camera frame coordinates and the fixed-size
// crop fed to the detector.
//
// A Transform is a 2D affine map stored row-major as
//
//	| A B C |
//	| D E F |
//	| 0 0 1 |
//
// so that x' = A*x + B*y + C and y' = D*x + E*y + F. Rotations follow the
// image convention (y grows downward), which makes a positive angle turn
// clockwise on screen.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a transform cannot be inverted.
var ErrSingular = errors.New("geometry: transform is not invertible")

// Transform is an affine map between two pixel coordinate spaces.
type Transform struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, E: 1}
}

// Translate returns a pure translation.
func Translate(dx, dy float64) Transform {
	return Transform{A: 1, C: dx, E: 1, F: dy}
}

// Scale returns a pure axis scale.
func Scale(sx, sy float64) Transform {
	return Transform{A: sx, E: sy}
}

// Rotate returns a rotation by degrees around the origin.
// Multiples of 90 produce exact integer coefficients.
func Rotate(degrees float64) Transform {
	sin, cos := exactSinCos(degrees)
	return Transform{A: cos, B: -sin, D: sin, E: cos}
}

// Compute builds the frame->crop transform.
//
// The source is rotated by rotation degrees about its center, then scaled to
// the destination size. With maintainAspect the larger of the two axis scales
// is used for both axes (the crop is filled and overflow is cut off);
// otherwise each axis is scaled independently. Rotation must be a multiple
// of 90 degrees; it is normalized into {0, 90, 180, 270}.
func Compute(srcW, srcH, dstW, dstH, rotation int, maintainAspect bool) (Transform, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Transform{}, fmt.Errorf("geometry: invalid sizes src=%dx%d dst=%dx%d", srcW, srcH, dstW, dstH)
	}
	rot, err := NormalizeRotation(rotation)
	if err != nil {
		return Transform{}, err
	}

	t := Identity()
	if rot != 0 {
		t = t.Then(Translate(-float64(srcW)/2, -float64(srcH)/2))
		t = t.Then(Rotate(float64(rot)))
	}

	// A quarter turn swaps which source axis lands on the destination X axis.
	inW, inH := srcW, srcH
	if rot == 90 || rot == 270 {
		inW, inH = srcH, srcW
	}

	if inW != dstW || inH != dstH {
		sx := float64(dstW) / float64(inW)
		sy := float64(dstH) / float64(inH)
		if maintainAspect {
			s := math.Max(sx, sy)
			t = t.Then(Scale(s, s))
		} else {
			t = t.Then(Scale(sx, sy))
		}
	}

	if rot != 0 {
		t = t.Then(Translate(float64(dstW)/2, float64(dstH)/2))
	}
	return t, nil
}

// NormalizeRotation folds a multiple of 90 degrees into [0, 360).
func NormalizeRotation(rotation int) (int, error) {
	if rotation%90 != 0 {
		return 0, fmt.Errorf("geometry: rotation %d is not a multiple of 90", rotation)
	}
	rot := rotation % 360
	if rot < 0 {
		rot += 360
	}
	return rot, nil
}

// Then returns the transform that applies t first and next second.
func (t Transform) Then(next Transform) Transform {
	var out mat.Dense
	out.Mul(next.matrix(), t.matrix())
	return fromMatrix(&out)
}

// Invert returns the algebraic inverse of t.
func (t Transform) Invert() (Transform, error) {
	if math.Abs(t.A*t.E-t.B*t.D) < 1e-12 {
		return Transform{}, ErrSingular
	}
	var inv mat.Dense
	if err := inv.Inverse(t.matrix()); err != nil {
		return Transform{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return fromMatrix(&inv), nil
}

// Apply maps a single point.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.A*x + t.B*y + t.C, t.D*x + t.E*y + t.F
}

// MapRect maps the four corners of r and returns their bounding rectangle.
func (t Transform) MapRect(r Rect) Rect {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = t.Apply(r.Left, r.Top)
	xs[1], ys[1] = t.Apply(r.Right, r.Top)
	xs[2], ys[2] = t.Apply(r.Left, r.Bottom)
	xs[3], ys[3] = t.Apply(r.Right, r.Bottom)

	out := Rect{Left: xs[0], Top: ys[0], Right: xs[0], Bottom: ys[0]}
	for i := 1; i < 4; i++ {
		out.Left = math.Min(out.Left, xs[i])
		out.Right = math.Max(out.Right, xs[i])
		out.Top = math.Min(out.Top, ys[i])
		out.Bottom = math.Max(out.Bottom, ys[i])
	}
	return out
}

// Aff3 returns the transform in the layout used by golang.org/x/image/draw.
func (t Transform) Aff3() f64.Aff3 {
	return f64.Aff3{t.A, t.B, t.C, t.D, t.E, t.F}
}

func (t Transform) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.A, t.B, t.C,
		t.D, t.E, t.F,
		0, 0, 1,
	})
}

func fromMatrix(m mat.Matrix) Transform {
	return Transform{
		A: m.At(0, 0), B: m.At(0, 1), C: m.At(0, 2),
		D: m.At(1, 0), E: m.At(1, 1), F: m.At(1, 2),
	}
}

func exactSinCos(degrees float64) (sin, cos float64) {
	if math.Mod(degrees, 90) == 0 {
		switch int(math.Mod(math.Mod(degrees, 360)+360, 360)) {
		case 0:
			return 0, 1
		case 90:
			return 1, 0
		case 180:
			return 0, -1
		case 270:
			return -1, 0
		}
	}
	rad := degrees * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}
