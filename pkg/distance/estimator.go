// Package distance estimates how far away a detected object is from its
// on-screen size, using the pinhole camera model and a table of typical
// object widths.
//
// The result is a heuristic. It is deterministic for a given input but is
// not a calibrated measurement.
package distance

import "math"

// Camera constants for a typical phone-class sensor.
const (
	DefaultFocalLengthMM = 4.15
	DefaultSensorWidthMM = 6.17
)

// Estimator converts pixel box sizes to meters.
type Estimator struct {
	table         *ReferenceTable
	focalLengthMM float64
	sensorWidthMM float64
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithOptics overrides the lens focal length and sensor width.
func WithOptics(focalLengthMM, sensorWidthMM float64) Option {
	return func(e *Estimator) {
		e.focalLengthMM = focalLengthMM
		e.sensorWidthMM = sensorWidthMM
	}
}

// NewEstimator returns an estimator backed by table.
// A nil table uses the built-in reference widths.
func NewEstimator(table *ReferenceTable, opts ...Option) *Estimator {
	if table == nil {
		table = DefaultReferenceTable()
	}
	e := &Estimator{
		table:         table,
		focalLengthMM: DefaultFocalLengthMM,
		sensorWidthMM: DefaultSensorWidthMM,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the reference table in use.
func (e *Estimator) Table() *ReferenceTable {
	return e.table
}

// FocalLengthPixels returns the focal length expressed in preview pixels.
func (e *Estimator) FocalLengthPixels(previewWidth int) float64 {
	if e.sensorWidthMM == 0 {
		return 0
	}
	return float64(previewWidth) * e.focalLengthMM / e.sensorWidthMM
}

// Estimate returns the distance in meters, rounded to two decimals.
// The larger box dimension is used as the object's pixel size. A zero-size
// box yields 0.
func (e *Estimator) Estimate(boxWidth, boxHeight float64, label string, previewWidth int) float64 {
	return e.EstimateWithWidth(boxWidth, boxHeight, e.table.Width(label), previewWidth)
}

// EstimateWithWidth is Estimate with an explicit reference width.
func (e *Estimator) EstimateWithWidth(boxWidth, boxHeight, referenceWidth float64, previewWidth int) float64 {
	pixelSize := math.Max(boxWidth, boxHeight)
	if pixelSize <= 0 {
		return 0
	}
	meters := referenceWidth * e.FocalLengthPixels(previewWidth) / pixelSize
	return math.Round(meters*100) / 100
}
