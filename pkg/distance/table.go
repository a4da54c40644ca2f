package distance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-visionaid/pkg/detection"
)

// DefaultWidth is used for labels without a reference entry.
const DefaultWidth = 0.5

// defaultWidths are typical real-world widths in meters, keyed by lowercase label.
var defaultWidths = map[string]float64{
	"person":         0.5,
	"bicycle":        0.6,
	"car":            1.8,
	"motorcycle":     0.7,
	"airplane":       35.0,
	"bus":            2.5,
	"train":          2.8,
	"truck":          2.5,
	"boat":           5.0,
	"traffic light":  0.3,
	"fire hydrant":   0.25,
	"stop sign":      0.75,
	"parking meter":  0.4,
	"bench":          1.2,
	"bird":           0.3,
	"cat":            0.3,
	"dog":            0.6,
	"horse":          1.4,
	"sheep":          1.2,
	"cow":            1.6,
	"elephant":       4.0,
	"bear":           1.8,
	"zebra":          1.4,
	"giraffe":        3.0,
	"backpack":       0.4,
	"umbrella":       0.5,
	"handbag":        0.3,
	"tie":            0.2,
	"frisbee":        0.25,
	"skis":           0.2,
	"snowboard":      0.3,
	"sports ball":    0.3,
	"kite":           1.5,
	"baseball bat":   0.7,
	"baseball glove": 0.5,
	"skateboard":     0.7,
	"surfboard":      1.0,
	"tennis racket":  0.2,
	"bottle":         0.07,
	"wine glass":     0.15,
	"cup":            0.1,
	"fork":           0.15,
	"knife":          0.15,
	"spoon":          0.15,
	"bowl":           0.2,
	"fruit":          0.15,
	"apple":          0.1,
	"sandwich":       0.25,
	"ball":           0.2,
	"broccoli":       0.2,
	"carrot":         0.2,
	"hot dog":        0.25,
	"pizza":          0.3,
	"donut":          0.2,
	"cake":           0.2,
	"chair":          0.45,
	"couch":          1.5,
	"potted plant":   0.5,
	"bed":            1.6,
	"dining table":   1.5,
	"table":          1.0,
	"tv":             0.6,
	"laptop":         0.35,
	"mouse":          0.15,
	"remote":         0.2,
	"keyboard":       0.3,
	"cell phone":     0.08,
	"microwave":      0.6,
	"oven":           0.6,
	"toaster":        0.4,
	"sink":           0.5,
	"refrigerator":   0.7,
	"book":           0.2,
	"clock":          0.3,
	"vase":           0.3,
	"scissors":       0.2,
	"teddy bear":     0.3,
	"hair drier":     0.2,
	"toothbrush":     0.1,
}

// ReferenceTable maps labels to real-world widths in meters.
// It is read-only once built and safe for concurrent use.
type ReferenceTable struct {
	widths   map[string]float64
	fallback float64
}

// DefaultReferenceTable returns the built-in table.
func DefaultReferenceTable() *ReferenceTable {
	return NewReferenceTable(nil)
}

// NewReferenceTable returns the built-in table with overrides applied.
// Override keys are matched case-insensitively.
func NewReferenceTable(overrides map[string]float64) *ReferenceTable {
	widths := make(map[string]float64, len(defaultWidths)+len(overrides))
	for k, v := range defaultWidths {
		widths[k] = v
	}
	for k, v := range overrides {
		widths[detection.NormalizeLabel(k)] = v
	}
	return &ReferenceTable{widths: widths, fallback: DefaultWidth}
}

// tableFile is the on-disk override format.
type tableFile struct {
	Default *float64           `yaml:"default"`
	Widths  map[string]float64 `yaml:"widths"`
}

// LoadReferenceTable reads a YAML override file and merges it over the
// built-in table.
//
//	default: 0.5
//	widths:
//	  car: 1.9
//	  scooter: 0.6
func LoadReferenceTable(path string) (*ReferenceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference table: %w", err)
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reference table: %w", err)
	}

	for label, w := range f.Widths {
		if w <= 0 {
			return nil, fmt.Errorf("reference width for %q must be positive, got %v", label, w)
		}
	}

	t := NewReferenceTable(f.Widths)
	if f.Default != nil {
		if *f.Default <= 0 {
			return nil, fmt.Errorf("default reference width must be positive, got %v", *f.Default)
		}
		t.fallback = *f.Default
	}
	return t, nil
}

// Width returns the reference width for label, or the fallback width.
func (t *ReferenceTable) Width(label string) float64 {
	if w, ok := t.widths[detection.NormalizeLabel(label)]; ok {
		return w
	}
	return t.fallback
}

// Lookup reports whether label has an explicit entry.
func (t *ReferenceTable) Lookup(label string) (float64, bool) {
	w, ok := t.widths[detection.NormalizeLabel(label)]
	return w, ok
}

// Default returns the width used for unknown labels.
func (t *ReferenceTable) Default() float64 {
	return t.fallback
}

// Len returns the number of explicit entries.
func (t *ReferenceTable) Len() int {
	return len(t.widths)
}
