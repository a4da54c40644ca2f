package pipeline

import (
	"fmt"
	"strings"
)

// Mode selects what the pipeline does with admitted frames.
type Mode int32

const (
	// ModeDetection runs object detection, tracking and distance estimation.
	ModeDetection Mode = iota
	// ModeTextExtraction runs OCR on the full frame.
	ModeTextExtraction
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDetection:
		return "detection"
	case ModeTextExtraction:
		return "text_extraction"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// ParseMode accepts the wire name or a short alias.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "detection", "detect", "objects":
		return ModeDetection, nil
	case "text_extraction", "text", "ocr":
		return ModeTextExtraction, nil
	default:
		return ModeDetection, fmt.Errorf("pipeline: unknown mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
