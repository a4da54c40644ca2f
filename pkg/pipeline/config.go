package pipeline

import (
	"fmt"
	"time"
)

// Config holds the frame pipeline parameters.
type Config struct {
	// InputSize is the edge of the square detector input, in pixels.
	InputSize int `json:"input_size" yaml:"input_size"`

	// MinConfidence drops detections below this score (inclusive bound).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// MaintainAspect scales the frame uniformly into the crop.
	MaintainAspect bool `json:"maintain_aspect" yaml:"maintain_aspect"`

	// Rotation is the clockwise rotation applied to frames, in degrees.
	Rotation int `json:"rotation" yaml:"rotation"`

	// DetectionSpeechGap and OCRSpeechGap are the minimum pauses between
	// announcements for each path.
	DetectionSpeechGap time.Duration `json:"detection_speech_gap" yaml:"detection_speech_gap"`
	OCRSpeechGap       time.Duration `json:"ocr_speech_gap" yaml:"ocr_speech_gap"`

	// Debug keeps an annotated copy of the last crop.
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		InputSize:          300,
		MinConfidence:      0.55,
		DetectionSpeechGap: 5 * time.Second,
		OCRSpeechGap:       6 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("pipeline: input_size must be positive, got %d", c.InputSize)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("pipeline: min_confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.Rotation%90 != 0 {
		return fmt.Errorf("pipeline: rotation must be a multiple of 90, got %d", c.Rotation)
	}
	if c.DetectionSpeechGap < 0 || c.OCRSpeechGap < 0 {
		return fmt.Errorf("pipeline: speech gaps must not be negative")
	}
	return nil
}
