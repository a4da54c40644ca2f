// Package config loads the visionaid application configuration.
//
// Configuration comes from three layers, later ones winning: built-in
// defaults, a JSON or YAML file, and environment variables for secrets and
// the most commonly changed settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-visionaid/internal/log"
	"github.com/teslashibe/go-visionaid/pkg/audioio"
	"github.com/teslashibe/go-visionaid/pkg/camera"
	"github.com/teslashibe/go-visionaid/pkg/detection"
	"github.com/teslashibe/go-visionaid/pkg/distance"
	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/tracker"
	"github.com/teslashibe/go-visionaid/pkg/voice"
	"github.com/teslashibe/go-visionaid/pkg/web"
)

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvGoogleKey   = "GOOGLE_API_KEY"
	EnvGoogleCreds = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvCamera      = "VISIONAID_CAMERA"
	EnvModel       = "VISIONAID_MODEL"
	EnvVoiceURL    = "VISIONAID_VOICE_URL"
	EnvVoiceToken  = "VISIONAID_VOICE_TOKEN"
	EnvLogLevel    = "LOG_LEVEL"
)

// TTS provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// OCR backend names.
const (
	OCRGoogle    = "google"
	OCRTesseract = "tesseract"
	OCRNone      = "none"
)

// DistanceConfig holds the camera optics and reference width overrides.
type DistanceConfig struct {
	ReferenceTable string  `json:"reference_table" yaml:"reference_table"` // YAML file, optional
	FocalLengthMM  float64 `json:"focal_length_mm" yaml:"focal_length_mm"`
	SensorWidthMM  float64 `json:"sensor_width_mm" yaml:"sensor_width_mm"`
}

// SpeechConfig selects how announcements are voiced.
type SpeechConfig struct {
	// Enabled plays synthesized speech; otherwise announcements are only logged.
	Enabled bool           `json:"enabled" yaml:"enabled"`
	Audio   audioio.Config `json:"audio" yaml:"audio"`
}

// TTSConfig configures the synthesis providers.
type TTSConfig struct {
	// Providers are tried in order.
	Providers    []string      `json:"providers" yaml:"providers"`
	Voice        string        `json:"voice" yaml:"voice"`
	Language     string        `json:"language" yaml:"language"`
	SpeakingRate float64       `json:"speaking_rate" yaml:"speaking_rate"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`

	OpenAIKey       string `json:"-" yaml:"-"`
	GoogleKey       string `json:"-" yaml:"-"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// OCRConfig selects the text recognizer.
type OCRConfig struct {
	Backend  string `json:"backend" yaml:"backend"`
	Language string `json:"language" yaml:"language"` // BCP-47 hint for Google, tesseract code otherwise

	APIKey          string `json:"-" yaml:"-"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// WebConfig enables the dashboard.
type WebConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	web.Config `yaml:",inline"`
}

// LogConfig controls logging.
type LogConfig = log.Config

// AppConfig is the complete application configuration.
type AppConfig struct {
	Camera   camera.Config    `json:"camera" yaml:"camera"`
	Detector detection.Config `json:"detector" yaml:"detector"`
	Pipeline pipeline.Config  `json:"pipeline" yaml:"pipeline"`
	Tracker  tracker.Config   `json:"tracker" yaml:"tracker"`
	Distance DistanceConfig   `json:"distance" yaml:"distance"`
	Speech   SpeechConfig     `json:"speech" yaml:"speech"`
	TTS      TTSConfig        `json:"tts" yaml:"tts"`
	OCR      OCRConfig        `json:"ocr" yaml:"ocr"`
	Voice    voice.Config     `json:"voice" yaml:"voice"`
	Web      WebConfig        `json:"web" yaml:"web"`
	Log      LogConfig        `json:"log" yaml:"log"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() AppConfig {
	return AppConfig{
		Camera:   camera.DefaultConfig(),
		Detector: detection.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Tracker:  tracker.DefaultConfig(),
		Distance: DistanceConfig{
			FocalLengthMM: distance.DefaultFocalLengthMM,
			SensorWidthMM: distance.DefaultSensorWidthMM,
		},
		Speech: SpeechConfig{
			Enabled: true,
			Audio:   audioio.DefaultConfig(),
		},
		TTS: TTSConfig{
			Providers:    []string{ProviderOpenAI, ProviderGoogle},
			Language:     "en-US",
			SpeakingRate: 1.0,
			Timeout:      15 * time.Second,
		},
		OCR: OCRConfig{
			Backend:  OCRGoogle,
			Language: "en",
		},
		Voice: voice.DefaultConfig(),
		Web: WebConfig{
			Enabled: true,
			Config:  web.DefaultConfig(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads path over the defaults and applies environment
// overrides. The file may be JSON or YAML; an empty path skips the file.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		// JSON is valid YAML; durations may be written as "5s".
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from the environment. getenv is usually os.Getenv.
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvOpenAIKey); v != "" {
		c.TTS.OpenAIKey = v
	}
	if v := getenv(EnvGoogleKey); v != "" {
		c.TTS.GoogleKey = v
		c.OCR.APIKey = v
	}
	if v := getenv(EnvGoogleCreds); v != "" {
		if c.TTS.CredentialsFile == "" {
			c.TTS.CredentialsFile = v
		}
		if c.OCR.CredentialsFile == "" {
			c.OCR.CredentialsFile = v
		}
	}
	if v := getenv(EnvCamera); v != "" {
		c.Camera.Device = v
	}
	if v := getenv(EnvModel); v != "" {
		c.Detector.ModelPath = v
	}
	if v := getenv(EnvVoiceURL); v != "" {
		c.Voice = c.Voice.WithURL(v)
	}
	if v := getenv(EnvVoiceToken); v != "" {
		c.Voice.Token = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// PipelineConfig returns the pipeline settings with the frame rotation
// derived from the camera's sensor and screen orientation.
func (c *AppConfig) PipelineConfig() pipeline.Config {
	p := c.Pipeline
	p.Rotation = c.Camera.Orientation()
	return p
}

// Validate reports every invalid setting.
func (c *AppConfig) Validate() error {
	var errs []error

	for _, msg := range c.Camera.Validate() {
		errs = append(errs, fmt.Errorf("camera: %s", msg))
	}
	if c.Detector.ModelPath == "" {
		errs = append(errs, errors.New("detector: model_path is required"))
	}
	if c.Detector.NumThreads < 0 {
		errs = append(errs, errors.New("detector: num_threads must not be negative"))
	}
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Tracker.MatchIoU <= 0 || c.Tracker.MatchIoU > 1 {
		errs = append(errs, fmt.Errorf("tracker: match_iou must be in (0,1], got %v", c.Tracker.MatchIoU))
	}
	if c.Tracker.Smoothing <= 0 || c.Tracker.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("tracker: smoothing must be in (0,1], got %v", c.Tracker.Smoothing))
	}
	if c.Tracker.MaxMisses < 0 {
		errs = append(errs, errors.New("tracker: max_misses must not be negative"))
	}
	if c.Distance.FocalLengthMM <= 0 || c.Distance.SensorWidthMM <= 0 {
		errs = append(errs, errors.New("distance: focal length and sensor width must be positive"))
	}
	if c.Speech.Enabled {
		if err := c.Speech.Audio.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range c.TTS.Providers {
		if p != ProviderOpenAI && p != ProviderGoogle {
			errs = append(errs, fmt.Errorf("tts: unknown provider %q", p))
		}
	}
	switch c.OCR.Backend {
	case OCRGoogle, OCRTesseract, OCRNone:
	default:
		errs = append(errs, fmt.Errorf("ocr: unknown backend %q", c.OCR.Backend))
	}
	if err := c.Voice.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
