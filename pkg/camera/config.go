// Package camera delivers frames from a capture device. Every frame holds a
// device buffer that must be released promptly or capture stalls.
package camera

// Config holds capture parameters.
type Config struct {
	// Device is the capture index (e.g. "0") or a file/stream URL.
	Device string `json:"device" yaml:"device"`

	Width     int `json:"width" yaml:"width"`         // Frame width in pixels
	Height    int `json:"height" yaml:"height"`       // Frame height in pixels
	Framerate int `json:"framerate" yaml:"framerate"` // Target FPS

	// SensorRotation is the clockwise rotation of the sensor relative to
	// the device's natural orientation, in degrees.
	SensorRotation int `json:"sensor_rotation" yaml:"sensor_rotation"`

	// ScreenOrientation is the current display rotation, in degrees.
	ScreenOrientation int `json:"screen_orientation" yaml:"screen_orientation"`

	// Buffers is how many frames may be outstanding before capture waits
	// for a release.
	Buffers int `json:"buffers" yaml:"buffers"`
}

// DefaultConfig returns the 640x480 preview configuration.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Buffers:   3,
	}
}

// Preset names for common configurations
const (
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// Preset returns the named resolution applied to DefaultConfig, or false.
func Preset(name string) (Config, bool) {
	cfg := DefaultConfig()
	switch name {
	case PresetVGA:
	case Preset720p:
		cfg.Width, cfg.Height = 1280, 720
	case Preset1080p:
		cfg.Width, cfg.Height = 1920, 1080
	default:
		return Config{}, false
	}
	return cfg, true
}

// Orientation returns the rotation to apply to frames so they appear
// upright on screen.
func (c *Config) Orientation() int {
	return c.SensorRotation - c.ScreenOrientation
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > 7680 {
		errors = append(errors, "width must be between 160 and 7680")
	}
	if c.Height < 120 || c.Height > 4320 {
		errors = append(errors, "height must be between 120 and 4320")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.SensorRotation%90 != 0 {
		errors = append(errors, "sensor_rotation must be a multiple of 90")
	}
	if c.ScreenOrientation%90 != 0 {
		errors = append(errors, "screen_orientation must be a multiple of 90")
	}
	if c.Buffers < 1 {
		errors = append(errors, "buffers must be at least 1")
	}

	return errors
}
