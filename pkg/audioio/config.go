package audioio

import (
	"fmt"
	"runtime"
	"strconv"
)

// Backend selects the playback implementation.
type Backend string

const (
	// BackendAuto picks the command backend when a player exists for the
	// platform, otherwise mock.
	BackendAuto Backend = "auto"
	// BackendCommand pipes audio into an external player.
	BackendCommand Backend = "command"
	// BackendMock discards audio and records statistics.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	Backend Backend `json:"backend" yaml:"backend"`

	// SampleRate is the device rate in Hz. Chunks at other rates are
	// resampled before playback.
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`

	Channels int `json:"channels" yaml:"channels"`

	// Device is passed to the player, e.g. "plughw:1,0" for aplay.
	Device string `json:"device" yaml:"device"`

	// Command overrides the player command line. It must read raw
	// PCM16 from stdin.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendAuto,
		SampleRate: 24000,
		Channels:   1,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	switch c.Backend {
	case BackendAuto, BackendCommand, BackendMock, "":
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	return nil
}

// PlayerCommand returns the command line used by the command backend,
// or nil if the platform has no default player.
func (c *Config) PlayerCommand() []string {
	if len(c.Command) > 0 {
		return c.Command
	}
	rate := strconv.Itoa(c.SampleRate)
	channels := strconv.Itoa(c.Channels)

	switch runtime.GOOS {
	case "linux":
		args := []string{"aplay", "-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", channels}
		if c.Device != "" {
			args = append(args, "-D", c.Device)
		}
		return append(args, "-")
	case "darwin":
		return []string{"play", "-q", "-t", "raw", "-r", rate, "-e", "signed", "-b", "16", "-c", channels, "-"}
	default:
		return nil
	}
}
