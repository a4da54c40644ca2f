package voice

import (
	"errors"
	"time"
)

// Source identifies the recognizer backend.
type Source string

const (
	// SourceNone disables voice commands.
	SourceNone Source = "none"

	// SourceStdin reads one utterance per line from standard input.
	SourceStdin Source = "stdin"

	// SourceWebSocket streams transcripts from a speech service.
	SourceWebSocket Source = "websocket"
)

// Config holds the voice command settings.
type Config struct {
	Source Source `json:"source" yaml:"source"`

	// WebSocket transcript stream
	URL              string        `json:"url" yaml:"url"`
	Token            string        `json:"-" yaml:"-"`
	Language         string        `json:"language" yaml:"language"`
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// Restart throttle between Listen calls
	RestartInterval time.Duration `json:"restart_interval" yaml:"restart_interval"`
	RestartBurst    int           `json:"restart_burst" yaml:"restart_burst"`

	// Phrases for each command. Empty uses the defaults.
	ExtractPhrases []string `json:"extract_phrases" yaml:"extract_phrases"`
	StopPhrases    []string `json:"stop_phrases" yaml:"stop_phrases"`
}

// DefaultConfig returns a Config reading commands from stdin.
func DefaultConfig() Config {
	return Config{
		Source: SourceStdin,

		Language:         "en-US",
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      120 * time.Second,

		RestartInterval: 250 * time.Millisecond,
		RestartBurst:    2,

		ExtractPhrases: []string{"extract text"},
		StopPhrases:    []string{"stop text"},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceNone, SourceStdin:
	case SourceWebSocket:
		if c.URL == "" {
			return errors.New("voice: websocket source requires a URL")
		}
	default:
		return errors.New("voice: unknown source: " + string(c.Source))
	}

	if c.RestartInterval < 0 {
		return errors.New("voice: restart interval must not be negative")
	}
	if c.RestartBurst < 1 {
		return errors.New("voice: restart burst must be at least 1")
	}
	return nil
}

// WithSource returns a copy with the source set.
func (c Config) WithSource(s Source) Config {
	c.Source = s
	return c
}

// WithURL returns a copy streaming from url.
func (c Config) WithURL(url string) Config {
	c.Source = SourceWebSocket
	c.URL = url
	return c
}

// WithPhrases returns a copy with custom command phrases.
func (c Config) WithPhrases(extract, stop []string) Config {
	c.ExtractPhrases = extract
	c.StopPhrases = stop
	return c
}

// WithRestart returns a copy with the restart throttle set.
func (c Config) WithRestart(interval time.Duration, burst int) Config {
	c.RestartInterval = interval
	c.RestartBurst = burst
	return c
}
