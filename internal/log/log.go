// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Formats accepted by Config.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config selects the level and output format.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json; GO_ENV=production defaults to json
}

var (
	level   slog.LevelVar
	current atomic.Pointer[slog.Logger]
)

// Init installs a stdout logger as the slog default and returns it.
func Init(cfg Config) *slog.Logger {
	if cfg.Format == "" && os.Getenv("GO_ENV") == "production" {
		cfg.Format = FormatJSON
	}
	l := New(os.Stdout, cfg)
	current.Store(l)
	slog.SetDefault(l)
	return l
}

// New builds a logger writing to w. Its level is shared with SetLevel.
func New(w io.Writer, cfg Config) *slog.Logger {
	level.Set(ParseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: &level}
	if strings.EqualFold(cfg.Format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetLevel changes the level of every logger built by this package.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the installed logger, or slog.Default before Init.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Component returns L tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}
