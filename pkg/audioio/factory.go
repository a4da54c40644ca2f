package audioio

import (
	"fmt"
	"log/slog"
)

// NewSink creates an audio sink with the given configuration.
// BackendAuto falls back to the mock sink when no player is installed.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendCommand:
		return NewCommandSink(cfg, cfg.PlayerCommand(), logger)
	default:
		sink, err := NewCommandSink(cfg, cfg.PlayerCommand(), logger)
		if err != nil {
			logger.Warn("no audio player available, speech is muted", "error", err)
			return NewMockSink(cfg, logger), nil
		}
		logger.Info("audio sink created",
			"backend", sink.Name(),
			"sample_rate", cfg.SampleRate,
			"player", cfg.PlayerCommand()[0],
		)
		return sink, nil
	}
}
