package voice

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/speech"
)

// ModeSwitcher changes the pipeline mode and returns the previous one.
type ModeSwitcher interface {
	SetMode(m pipeline.Mode) pipeline.Mode
}

// Listener runs the recognize-then-restart loop.
type Listener struct {
	rec      Recognizer
	switcher ModeSwitcher
	speaker  speech.Speaker
	phrases  Phrases
	limiter  *rate.Limiter
	metrics  *MetricsCollector
	logger   *slog.Logger
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithConfig applies phrases and the restart throttle from cfg.
func WithConfig(cfg Config) ListenerOption {
	return func(l *Listener) {
		l.phrases = NewPhrases(cfg.ExtractPhrases, cfg.StopPhrases)
		l.limiter = newLimiter(cfg)
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *MetricsCollector) ListenerOption {
	return func(l *Listener) { l.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

// NewListener creates a listener that applies commands to switcher and
// confirms them through speaker.
func NewListener(rec Recognizer, switcher ModeSwitcher, speaker speech.Speaker, opts ...ListenerOption) *Listener {
	def := DefaultConfig()
	l := &Listener{
		rec:      rec,
		switcher: switcher,
		speaker:  speaker,
		phrases:  NewPhrases(def.ExtractPhrases, def.StopPhrases),
		limiter:  newLimiter(def),
		metrics:  NewMetricsCollector(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "voice.listener")
	if l.speaker == nil {
		l.speaker = speech.LogSpeaker{Logger: l.logger}
	}
	return l
}

func newLimiter(cfg Config) *rate.Limiter {
	if cfg.RestartInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(cfg.RestartInterval), max(cfg.RestartBurst, 1))
}

// Metrics returns the listener's collector.
func (l *Listener) Metrics() *MetricsCollector {
	return l.metrics
}

// Run listens until ctx is cancelled or the recognizer reports ErrClosed.
// Recognizer errors are logged and listening restarts.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("voice commands listening")
	defer l.logger.Info("voice commands stopped")

	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		l.metrics.MarkListenStart()
		alts, err := l.rec.Listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			l.metrics.MarkError()
			l.logger.Warn("recognizer failed, restarting", "error", err)
			continue
		}

		cmds := l.phrases.Matches(alts)
		l.logger.Debug("utterance", "alternatives", alts, "matches", len(cmds))
		if len(cmds) == 0 {
			l.metrics.MarkResult(CommandNone)
			continue
		}
		l.metrics.MarkResult(cmds[len(cmds)-1])
		for _, cmd := range cmds {
			l.Apply(cmd)
		}
	}
}

// Apply executes cmd. CommandNone is ignored.
func (l *Listener) Apply(cmd Command) {
	switch cmd {
	case CommandExtractText:
		prev := l.switcher.SetMode(pipeline.ModeTextExtraction)
		l.logger.Info("voice command", "command", cmd.String(), "previous", prev.String())
		l.speaker.Speak(speech.TextModeEnabled)
	case CommandStopText:
		prev := l.switcher.SetMode(pipeline.ModeDetection)
		l.logger.Info("voice command", "command", cmd.String(), "previous", prev.String())
		l.speaker.Speak(speech.DetectionResumed)
	}
}
