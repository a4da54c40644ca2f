// Package app wires the camera, detector, pipeline, speech, voice commands
// and dashboard into one running assistant.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-visionaid/internal/config"
	"github.com/teslashibe/go-visionaid/pkg/audioio"
	"github.com/teslashibe/go-visionaid/pkg/camera"
	"github.com/teslashibe/go-visionaid/pkg/camera/webcam"
	"github.com/teslashibe/go-visionaid/pkg/detection"
	"github.com/teslashibe/go-visionaid/pkg/detection/yolo"
	"github.com/teslashibe/go-visionaid/pkg/distance"
	"github.com/teslashibe/go-visionaid/pkg/ocr"
	"github.com/teslashibe/go-visionaid/pkg/ocr/tesseract"
	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/speech"
	"github.com/teslashibe/go-visionaid/pkg/tracker"
	"github.com/teslashibe/go-visionaid/pkg/tts"
	"github.com/teslashibe/go-visionaid/pkg/voice"
	"github.com/teslashibe/go-visionaid/pkg/web"
)

// App is the running assistant.
type App struct {
	config config.AppConfig
	logger *slog.Logger

	// Collaborators, built by Init unless injected
	source     camera.Source
	detector   detection.Detector
	recognizer ocr.Recognizer
	speaker    speech.Speaker
	voiceRec   voice.Recognizer

	// Owned resources
	provider   tts.Provider
	sink       audioio.Sink
	ttsSpeaker *speech.TTSSpeaker

	tracker    *tracker.Tracker
	controller *pipeline.Controller
	listener   *voice.Listener
	webServer  *web.Server
	overlay    *overlayRelay
}

// Option configures an App.
type Option func(*App)

// WithSource injects the frame source.
func WithSource(s camera.Source) Option {
	return func(a *App) { a.source = s }
}

// WithDetector injects the object detector.
func WithDetector(d detection.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithTextRecognizer injects the OCR backend.
func WithTextRecognizer(r ocr.Recognizer) Option {
	return func(a *App) { a.recognizer = r }
}

// WithSpeaker injects the announcement sink.
func WithSpeaker(s speech.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// WithVoiceRecognizer injects the voice command recognizer.
func WithVoiceRecognizer(r voice.Recognizer) Option {
	return func(a *App) { a.voiceRec = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New creates an application from a validated configuration.
func New(cfg config.AppConfig, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{config: cfg, overlay: &overlayRelay{}}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// Init builds every collaborator that was not injected. A detector or
// camera that cannot be opened is fatal; OCR, speech and voice commands
// degrade with a warning.
func (a *App) Init(ctx context.Context) error {
	cfg := a.config

	if a.detector == nil {
		det, err := yolo.New(yolo.FromDetectionConfig(cfg.Detector), a.logger)
		if err != nil {
			return fmt.Errorf("detector: %w", err)
		}
		a.detector = det
	}

	if a.source == nil {
		src, err := webcam.Open(cfg.Camera, a.logger)
		if err != nil {
			return fmt.Errorf("camera: %w", err)
		}
		a.source = src
	}

	if a.recognizer == nil {
		a.recognizer = a.initOCR(ctx)
	}

	if a.speaker == nil {
		a.speaker = a.initSpeech(ctx)
	}

	estimator, err := a.initEstimator()
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}

	a.tracker = tracker.New(cfg.Tracker, a.logger)

	opts := []pipeline.Option{
		pipeline.WithTracker(a.tracker),
		pipeline.WithEstimator(estimator),
		pipeline.WithSpeaker(a.speaker),
		pipeline.WithOverlay(a.overlay),
		pipeline.WithLogger(a.logger),
	}
	if a.recognizer != nil {
		opts = append(opts, pipeline.WithRecognizer(a.recognizer))
	}
	ctrl, err := pipeline.New(cfg.PipelineConfig(), a.detector, opts...)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.controller = ctrl

	if cfg.Detector.Accelerated {
		ctrl.SetAccelerated(true)
	}
	if cfg.Detector.NumThreads > 0 {
		ctrl.SetNumThreads(cfg.Detector.NumThreads)
	}

	if a.voiceRec == nil {
		rec, err := voice.NewRecognizer(cfg.Voice, a.logger)
		switch {
		case errors.Is(err, voice.ErrDisabled):
			a.logger.Info("voice commands disabled")
		case err != nil:
			a.logger.Warn("voice commands unavailable", "error", err)
		default:
			a.voiceRec = rec
		}
	}
	if a.voiceRec != nil {
		a.listener = voice.NewListener(a.voiceRec, ctrl, a.speaker,
			voice.WithConfig(cfg.Voice),
			voice.WithLogger(a.logger),
		)
	}

	if cfg.Web.Enabled {
		opts := []web.Option{
			web.WithLogger(a.logger),
			web.WithDebugSource(ctrl),
		}
		if a.listener != nil {
			opts = append(opts, web.WithVoiceStats(a.listener.Metrics()))
		}
		a.webServer = web.NewServer(cfg.Web.Config, ctrl, a.tracker, opts...)
		a.overlay.set(a.webServer.Overlay())

		if a.listener != nil {
			srv := a.webServer
			a.listener.Metrics().OnUpdate(func(voice.Metrics) { srv.BroadcastStatus() })
		}
	}

	a.logger.Info("visionaid initialized",
		"camera", cfg.Camera.Device,
		"model", cfg.Detector.ModelPath,
		"ocr", a.recognizer != nil,
		"voice", a.listener != nil,
		"web", a.webServer != nil,
	)
	return nil
}

func (a *App) initOCR(ctx context.Context) ocr.Recognizer {
	cfg := a.config.OCR
	switch cfg.Backend {
	case config.OCRGoogle:
		g, err := ocr.NewGoogleVision(ctx, ocr.GoogleConfig{
			APIKey:          cfg.APIKey,
			CredentialsFile: cfg.CredentialsFile,
			LanguageHints:   []string{cfg.Language},
		}, a.logger)
		if err != nil {
			a.logger.Warn("text extraction unavailable", "backend", cfg.Backend, "error", err)
			return nil
		}
		return g
	case config.OCRTesseract:
		tcfg := tesseract.DefaultConfig()
		// Tesseract wants a three-letter code; short hints keep the default.
		if len(cfg.Language) >= 3 {
			tcfg.Language = cfg.Language
		}
		r, err := tesseract.New(tcfg, a.logger)
		if err != nil {
			a.logger.Warn("text extraction unavailable", "backend", cfg.Backend, "error", err)
			return nil
		}
		return r
	default:
		return nil
	}
}

func (a *App) initSpeech(ctx context.Context) speech.Speaker {
	cfg := a.config
	if !cfg.Speech.Enabled {
		return speech.LogSpeaker{Logger: a.logger}
	}

	common := []tts.Option{
		tts.WithLanguage(cfg.TTS.Language),
		tts.WithSpeakingRate(cfg.TTS.SpeakingRate),
		tts.WithTimeout(cfg.TTS.Timeout),
		tts.WithLogger(a.logger),
	}
	if cfg.TTS.Voice != "" {
		common = append(common, tts.WithVoice(cfg.TTS.Voice))
	}

	var providers []tts.Provider
	for _, name := range cfg.TTS.Providers {
		var (
			p   tts.Provider
			err error
		)
		switch name {
		case config.ProviderOpenAI:
			p, err = tts.NewOpenAI(append(common, tts.WithAPIKey(cfg.TTS.OpenAIKey))...)
		case config.ProviderGoogle:
			opts := append([]tts.Option{}, common...)
			if cfg.TTS.GoogleKey != "" {
				opts = append(opts, tts.WithAPIKey(cfg.TTS.GoogleKey))
			} else if cfg.TTS.CredentialsFile != "" {
				opts = append(opts, tts.WithCredentialsFile(cfg.TTS.CredentialsFile))
			}
			p, err = tts.NewGoogle(ctx, opts...)
		}
		if err != nil {
			a.logger.Warn("tts provider unavailable", "provider", name, "error", err)
			continue
		}
		providers = append(providers, p)
	}

	chain, err := tts.NewChain(providers, tts.WithChainLogger(a.logger))
	if err != nil {
		a.logger.Warn("no tts provider configured, announcements are logged only")
		return speech.LogSpeaker{Logger: a.logger}
	}

	sink, err := audioio.NewSink(cfg.Speech.Audio, a.logger)
	if err != nil {
		chain.Close()
		a.logger.Warn("audio output unavailable, announcements are logged only", "error", err)
		return speech.LogSpeaker{Logger: a.logger}
	}

	a.provider = chain
	a.sink = sink
	a.ttsSpeaker = speech.NewTTSSpeaker(chain, sink, a.logger)
	return a.ttsSpeaker
}

func (a *App) initEstimator() (*distance.Estimator, error) {
	cfg := a.config.Distance
	table := distance.DefaultReferenceTable()
	if cfg.ReferenceTable != "" {
		t, err := distance.LoadReferenceTable(cfg.ReferenceTable)
		if err != nil {
			return nil, err
		}
		table = t
	}
	return distance.NewEstimator(table, distance.WithOptics(cfg.FocalLengthMM, cfg.SensorWidthMM)), nil
}

// Controller returns the frame pipeline. Valid after Init.
func (a *App) Controller() *pipeline.Controller {
	return a.controller
}

// Tracker returns the object tracker. Valid after Init.
func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

// Run delivers camera frames to the pipeline until ctx is cancelled or the
// source stops. Voice commands and the dashboard run alongside.
func (a *App) Run(ctx context.Context) error {
	if a.controller == nil {
		return errors.New("app: Run called before Init")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("component stopped", "component", name, "error", err)
			}
		}()
	}

	start("pipeline", a.controller.Run)
	if a.listener != nil {
		start("voice", a.listener.Run)
	}
	if a.webServer != nil {
		start("web", a.webServer.Run)
	}

	err := a.source.Run(ctx, a.controller.OnFrame)

	// Let the in-flight frame finish before tearing down.
	a.controller.Close()
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("camera: %w", err)
	}
	return nil
}

// Shutdown releases every resource. Safe to call after a failed Init.
func (a *App) Shutdown() {
	var closers []io.Closer
	var names []string
	add := func(name string, c io.Closer) {
		closers = append(closers, c)
		names = append(names, name)
	}

	if a.source != nil {
		add("camera", a.source)
	}
	if a.detector != nil {
		add("detector", a.detector)
	}
	if a.recognizer != nil {
		add("ocr", a.recognizer)
	}
	if a.voiceRec != nil {
		add("voice", a.voiceRec)
	}
	if a.ttsSpeaker != nil {
		add("speaker", a.ttsSpeaker)
	}
	if a.provider != nil {
		add("tts", a.provider)
	}
	if a.sink != nil {
		add("audio", a.sink)
	}

	for i, c := range closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "component", names[i], "error", err)
		}
	}
	a.logger.Info("visionaid stopped")
}

// overlayRelay forwards repaint requests to a target set after the
// pipeline is built.
type overlayRelay struct {
	target atomic.Pointer[overlayBox]
}

type overlayBox struct{ pipeline.Overlay }

func (r *overlayRelay) set(o pipeline.Overlay) {
	r.target.Store(&overlayBox{o})
}

// Invalidate implements pipeline.Overlay.
func (r *overlayRelay) Invalidate() {
	if t := r.target.Load(); t != nil {
		t.Invalidate()
	}
}
