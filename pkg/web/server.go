// Package web serves the live dashboard: tracked objects for the overlay,
// pipeline status, and remote mode switching.
package web

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-visionaid/pkg/hub"
	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/tracker"
	"github.com/teslashibe/go-visionaid/pkg/voice"
)

// Pipeline is the controller surface the dashboard needs.
type Pipeline interface {
	Stats() pipeline.Stats
	Mode() pipeline.Mode
	SetMode(m pipeline.Mode) pipeline.Mode
}

// Tracks provides the current tracker snapshot.
type Tracks interface {
	Snapshot() *tracker.Snapshot
}

// DebugSource provides the annotated detector input.
type DebugSource interface {
	DebugCrop() *image.RGBA
}

// VoiceStats provides voice listener counters.
type VoiceStats interface {
	Current() voice.Metrics
}

// Config holds the dashboard settings.
type Config struct {
	Addr      string `json:"addr" yaml:"addr"`
	StaticDir string `json:"static_dir" yaml:"static_dir"`

	// PublishInterval caps how often overlay snapshots are pushed.
	PublishInterval time.Duration `json:"publish_interval" yaml:"publish_interval"`

	// StatusInterval is the period of status pushes.
	StatusInterval time.Duration `json:"status_interval" yaml:"status_interval"`
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		PublishInterval: 50 * time.Millisecond,
		StatusInterval:  time.Second,
	}
}

// Server is the web dashboard server
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *slog.Logger

	pipeline Pipeline
	tracks   Tracks
	debug    DebugSource
	voice    VoiceStats

	// Hubs for websocket broadcast
	overlayHub *hub.Hub
	statusHub  *hub.Hub

	publisher *Publisher
	started   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDebugSource exposes the debug crop at /api/debug/crop.png.
func WithDebugSource(d DebugSource) Option {
	return func(s *Server) { s.debug = d }
}

// WithVoiceStats adds voice listener counters to the status payload.
func WithVoiceStats(v VoiceStats) Option {
	return func(s *Server) { s.voice = v }
}

// NewServer creates a new web dashboard server
func NewServer(cfg Config, p Pipeline, tracks Tracks, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		tracks:   tracks,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "web")

	s.overlayHub = hub.New("overlay", s.logger)
	s.statusHub = hub.New("status", s.logger)
	s.publisher = NewPublisher(s.overlayHub, tracks, p, cfg.PublishInterval)

	app := fiber.New(fiber.Config{
		AppName:               "VisionAid Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tracks", s.handleTracks)
	api.Post("/mode/:mode", s.handleSetMode)
	api.Get("/debug/crop.png", s.handleDebugCrop)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/overlay", websocket.New(s.handleOverlayWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Overlay returns the repaint target to hand to the pipeline.
func (s *Server) Overlay() pipeline.Overlay {
	return s.publisher
}

// Publisher returns the overlay publisher.
func (s *Server) Publisher() *Publisher {
	return s.publisher
}

// Run starts the hubs, publishers and HTTP listener. It blocks until ctx
// is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	go s.overlayHub.Run(ctx)
	go s.statusHub.Run(ctx)
	go s.publisher.Run(ctx)
	go s.statusLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web dashboard listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) statusLoop(ctx context.Context) {
	if s.cfg.StatusInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.status()); err != nil {
				s.logger.Warn("status encode failed", "error", err)
			}
		}
	}
}

// BroadcastStatus pushes the current status to status clients immediately.
func (s *Server) BroadcastStatus() {
	if err := s.statusHub.BroadcastJSON(s.status()); err != nil {
		s.logger.Warn("status encode failed", "error", err)
	}
}
