// VisionAid - camera assistant that announces nearby objects and reads
// text aloud on voice command.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-visionaid/internal/config"
	"github.com/teslashibe/go-visionaid/internal/log"
	"github.com/teslashibe/go-visionaid/pkg/app"
	"github.com/teslashibe/go-visionaid/pkg/camera"
	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/voice"
)

type flags struct {
	configPath string
	debug      bool
	camera     string
	preset     string
	model      string
	webAddr    string
	noWeb      bool
	noSpeech   bool
	mode       string
	voice      string
	ocr        string
}

func main() {
	f := parseFlags()

	cfg, err := config.LoadConfig(f.configPath)
	if err == nil {
		err = f.apply(&cfg)
	}
	if f.debug {
		cfg.Log.Level = "debug"
	}
	logger := log.Init(cfg.Log)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		a.Shutdown()
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	if f.mode != "" {
		m, _ := pipeline.ParseMode(f.mode)
		a.Controller().SetMode(m)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
		a.Shutdown()
		os.Exit(1)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file")
	flag.BoolVar(&f.debug, "debug", false, "Enable verbose debug logging and keep the debug crop")
	flag.StringVar(&f.camera, "camera", "", "Capture device index or stream URL (overrides VISIONAID_CAMERA)")
	flag.StringVar(&f.preset, "preset", "", "Camera resolution preset: vga, 720p, 1080p")
	flag.StringVar(&f.model, "model", "", "Path to the detection model (overrides VISIONAID_MODEL)")
	flag.StringVar(&f.webAddr, "web-addr", "", "Dashboard listen address")
	flag.BoolVar(&f.noWeb, "no-web", false, "Disable the dashboard")
	flag.BoolVar(&f.noSpeech, "no-speech", false, "Log announcements instead of speaking them")
	flag.StringVar(&f.mode, "mode", "", "Initial mode: detection or text")
	flag.StringVar(&f.voice, "voice", "", "Voice command source: none, stdin, websocket")
	flag.StringVar(&f.ocr, "ocr", "", "Text recognizer: google, tesseract, none")
	flag.Parse()
	return f
}

// apply layers command line flags over the loaded configuration.
func (f flags) apply(cfg *config.AppConfig) error {
	if f.preset != "" {
		p, ok := camera.Preset(f.preset)
		if !ok {
			return fmt.Errorf("unknown camera preset %q", f.preset)
		}
		cfg.Camera.Width, cfg.Camera.Height = p.Width, p.Height
	}
	if f.camera != "" {
		cfg.Camera.Device = f.camera
	}
	if f.model != "" {
		cfg.Detector.ModelPath = f.model
	}
	if f.webAddr != "" {
		cfg.Web.Addr = f.webAddr
	}
	if f.noWeb {
		cfg.Web.Enabled = false
	}
	if f.noSpeech {
		cfg.Speech.Enabled = false
	}
	if f.debug {
		cfg.Pipeline.Debug = true
	}
	if f.mode != "" {
		if _, err := pipeline.ParseMode(f.mode); err != nil {
			return err
		}
	}
	if f.voice != "" {
		cfg.Voice.Source = voice.Source(f.voice)
	}
	if f.ocr != "" {
		cfg.OCR.Backend = f.ocr
	}
	return cfg.Validate()
}
