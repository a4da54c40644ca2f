package web

import (
	"bytes"
	"encoding/json"
	"image/png"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-visionaid/pkg/hub"
	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/voice"
)

// StatusResponse is the dashboard status payload.
type StatusResponse struct {
	Mode           pipeline.Mode  `json:"mode"`
	Stats          pipeline.Stats `json:"stats"`
	Tracks         int            `json:"tracks"`
	OverlayClients int            `json:"overlay_clients"`
	Uptime         string         `json:"uptime"`
	Voice          *voice.Metrics `json:"voice,omitempty"`
}

// ModeResponse reports a mode change.
type ModeResponse struct {
	Mode     pipeline.Mode `json:"mode"`
	Previous pipeline.Mode `json:"previous"`
}

// modeRequest is what status clients send to switch modes.
type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Mode:           s.pipeline.Mode(),
		Stats:          s.pipeline.Stats(),
		OverlayClients: s.overlayHub.ClientCount(),
		Uptime:         time.Since(s.started).Round(time.Second).String(),
	}
	if snap := s.tracks.Snapshot(); snap != nil {
		resp.Tracks = len(snap.Objects)
	}
	if s.voice != nil {
		m := s.voice.Current()
		resp.Voice = &m
	}
	return resp
}

// handleStatus returns pipeline counters and mode
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleTracks returns the current tracker snapshot
func (s *Server) handleTracks(c *fiber.Ctx) error {
	snap := s.tracks.Snapshot()
	if snap == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no snapshot yet",
		})
	}
	return c.JSON(snap)
}

// handleSetMode switches the pipeline mode
func (s *Server) handleSetMode(c *fiber.Ctx) error {
	mode, err := pipeline.ParseMode(c.Params("mode"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	prev := s.pipeline.SetMode(mode)
	s.logger.Info("mode set from dashboard", "mode", mode.String())
	s.BroadcastStatus()
	return c.JSON(ModeResponse{Mode: mode, Previous: prev})
}

// handleDebugCrop returns the last annotated detector input as PNG
func (s *Server) handleDebugCrop(c *fiber.Ctx) error {
	if s.debug == nil {
		return fiber.ErrNotFound
	}
	img := s.debug.DebugCrop()
	if img == nil {
		return fiber.ErrNotFound
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// handleOverlayWS streams tracker snapshots
func (s *Server) handleOverlayWS(c *websocket.Conn) {
	hub.NewClient(s.overlayHub, c).Run()
}

// handleStatusWS streams status and accepts {"mode": "..."} requests
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.OnMessage = func(data []byte) {
		var req modeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		mode, err := pipeline.ParseMode(req.Mode)
		if err != nil {
			s.logger.Debug("ignored mode request", "mode", req.Mode)
			return
		}
		s.pipeline.SetMode(mode)
		s.BroadcastStatus()
	}
	s.BroadcastStatus()
	client.Run()
}
