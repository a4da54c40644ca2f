package web

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-visionaid/pkg/hub"
	"github.com/teslashibe/go-visionaid/pkg/pipeline"
	"github.com/teslashibe/go-visionaid/pkg/tracker"
)

// OverlayMessage is pushed to overlay clients.
type OverlayMessage struct {
	Type     string            `json:"type"`
	Mode     pipeline.Mode     `json:"mode"`
	Snapshot *tracker.Snapshot `json:"snapshot"`
}

// ModeSource reports the pipeline mode.
type ModeSource interface {
	Mode() pipeline.Mode
}

// Publisher turns repaint requests into overlay broadcasts. Requests that
// arrive while a publish is pending collapse into one, and unchanged
// snapshots are not re-sent.
type Publisher struct {
	hub      *hub.Hub
	tracks   Tracks
	modes    ModeSource
	interval time.Duration
	pending  chan struct{}

	last     *tracker.Snapshot
	lastMode pipeline.Mode

	invalidations atomic.Int64
	published     atomic.Int64
}

// NewPublisher creates a publisher. interval is the minimum gap between
// broadcasts; zero publishes on every request.
func NewPublisher(h *hub.Hub, tracks Tracks, modes ModeSource, interval time.Duration) *Publisher {
	return &Publisher{
		hub:      h,
		tracks:   tracks,
		modes:    modes,
		interval: interval,
		pending:  make(chan struct{}, 1),
	}
}

// Invalidate requests a repaint. It never blocks.
func (p *Publisher) Invalidate() {
	p.invalidations.Add(1)
	select {
	case p.pending <- struct{}{}:
	default:
	}
}

// Run publishes until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.pending:
			p.publish()
		}

		if p.interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval):
			}
		}
	}
}

func (p *Publisher) publish() {
	snap := p.tracks.Snapshot()
	mode := p.modes.Mode()
	if snap == nil || (snap == p.last && mode == p.lastMode) {
		return
	}
	p.last, p.lastMode = snap, mode

	if err := p.hub.BroadcastJSON(OverlayMessage{Type: "tracks", Mode: mode, Snapshot: snap}); err == nil {
		p.published.Add(1)
	}
}

// Counts returns how many repaints were requested and how many snapshots
// were broadcast.
func (p *Publisher) Counts() (invalidations, published int64) {
	return p.invalidations.Load(), p.published.Load()
}
