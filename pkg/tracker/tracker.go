// Package tracker keeps object identity stable across frames.
//
// Each call to Track associates the frame's detections with the objects
// already being tracked, smooths matched boxes, creates new identities for
// unmatched detections and expires objects that have gone unseen for too
// many consecutive frames. Readers get an immutable Snapshot that is safe to
// use while the next Track call runs.
package tracker

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/go-visionaid/pkg/geometry"
)

// Config holds association and smoothing parameters.
type Config struct {
	// MatchIoU is the minimum overlap for a detection to continue a track.
	MatchIoU float64 `json:"match_iou" yaml:"match_iou"`

	// Smoothing is the weight of the new box when blending (0-1).
	Smoothing float64 `json:"smoothing" yaml:"smoothing"`

	// MaxMisses is how many consecutive frames an object may go unmatched
	// before it is removed.
	MaxMisses int `json:"max_misses" yaml:"max_misses"`
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MatchIoU:  0.3,
		Smoothing: 0.7,
		MaxMisses: 5,
	}
}

// Observation is one detection in frame coordinates.
type Observation struct {
	Label      string
	Confidence float64
	Box        geometry.Rect
	Distance   float64 // meters, 0 = unknown
}

// Object is a tracked identity.
type Object struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	Box        geometry.Rect `json:"box"`
	Distance   float64       `json:"distance"`
	FirstSeen  int64         `json:"first_seen"` // frame timestamp
	LastSeen   int64         `json:"last_seen"`  // frame timestamp
	Misses     int           `json:"misses"`
}

// Snapshot is a point-in-time copy of the tracked objects.
type Snapshot struct {
	FrameTimestamp int64    `json:"frame_timestamp"`
	FrameWidth     int      `json:"frame_width"`
	FrameHeight    int      `json:"frame_height"`
	Orientation    int      `json:"orientation"`
	Objects        []Object `json:"objects"`
}

// Tracker associates detections with identities across frames.
type Tracker struct {
	config Config
	logger *slog.Logger
	newID  func() string

	mu      sync.Mutex
	objects []*Object
	frameW  int
	frameH  int
	orient  int

	snapshot atomic.Pointer[Snapshot]
}

// New creates a tracker.
func New(cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		config: cfg,
		logger: logger.With("component", "tracker"),
		newID:  uuid.NewString,
	}
	t.snapshot.Store(&Snapshot{Objects: []Object{}})
	return t
}

// SetFrameConfiguration records the frame size and sensor orientation that
// the overlay needs to scale boxes onto the display.
func (t *Tracker) SetFrameConfiguration(width, height, orientation int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frameW, t.frameH, t.orient = width, height, orientation
	t.publishLocked(t.snapshot.Load().FrameTimestamp)
}

type pair struct {
	obj, det int
	iou      float64
	dist     float64
}

// Track updates the tracked set with one frame's observations and returns
// the published snapshot. Boxes must be in frame coordinates.
func (t *Tracker) Track(observations []Observation, timestamp int64) *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pairs []pair
	for oi, obj := range t.objects {
		for di, obs := range observations {
			if obj.Label != obs.Label {
				continue
			}
			iou := geometry.IoU(obj.Box, obs.Box)
			if iou < t.config.MatchIoU || iou == 0 {
				continue
			}
			pairs = append(pairs, pair{
				obj:  oi,
				det:  di,
				iou:  iou,
				dist: geometry.CenterDistance(obj.Box, obs.Box),
			})
		}
	}

	// Highest overlap wins; ties go to the closest centers.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].iou != pairs[j].iou {
			return pairs[i].iou > pairs[j].iou
		}
		return pairs[i].dist < pairs[j].dist
	})

	objMatched := make([]bool, len(t.objects))
	detMatched := make([]bool, len(observations))
	for _, p := range pairs {
		if objMatched[p.obj] || detMatched[p.det] {
			continue
		}
		objMatched[p.obj] = true
		detMatched[p.det] = true

		obj := t.objects[p.obj]
		obs := observations[p.det]
		obj.Box = geometry.Blend(obj.Box, obs.Box, t.config.Smoothing)
		obj.Confidence = obs.Confidence
		obj.Distance = obs.Distance
		obj.LastSeen = timestamp
		obj.Misses = 0
	}

	alive := t.objects[:0]
	for i, obj := range t.objects {
		if !objMatched[i] {
			obj.Misses++
			if obj.Misses > t.config.MaxMisses {
				t.logger.Debug("object expired", "id", obj.ID, "label", obj.Label, "last_seen", obj.LastSeen)
				continue
			}
		}
		alive = append(alive, obj)
	}
	// Clear the tail so expired objects can be collected.
	for i := len(alive); i < len(t.objects); i++ {
		t.objects[i] = nil
	}
	t.objects = alive

	for i, obs := range observations {
		if detMatched[i] {
			continue
		}
		obj := &Object{
			ID:         t.newID(),
			Label:      obs.Label,
			Confidence: obs.Confidence,
			Box:        obs.Box,
			Distance:   obs.Distance,
			FirstSeen:  timestamp,
			LastSeen:   timestamp,
		}
		t.objects = append(t.objects, obj)
		t.logger.Debug("object created", "id", obj.ID, "label", obj.Label)
	}

	return t.publishLocked(timestamp)
}

// Snapshot returns the latest published snapshot. Callers must not modify it.
func (t *Tracker) Snapshot() *Snapshot {
	return t.snapshot.Load()
}

// Objects returns a copy of the currently tracked objects.
func (t *Tracker) Objects() []Object {
	s := t.snapshot.Load()
	out := make([]Object, len(s.Objects))
	copy(out, s.Objects)
	return out
}

// Len returns the number of tracked objects.
func (t *Tracker) Len() int {
	return len(t.snapshot.Load().Objects)
}

// Reset drops every tracked object.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects = nil
	t.publishLocked(t.snapshot.Load().FrameTimestamp)
}

func (t *Tracker) publishLocked(timestamp int64) *Snapshot {
	s := &Snapshot{
		FrameTimestamp: timestamp,
		FrameWidth:     t.frameW,
		FrameHeight:    t.frameH,
		Orientation:    t.orient,
		Objects:        make([]Object, len(t.objects)),
	}
	for i, obj := range t.objects {
		s.Objects[i] = *obj
	}
	t.snapshot.Store(s)
	return s
}
