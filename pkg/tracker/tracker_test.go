package tracker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-visionaid/pkg/geometry"
)

func newTestTracker() *Tracker {
	tr := New(DefaultConfig(), nil)
	n := 0
	tr.newID = func() string {
		n++
		return fmt.Sprintf("obj-%d", n)
	}
	return tr
}

func car(x, y float64) Observation {
	return Observation{Label: "car", Confidence: 0.9, Box: geometry.NewRect(x, y, 100, 50)}
}

func TestTrack_StationaryKeepsIdentity(t *testing.T) {
	tr := newTestTracker()

	var id string
	for ts := int64(1); ts <= 5; ts++ {
		snap := tr.Track([]Observation{car(10, 10)}, ts)
		require.Len(t, snap.Objects, 1)
		if id == "" {
			id = snap.Objects[0].ID
		}
		assert.Equal(t, id, snap.Objects[0].ID, "frame %d", ts)
		assert.Equal(t, ts, snap.Objects[0].LastSeen)
	}
	assert.Equal(t, int64(1), tr.Objects()[0].FirstSeen)
}

func TestTrack_ExpiryThenNewIdentity(t *testing.T) {
	tr := newTestTracker()
	cfg := DefaultConfig()

	first := tr.Track([]Observation{car(10, 10)}, 1).Objects[0].ID

	ts := int64(2)
	for i := 0; i < cfg.MaxMisses; i++ {
		snap := tr.Track(nil, ts)
		require.Len(t, snap.Objects, 1, "still alive after %d misses", i+1)
		ts++
	}

	snap := tr.Track(nil, ts)
	assert.Empty(t, snap.Objects)
	ts++

	snap = tr.Track([]Observation{car(10, 10)}, ts)
	require.Len(t, snap.Objects, 1)
	assert.NotEqual(t, first, snap.Objects[0].ID)
}

func TestTrack_MissCounterResetsOnMatch(t *testing.T) {
	tr := newTestTracker()

	id := tr.Track([]Observation{car(0, 0)}, 1).Objects[0].ID
	tr.Track(nil, 2)
	tr.Track(nil, 3)
	snap := tr.Track([]Observation{car(0, 0)}, 4)

	require.Len(t, snap.Objects, 1)
	assert.Equal(t, id, snap.Objects[0].ID)
	assert.Equal(t, 0, snap.Objects[0].Misses)
}

func TestTrack_SmoothsBox(t *testing.T) {
	tr := newTestTracker()

	tr.Track([]Observation{car(0, 0)}, 1)
	snap := tr.Track([]Observation{car(10, 0)}, 2)

	require.Len(t, snap.Objects, 1)
	assert.InDelta(t, 7.0, snap.Objects[0].Box.Left, 1e-9)
	assert.InDelta(t, 107.0, snap.Objects[0].Box.Right, 1e-9)
}

func TestTrack_LabelsDoNotMatch(t *testing.T) {
	tr := newTestTracker()

	tr.Track([]Observation{car(0, 0)}, 1)
	truck := car(0, 0)
	truck.Label = "truck"
	snap := tr.Track([]Observation{truck}, 2)

	require.Len(t, snap.Objects, 2)
	assert.Equal(t, "car", snap.Objects[0].Label)
	assert.Equal(t, 1, snap.Objects[0].Misses)
	assert.Equal(t, "truck", snap.Objects[1].Label)
}

func TestTrack_BestOverlapWins(t *testing.T) {
	tr := newTestTracker()

	tr.Track([]Observation{car(0, 0)}, 1)

	// Both overlap the track; the closer one keeps the identity.
	snap := tr.Track([]Observation{car(40, 0), car(5, 0)}, 2)
	require.Len(t, snap.Objects, 2)

	byID := map[string]Object{}
	for _, o := range snap.Objects {
		byID[o.ID] = o
	}
	assert.InDelta(t, 3.5, byID["obj-1"].Box.Left, 1e-9)
	assert.InDelta(t, 40, byID["obj-2"].Box.Left, 1e-9)
}

func TestTrack_FarMovementCreatesNewIdentity(t *testing.T) {
	tr := newTestTracker()

	tr.Track([]Observation{car(0, 0)}, 1)
	snap := tr.Track([]Observation{car(500, 300)}, 2)

	require.Len(t, snap.Objects, 2)
	assert.Equal(t, "obj-2", snap.Objects[1].ID)
}

func TestSnapshot_Isolation(t *testing.T) {
	tr := newTestTracker()

	before := tr.Track([]Observation{car(0, 0)}, 1)
	tr.Track([]Observation{car(20, 0)}, 2)

	assert.Equal(t, int64(1), before.FrameTimestamp)
	assert.InDelta(t, 0, before.Objects[0].Box.Left, 1e-9)

	objs := tr.Objects()
	objs[0].Label = "mutated"
	assert.Equal(t, "car", tr.Snapshot().Objects[0].Label)
}

func TestSetFrameConfiguration(t *testing.T) {
	tr := newTestTracker()
	tr.SetFrameConfiguration(640, 480, 90)

	snap := tr.Snapshot()
	assert.Equal(t, 640, snap.FrameWidth)
	assert.Equal(t, 480, snap.FrameHeight)
	assert.Equal(t, 90, snap.Orientation)
	assert.NotNil(t, snap.Objects)
}

func TestReset(t *testing.T) {
	tr := newTestTracker()
	tr.Track([]Observation{car(0, 0)}, 1)
	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

func TestSnapshot_ConcurrentReaders(t *testing.T) {
	tr := New(DefaultConfig(), nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					for _, o := range tr.Snapshot().Objects {
						_ = o.Box.Width()
					}
				}
			}
		}()
	}

	for ts := int64(1); ts <= 200; ts++ {
		tr.Track([]Observation{car(float64(ts%10), 0)}, ts)
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 1, tr.Len())
}
