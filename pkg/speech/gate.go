// Package speech announces pipeline results through text-to-speech.
//
// A Gate rate-limits announcements; a Speaker plays them with flush
// semantics, so a new utterance replaces whatever is still playing.
package speech

import (
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-visionaid/internal/timeutil"
)

// Gate allows at most one announcement per window. All callers share one
// last-spoken timestamp, so different windows interact: a detection
// announcement also delays the next text announcement and vice versa.
type Gate struct {
	clock timeutil.Clock
	last  atomic.Pointer[time.Time] // nil until the first allowed call
}

// NewGate creates a gate. A nil clock uses the wall clock.
func NewGate(clock timeutil.Clock) *Gate {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Gate{clock: clock}
}

// Allow reports whether at least window has passed since the last allowed
// call and, if so, records now as the last speech time. Safe for
// concurrent use; exactly one of several racing callers wins.
func (g *Gate) Allow(window time.Duration) bool {
	now := g.clock.Now()
	for {
		last := g.last.Load()
		if last != nil && now.Sub(*last) < window {
			return false
		}
		if g.last.CompareAndSwap(last, &now) {
			return true
		}
	}
}

// LastSpeech returns the time of the last allowed call, zero if none.
func (g *Gate) LastSpeech() time.Time {
	if last := g.last.Load(); last != nil {
		return *last
	}
	return time.Time{}
}

// Reset forgets the last speech time.
func (g *Gate) Reset() {
	g.last.Store(nil)
}
