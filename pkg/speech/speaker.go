package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-visionaid/pkg/audioio"
	"github.com/teslashibe/go-visionaid/pkg/tts"
)

// Speaker plays announcements. Speak never blocks on synthesis or
// playback, and each call interrupts the previous utterance.
type Speaker interface {
	Speak(text string)
}

// slice is the playback granularity; cancellation is checked between slices.
const slice = 100 * time.Millisecond

// TTSSpeaker synthesizes with a tts.Provider and plays into an audio sink.
type TTSSpeaker struct {
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cancel  context.CancelFunc
	spoken  int64
	dropped int64

	// playMu orders sink access between the current and superseded utterances.
	playMu sync.Mutex
}

// NewTTSSpeaker creates a speaker. Close stops any playback.
func NewTTSSpeaker(provider tts.Provider, sink audioio.Sink, logger *slog.Logger) *TTSSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &TTSSpeaker{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "speech.speaker"),
		ctx:      ctx,
		stop:     stop,
	}
}

// Speak starts playing text, cancelling anything still pending.
func (s *TTSSpeaker) Speak(text string) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.dropped++
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.spoken++
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("speaking", "text", text)
	go s.play(ctx, text)
}

func (s *TTSSpeaker) play(ctx context.Context, text string) {
	defer s.wg.Done()

	// Flush whatever the previous utterance left queued.
	s.playMu.Lock()
	if ctx.Err() == nil {
		s.sink.Clear()
	}
	s.playMu.Unlock()

	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("synthesis failed", "error", err)
		}
		return
	}

	channels := result.Format.Channels
	if channels == 0 {
		channels = 1
	}
	chunk := audioio.ChunkFromPCM(result.Audio, result.Format.SampleRate, channels)

	step := int(slice.Seconds()*float64(chunk.SampleRate)) * channels
	if step <= 0 {
		step = len(chunk.Samples)
	}
	for off := 0; off < len(chunk.Samples); off += step {
		end := min(off+step, len(chunk.Samples))
		part := audioio.AudioChunk{
			Samples:    chunk.Samples[off:end],
			SampleRate: chunk.SampleRate,
			Channels:   channels,
		}

		s.playMu.Lock()
		if ctx.Err() != nil {
			s.playMu.Unlock()
			return
		}
		err := s.sink.Write(ctx, part)
		s.playMu.Unlock()
		if err != nil {
			s.logger.Warn("playback failed", "error", err)
			return
		}
	}
}

// Stats returns how many utterances were started and how many were
// interrupted by a newer one.
func (s *TTSSpeaker) Stats() (spoken, interrupted int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spoken, s.dropped
}

// Close cancels playback and waits for the playing goroutine to exit.
func (s *TTSSpeaker) Close() error {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	s.wg.Wait()
	return s.sink.Clear()
}

// LogSpeaker only logs announcements. It is used when no TTS provider is
// configured.
type LogSpeaker struct {
	Logger *slog.Logger
}

// Speak logs text.
func (l LogSpeaker) Speak(text string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("announcement", "text", text)
}

// Recorder is a Speaker that records texts for tests.
type Recorder struct {
	mu    sync.Mutex
	texts []string
}

// Speak records text.
func (r *Recorder) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

// Texts returns all recorded texts.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

var (
	_ Speaker = (*TTSSpeaker)(nil)
	_ Speaker = LogSpeaker{}
	_ Speaker = (*Recorder)(nil)
)
