// Package tts turns short announcements into playable audio.
//
// Providers return 16-bit mono PCM so the result can be written straight to
// an audioio.Sink. Google Cloud Text-to-Speech and OpenAI are supported, and
// a Chain tries several providers in order.
//
//	provider, _ := tts.NewGoogle(ctx, tts.WithLanguage("en-US"))
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "car detected, at distance 7.75 meters")
//	// result.Audio holds PCM16 samples at result.Format.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Audio holds little-endian PCM16 samples.
	Audio []byte

	Format AudioFormat

	// Duration is the playback duration derived from the sample count.
	Duration time.Duration

	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes PCM parameters.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// PCM16Mono returns the mono 16-bit format at rate.
func PCM16Mono(rate int) AudioFormat {
	return AudioFormat{SampleRate: rate, Channels: 1, BitDepth: 16}
}

// BytesPerSecond returns the byte rate of the format.
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// DurationOf returns how long n bytes of audio in this format play for.
func (f AudioFormat) DurationOf(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
