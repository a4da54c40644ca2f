// Package audioio plays synthesized speech on the local audio device.
//
// Backends:
//   - command: pipes raw PCM16 into a player process (aplay on Linux,
//     sox "play" on macOS)
//   - mock: records chunks for tests
package audioio

import "time"

// AudioChunk is a block of interleaved PCM16 samples.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// ChunkFromPCM decodes little-endian PCM16 bytes.
func ChunkFromPCM(data []byte, sampleRate, channels int) AudioChunk {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return AudioChunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// Bytes encodes the samples as little-endian PCM16.
func (c AudioChunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(s >> 8)
	}
	return buf
}

// Duration returns the playback time of the chunk.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Resampled returns the chunk converted to rate by linear interpolation.
// Only mono chunks are resampled; other layouts are returned unchanged.
func (c AudioChunk) Resampled(rate int) AudioChunk {
	if rate <= 0 || c.SampleRate == rate || c.Channels != 1 || len(c.Samples) == 0 {
		return c
	}

	step := float64(c.SampleRate) / float64(rate)
	n := int(float64(len(c.Samples)) / step)
	out := make([]int16, n)
	last := len(c.Samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = c.Samples[last]
			continue
		}
		frac := pos - float64(j)
		a, b := float64(c.Samples[j]), float64(c.Samples[j+1])
		out[i] = int16(a + frac*(b-a))
	}
	return AudioChunk{Samples: out, SampleRate: rate, Channels: 1}
}
