package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("audioio: sink closed")

// CommandSink streams PCM16 into the stdin of a player process. The
// process is started on the first write and killed by Clear, so a new
// utterance never waits behind an old one.
type CommandSink struct {
	cfg    Config
	argv   []string
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	clears         atomic.Int64
}

// NewCommandSink creates a sink that runs argv for playback.
func NewCommandSink(cfg Config, argv []string, logger *slog.Logger) (*CommandSink, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("audioio: no player command")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("audioio: player %q not found: %w", argv[0], err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSink{
		cfg:    cfg,
		argv:   argv,
		logger: logger.With("component", "audioio.command"),
	}, nil
}

// Write sends a chunk to the player, starting it if needed.
func (s *CommandSink) Write(ctx context.Context, chunk AudioChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunk = chunk.Resampled(s.cfg.SampleRate)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.cmd == nil {
		if err := s.startLocked(); err != nil {
			return err
		}
	}

	if _, err := s.stdin.Write(chunk.Bytes()); err != nil {
		// Player died; the next write starts a fresh one.
		s.stopLocked()
		return fmt.Errorf("write to player: %w", err)
	}

	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(chunk.Samples)))
	return nil
}

// Clear kills the player, dropping queued audio.
func (s *CommandSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		s.stopLocked()
		s.clears.Add(1)
	}
	return nil
}

// Config returns the audio configuration.
func (s *CommandSink) Config() Config {
	return s.cfg
}

// Name returns "command".
func (s *CommandSink) Name() string {
	return string(BackendCommand)
}

// Close stops the player. The sink cannot be reused.
func (s *CommandSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopLocked()
	return nil
}

// Stats returns sink statistics.
func (s *CommandSink) Stats() SinkStats {
	return SinkStats{
		ChunksWritten:  s.chunksWritten.Load(),
		SamplesWritten: s.samplesWritten.Load(),
		Clears:         s.clears.Load(),
		Backend:        s.Name(),
	}
}

func (s *CommandSink) startLocked() error {
	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.logger.Debug("player started", "pid", cmd.Process.Pid)
	return nil
}

func (s *CommandSink) stopLocked() {
	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cmd = nil
}

// Ensure CommandSink implements SinkWithStats.
var _ SinkWithStats = (*CommandSink)(nil)
