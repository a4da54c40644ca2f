package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/teslashibe/go-visionaid/internal/timeutil"
)

// Chain implements Provider by trying providers in order. A provider that
// fails is benched for the cooldown so later announcements go straight to
// the next one. Recent phrases are served from a cache; fixed
// announcements such as mode confirmations repeat often.
type Chain struct {
	providers []Provider
	cooldown  time.Duration
	clock     timeutil.Clock
	cache     *lru.Cache
	logger    *slog.Logger

	mu      sync.Mutex
	benched []time.Time // per provider, zero when available
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithCooldown sets how long a failed provider is skipped. Zero disables
// benching.
func WithCooldown(d time.Duration) ChainOption {
	return func(c *Chain) { c.cooldown = d }
}

// WithCache keeps the audio for the n most recent phrases. Zero disables
// caching.
func WithCache(n int) ChainOption {
	return func(c *Chain) {
		c.cache = nil
		if n > 0 {
			c.cache, _ = lru.New(n)
		}
	}
}

// WithChainClock sets the clock used for cooldowns.
func WithChainClock(clock timeutil.Clock) ChainOption {
	return func(c *Chain) { c.clock = clock }
}

// WithChainLogger sets the logger.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger }
}

// NewChain creates a chain over providers, tried in order.
// At least one provider is required.
func NewChain(providers []Provider, opts ...ChainOption) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	c := &Chain{
		providers: providers,
		cooldown:  30 * time.Second,
		clock:     timeutil.RealClock{},
		benched:   make([]time.Time, len(providers)),
	}
	c.cache, _ = lru.New(32)
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "tts.chain")
	return c, nil
}

// Synthesize returns cached audio for text or asks each available
// provider in turn. When every provider is benched, all are tried.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return nil, ErrEmptyText
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(*AudioResult), nil
		}
	}

	order := c.order()
	attempts := make([]Attempt, 0, len(order))
	for _, i := range order {
		result, err := c.providers[i].Synthesize(ctx, text)
		if err == nil {
			c.restore(i)
			if len(attempts) > 0 {
				c.logger.Info("fallback provider succeeded", "provider_index", i, "failed", len(attempts))
			}
			if c.cache != nil {
				c.cache.Add(key, result)
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		attempts = append(attempts, Attempt{Provider: i, Err: err})
		c.bench(i)
		c.logger.Warn("provider failed", "provider_index", i, "error", err)
	}
	return nil, &ChainError{Attempts: attempts}
}

// order returns the available provider indexes, or all of them when
// every provider is benched.
func (c *Chain) order() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var ready []int
	for i, until := range c.benched {
		if until.IsZero() || !now.Before(until) {
			ready = append(ready, i)
		}
	}
	if len(ready) == 0 {
		for i := range c.providers {
			ready = append(ready, i)
		}
	}
	return ready
}

func (c *Chain) bench(i int) {
	if c.cooldown <= 0 {
		return
	}
	c.mu.Lock()
	c.benched[i] = c.clock.Now().Add(c.cooldown)
	c.mu.Unlock()
}

func (c *Chain) restore(i int) {
	c.mu.Lock()
	c.benched[i] = time.Time{}
	c.mu.Unlock()
}

// Benched reports which providers are currently skipped.
func (c *Chain) Benched() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	out := make([]bool, len(c.benched))
	for i, until := range c.benched {
		out[i] = !until.IsZero() && now.Before(until)
	}
	return out
}

// Health succeeds when any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("tts chain: no healthy provider: %w", errors.Join(errs...))
}

// Close closes every provider and drops the cache.
func (c *Chain) Close() error {
	if c.cache != nil {
		c.cache.Purge()
	}
	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Attempt is one failed provider call.
type Attempt struct {
	Provider int // index in the chain
	Err      error
}

// ChainError reports every provider that failed for one phrase.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("#%d: %v", a.Provider, a.Err)
	}
	return "tts chain: all providers failed (" + strings.Join(parts, "; ") + ")"
}

// Unwrap exposes each provider error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	out := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Err
	}
	return out
}

var _ Provider = (*Chain)(nil)
