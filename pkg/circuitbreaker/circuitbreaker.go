// Package circuitbreaker stops calling a failing dependency for a while so
// that callers with a fallback (the rating cache, mostly) skip it quickly
// instead of waiting on timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrOpen is returned without calling the dependency while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open slots are taken.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config tunes a breaker.
type Config struct {
	Name string

	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// CoolDown is how long the breaker stays open before letting trial calls
	// through.
	CoolDown time.Duration
	// MaxHalfOpenRequests is the number of concurrent calls allowed while
	// half-open.
	MaxHalfOpenRequests int

	OnStateChange func(name string, from, to State)

	// IsFailure decides which errors count. Nil counts every error.
	IsFailure func(error) bool
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		CoolDown:            30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// Option adjusts a Config.
type Option func(*Config)

func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

func WithCoolDown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CoolDown = d
		}
	}
}

func WithMaxHalfOpenRequests(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxHalfOpenRequests = n
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

// ═══════════════════════════════════════════════════════════════════════════
// BREAKER
// ═══════════════════════════════════════════════════════════════════════════

// Counts is a snapshot of breaker statistics.
type Counts struct {
	Calls                int
	Failures             int
	Rejected             int
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
}

// Breaker guards calls to one dependency. It is safe for concurrent use.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	halfOpen int
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	cfg := DefaultConfig(name)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Breaker{cfg: cfg, now: time.Now, state: StateClosed}
}

// Execute calls fn unless the breaker rejects it.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.CoolDown {
			b.counts.Rejected++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.halfOpen = 1
		return nil
	default:
		if b.halfOpen >= b.cfg.MaxHalfOpenRequests {
			b.counts.Rejected++
			return ErrTooManyRequests
		}
		b.halfOpen++
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts.Calls++
	failed := err != nil
	if failed && b.cfg.IsFailure != nil {
		failed = b.cfg.IsFailure(err)
	}

	if !failed {
		b.counts.ConsecutiveFailures = 0
		b.counts.ConsecutiveSuccesses++
		if b.state == StateHalfOpen {
			if b.halfOpen > 0 {
				b.halfOpen--
			}
			if b.counts.ConsecutiveSuccesses >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveSuccesses = 0
	b.counts.ConsecutiveFailures++
	switch b.state {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.counts.ConsecutiveFailures = 0
	b.counts.ConsecutiveSuccesses = 0
	b.halfOpen = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a statistics snapshot.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Name returns the configured name.
func (b *Breaker) Name() string { return b.cfg.Name }

// IsRejection reports whether err came from the breaker rather than the call.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests)
}

// ───────────────────────────────────────────────────────────────────────────
// Presets
// ───────────────────────────────────────────────────────────────────────────

// CacheBreaker trips fast and recovers fast. Cache callers always have the
// store to fall back to.
func CacheBreaker(onStateChange func(name string, from, to State)) *Breaker {
	return New(
		"rating-cache",
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithCoolDown(15*time.Second),
		WithMaxHalfOpenRequests(1),
		WithOnStateChange(onStateChange),
	)
}
