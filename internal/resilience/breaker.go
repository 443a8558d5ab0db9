// Package resilience guards the outbound transport. The breaker only fails
// fast; it never retries a call.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes a Breaker. A disabled config yields a breaker that lets
// everything through.
type Config struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenProbes   int
}

// DefaultConfig returns an enabled breaker config.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenProbes:   1,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenProbes < 1 {
		c.HalfOpenProbes = d.HalfOpenProbes
	}
	return c
}

// Breaker counts consecutive failures of one dependency and, past the
// threshold, rejects calls until OpenTimeout has elapsed. A nil *Breaker is
// valid and never trips.
type Breaker struct {
	mu  sync.Mutex
	cfg Config

	state     State
	failures  int
	openedAt  time.Time
	inFlight  int
	successes int
	now       func() time.Time
}

// New returns a Breaker, or nil when cfg is disabled.
func New(cfg Config) *Breaker {
	if !cfg.Enabled {
		return nil
	}
	return &Breaker{
		cfg:   cfg.normalize(),
		state: StateClosed,
		now:   time.Now,
	}
}

// Do runs fn if the breaker admits it and records the outcome. Context
// cancellation is not counted against the dependency.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn(ctx)
	switch {
	case err == nil:
		b.RecordSuccess()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		b.release()
	default:
		b.RecordFailure()
	}
	return err
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.inFlight, b.successes = 0, 0
	}
	if b.state == StateHalfOpen {
		if b.inFlight >= b.cfg.HalfOpenProbes {
			return ErrCircuitOpen
		}
		b.inFlight++
	}
	return nil
}

// RecordSuccess resets the failure count; enough half-open successes close
// the breaker.
func (b *Breaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.dropProbe()
		b.successes++
		if b.successes >= b.cfg.HalfOpenProbes && b.inFlight == 0 {
			b.state = StateClosed
			b.failures, b.successes = 0, 0
			b.openedAt = time.Time{}
		}
	}
}

// RecordFailure counts a failure and trips the breaker at the threshold.
func (b *Breaker) RecordFailure() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case StateHalfOpen:
		b.trip()
	case StateOpen:
		b.openedAt = b.now()
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	if b == nil {
		return StateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

// release frees a half-open probe slot without recording an outcome.
func (b *Breaker) release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.dropProbe()
	}
}

func (b *Breaker) dropProbe() {
	if b.inFlight > 0 {
		b.inFlight--
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.inFlight, b.successes = 0, 0
}
