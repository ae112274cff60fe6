// Package breaker implements a circuit breaker guarding the upstream identity service.
// Legal transitions: Closed->Open (threshold exceeded), Open->HalfOpen (timeout
// elapsed), HalfOpen->Closed (enough consecutive successes), HalfOpen->Open (any failure)
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	perr "veriscope/internal/platform/errors"
	"veriscope/internal/platform/logger"
)

// State is the breaker state
type State string

const (
	// StateClosed allows all calls and counts recent failures
	StateClosed State = "closed"
	// StateOpen rejects all calls until the open timeout elapses
	StateOpen State = "open"
	// StateHalfOpen lets probe calls through to test recovery
	StateHalfOpen State = "half_open"
)

// Options configures a Breaker
type Options struct {
	// FailureThreshold opens the breaker after this many failures within Window
	FailureThreshold int
	// SuccessThreshold closes the breaker after this many consecutive half-open successes
	SuccessThreshold int
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// Window bounds how far back failures count toward the threshold
	Window time.Duration
}

func (o *Options) defaults() {
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 5
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Window <= 0 {
		o.Window = 120 * time.Second
	}
}

// Status is a read-only snapshot for observability
type Status struct {
	State     State `json:"state"`
	Failures  int   `json:"failures"`
	Successes int   `json:"successes"`
}

// Breaker tracks upstream health and sheds load while unhealthy
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    []time.Time // pruned to Window on each failure
	successes   int
	lastFailure time.Time
	opts        Options
	log         logger.Logger

	now func() time.Time
}

// New constructs a closed Breaker
func New(o Options) *Breaker {
	o.defaults()
	return &Breaker{
		state: StateClosed,
		opts:  o,
		log:   *logger.Named("breaker"),
		now:   time.Now,
	}
}

// Do runs fn under the breaker.
// While open it rejects immediately with a BreakerOpen error carrying a
// retry-after hint; fn is never invoked in that case
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

// before decides whether the call may proceed, transitioning Open->HalfOpen when due
func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}

	elapsed := b.now().Sub(b.lastFailure)
	if elapsed < b.opts.Timeout {
		wait := b.opts.Timeout - elapsed
		return perr.WithRetryAfter(
			perr.BreakerOpenf("upstream temporarily unavailable, retry in %ds", int((wait+time.Second-1)/time.Second)),
			wait,
		)
	}

	b.state = StateHalfOpen
	b.successes = 0
	b.log.Info().Msg("breaker half-open, probing upstream")
	return nil
}

// after records the call outcome and applies transitions
func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if err == nil {
		switch b.state {
		case StateHalfOpen:
			b.successes++
			if b.successes >= b.opts.SuccessThreshold {
				b.toClosed()
			}
		case StateClosed:
			// any success clears the failure run
			b.failures = b.failures[:0]
		}
		return
	}

	// caller abandonment says nothing about upstream health
	if errors.Is(err, context.Canceled) {
		return
	}

	switch b.state {
	case StateHalfOpen:
		// one bad probe reopens the breaker
		b.toOpen(now)
	case StateClosed:
		b.failures = append(b.failures, now)
		b.pruneLocked(now)
		if len(b.failures) >= b.opts.FailureThreshold {
			b.toOpen(now)
		}
	}
}

func (b *Breaker) toOpen(now time.Time) {
	b.state = StateOpen
	b.lastFailure = now
	b.successes = 0
	b.log.Warn().Int("failures", len(b.failures)).Msg("breaker opened")
}

func (b *Breaker) toClosed() {
	b.state = StateClosed
	b.failures = b.failures[:0]
	b.successes = 0
	b.log.Info().Msg("breaker closed")
}

// pruneLocked drops failures older than the monitoring window
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.opts.Window)
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = kept
}

// Status returns a read-only snapshot
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{State: b.state, Failures: len(b.failures), Successes: b.successes}
}

// Reset clears all state back to Closed
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toClosed()
}
