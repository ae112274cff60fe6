// Package retry wraps a single upstream call with bounded exponential
// backoff, jitter, and class-aware retry decisions.
// It composes underneath the breaker and inside one queued unit of work:
// retries never cross separate queue admissions
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	perr "veriscope/internal/platform/errors"
	"veriscope/internal/platform/logger"
)

// Options configures one retried call
type Options struct {
	// MaxRetries is the number of re-attempts after the first call
	MaxRetries int
	// InitialDelay seeds the exponential backoff
	InitialDelay time.Duration
	// MaxDelay caps the pre-jitter backoff
	MaxDelay time.Duration
	// Multiplier grows the delay per attempt (default 2)
	Multiplier float64
	// Jitter is the upper bound of the random addition per delay
	Jitter time.Duration
	// ShouldRetry decides per error and 0-indexed attempt; nil uses the default predicate
	ShouldRetry func(err error, attempt int) bool
	// OnRetry observes each scheduled retry
	OnRetry func(err error, attempt int, delay time.Duration)
}

func (o *Options) defaults() {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2
	}
	// jitter desynchronizes concurrent callers retrying the same outage
	if o.Jitter <= 0 {
		o.Jitter = 250 * time.Millisecond
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = DefaultShouldRetry
	}
}

// DefaultShouldRetry retries rate limits, upstream failures, timeouts, and
// unclassified transport errors; 4xx-class codes are never retried
func DefaultShouldRetry(err error, _ int) bool { return perr.Retryable(err) }

// seams for tests
var (
	sleep  = sleepCtx
	jitter = func(max time.Duration) time.Duration {
		if max <= 0 {
			return 0
		}
		return time.Duration(rand.Int63n(int64(max)))
	}
)

// Do runs fn, retrying per opts. On exhausting retries the last observed
// error is returned unchanged so upstream classification still works
func Do(ctx context.Context, opts Options, fn func(context.Context) error) error {
	opts.defaults()
	log := logger.Named("retry")

	var last error
	for attempt := 0; ; attempt++ {
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if attempt >= opts.MaxRetries || !opts.ShouldRetry(last, attempt) {
			return last
		}

		delay := Backoff(attempt, opts) + jitter(opts.Jitter)
		// an upstream retry-after hint overrides a shorter computed delay
		if hint := perr.RetryAfterOf(last); hint > delay {
			delay = hint
		}

		if opts.OnRetry != nil {
			opts.OnRetry(last, attempt, delay)
		}
		log.Debug().Err(last).Int("attempt", attempt).Dur("delay", delay).Msg("retrying upstream call")

		if err := sleep(ctx, delay); err != nil {
			return last
		}
	}
}

// Backoff computes the pre-jitter delay for a 0-indexed attempt:
// min(initial * multiplier^attempt, max)
func Backoff(attempt int, opts Options) time.Duration {
	opts.defaults()
	d := float64(opts.InitialDelay) * math.Pow(opts.Multiplier, float64(attempt))
	if d > float64(opts.MaxDelay) {
		return opts.MaxDelay
	}
	return time.Duration(d)
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
