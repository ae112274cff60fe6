package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "veriscope/internal/platform/errors"
)

var errUpstream = errors.New("upstream down")

func newTestBreaker(o Options) (*Breaker, *time.Time) {
	b := New(o)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(ctx context.Context) error { return errUpstream }
func ok(ctx context.Context) error   { return nil }

func TestTransitionSequence(t *testing.T) {
	b, now := newTestBreaker(Options{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 60 * time.Second})
	ctx := context.Background()

	// 5 consecutive failures open the breaker
	for i := 0; i < 5; i++ {
		if err := b.Do(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v", i+1, err)
		}
	}
	if st := b.Status(); st.State != StateOpen {
		t.Fatalf("state = %v, want open", st.State)
	}

	// before the timeout the wrapped fn must not be invoked
	calls := 0
	err := b.Do(ctx, func(context.Context) error { calls++; return nil })
	if calls != 0 {
		t.Fatalf("fn invoked while open")
	}
	if !perr.IsCode(err, perr.ErrorCodeBreakerOpen) {
		t.Fatalf("err code = %v", perr.CodeOf(err))
	}
	if perr.RetryAfterOf(err) <= 0 {
		t.Fatalf("open rejection should carry retry-after")
	}

	// after the timeout the call is attempted (half-open)
	*now = now.Add(61 * time.Second)
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe 1: %v", err)
	}
	if st := b.Status(); st.State != StateHalfOpen || st.Successes != 1 {
		t.Fatalf("after probe 1: %+v", st)
	}

	// exactly 2 consecutive successes close it
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe 2: %v", err)
	}
	if st := b.Status(); st.State != StateClosed || st.Failures != 0 || st.Successes != 0 {
		t.Fatalf("after probe 2: %+v", st)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(Options{FailureThreshold: 2, SuccessThreshold: 2, Timeout: 10 * time.Second})
	ctx := context.Background()

	b.Do(ctx, fail)
	b.Do(ctx, fail)
	if b.Status().State != StateOpen {
		t.Fatalf("not open")
	}

	*now = now.Add(11 * time.Second)
	if err := b.Do(ctx, fail); !errors.Is(err, errUpstream) {
		t.Fatalf("probe err = %v", err)
	}
	st := b.Status()
	if st.State != StateOpen || st.Successes != 0 {
		t.Fatalf("bad probe should reopen, got %+v", st)
	}
}

func TestClosedSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(Options{FailureThreshold: 3})
	ctx := context.Background()

	b.Do(ctx, fail)
	b.Do(ctx, fail)
	b.Do(ctx, ok)
	if st := b.Status(); st.Failures != 0 {
		t.Fatalf("failures = %d after success", st.Failures)
	}
	// two more failures stay under the threshold thanks to the reset
	b.Do(ctx, fail)
	b.Do(ctx, fail)
	if st := b.Status(); st.State != StateClosed {
		t.Fatalf("state = %v", st.State)
	}
}

func TestWindowPruning(t *testing.T) {
	b, now := newTestBreaker(Options{FailureThreshold: 3, Window: 120 * time.Second})
	ctx := context.Background()

	b.Do(ctx, fail)
	b.Do(ctx, fail)

	// old failures fall out of the monitoring window
	*now = now.Add(3 * time.Minute)
	b.Do(ctx, fail)
	if st := b.Status(); st.State != StateClosed || st.Failures != 1 {
		t.Fatalf("window pruning failed: %+v", st)
	}
}

func TestManualReset(t *testing.T) {
	b, _ := newTestBreaker(Options{FailureThreshold: 1})
	ctx := context.Background()

	b.Do(ctx, fail)
	if b.Status().State != StateOpen {
		t.Fatalf("not open")
	}
	b.Reset()
	if st := b.Status(); st.State != StateClosed || st.Failures != 0 {
		t.Fatalf("reset failed: %+v", st)
	}
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("call after reset: %v", err)
	}
}

func TestCallerCancellationIsNotAFailure(t *testing.T) {
	b, now := newTestBreaker(Options{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 60 * time.Second})
	ctx := context.Background()

	canceled := func(context.Context) error { return context.Canceled }
	for i := 0; i < 10; i++ {
		if err := b.Do(ctx, canceled); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: err = %v", i+1, err)
		}
	}
	if st := b.Status(); st.State != StateClosed || st.Failures != 0 {
		t.Fatalf("abandoned callers counted as failures: %+v", st)
	}

	// a half-open probe abandoned by its caller does not reopen the breaker
	for i := 0; i < 5; i++ {
		b.Do(ctx, fail)
	}
	if b.Status().State != StateOpen {
		t.Fatalf("not open")
	}
	*now = now.Add(61 * time.Second)
	if err := b.Do(ctx, canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("probe err = %v", err)
	}
	if st := b.Status(); st.State != StateHalfOpen {
		t.Fatalf("abandoned probe changed state: %+v", st)
	}
}
