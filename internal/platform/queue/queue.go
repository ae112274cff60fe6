// Package queue bounds concurrency and request rate toward the upstream,
// independent of caller concurrency. It shapes outbound load only and has
// no knowledge of cache or breaker state
package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"veriscope/internal/platform/logger"
)

// Options configures a Queue
type Options struct {
	// MaxConcurrent bounds in-flight dispatched work
	MaxConcurrent int
	// MaxPerSecond bounds dispatches within any trailing second
	MaxPerSecond int
	// MaxPerMinute bounds dispatches within any trailing minute
	MaxPerMinute int
	// DispatchDelay smooths bursts after each completion
	DispatchDelay time.Duration
}

func (o *Options) defaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
	if o.MaxPerSecond <= 0 {
		o.MaxPerSecond = 8
	}
	if o.MaxPerMinute <= 0 {
		o.MaxPerMinute = 90
	}
	if o.DispatchDelay <= 0 {
		o.DispatchDelay = 100 * time.Millisecond
	}
}

// Status is a read-only snapshot for observability
type Status struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

type entry struct {
	priority int
	run      func()
}

// Queue dispatches deferred units of work under concurrency and rate caps.
// Pending entries are ordered by descending priority; arrival order is the
// tie-break because the sort is stable
type Queue struct {
	mu       sync.Mutex
	opts     Options
	active   int
	pending  []*entry
	recent   []time.Time // rolling log of dispatch timestamps, pruned to one minute
	armed    bool        // a deferred dispatch attempt is scheduled
	log      logger.Logger
	now      func() time.Time
	schedule func(time.Duration, func()) // time.AfterFunc seam
}

// New constructs a Queue with defaults applied
func New(o Options) *Queue {
	o.defaults()
	return &Queue{
		opts: o,
		log:  *logger.Named("queue"),
		now:  time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// Do enqueues fn and blocks until it completes or ctx is done.
// A queued-but-not-yet-dispatched entry is not removed on ctx cancellation;
// the caller merely stops waiting and the eventual result is discarded
func (q *Queue) Do(ctx context.Context, priority int, fn func(context.Context) error) error {
	res := make(chan error, 1)
	e := &entry{
		priority: priority,
		run:      func() { res <- fn(ctx) },
	}

	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
	q.dispatch()

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns current active and pending counts
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{Active: q.active, Pending: len(q.pending)}
}

// dispatch drains the pending list while the admission test passes
func (q *Queue) dispatch() {
	q.mu.Lock()
	for {
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}

		now := q.now()
		q.pruneLocked(now)
		if !q.admissibleLocked(now) {
			q.armLocked()
			q.mu.Unlock()
			return
		}

		sort.SliceStable(q.pending, func(i, j int) bool {
			return q.pending[i].priority > q.pending[j].priority
		})
		e := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		q.recent = append(q.recent, now)

		go q.runEntry(e)
	}
}

// runEntry executes one dispatched entry and schedules the next attempt
func (q *Queue) runEntry(e *entry) {
	defer func() {
		q.mu.Lock()
		q.active--
		q.mu.Unlock()
		q.schedule(q.opts.DispatchDelay, q.dispatch)
	}()
	e.run()
}

// admissibleLocked applies the three-part admission test; callers hold the mutex
func (q *Queue) admissibleLocked(now time.Time) bool {
	if q.active >= q.opts.MaxConcurrent {
		return false
	}
	lastSecond := 0
	cutoff := now.Add(-time.Second)
	for _, ts := range q.recent {
		if ts.After(cutoff) {
			lastSecond++
		}
	}
	if lastSecond >= q.opts.MaxPerSecond {
		return false
	}
	return len(q.recent) < q.opts.MaxPerMinute
}

// armLocked schedules a deferred dispatch attempt if none is pending
func (q *Queue) armLocked() {
	if q.armed {
		return
	}
	q.armed = true
	q.schedule(q.opts.DispatchDelay, func() {
		q.mu.Lock()
		q.armed = false
		q.mu.Unlock()
		q.dispatch()
	})
}

// pruneLocked drops dispatch timestamps older than one minute
func (q *Queue) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := q.recent[:0]
	for _, ts := range q.recent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	q.recent = kept
}
