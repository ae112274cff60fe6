// Package ratelimit implements the per-source-address admission gate.
// It throttles the inbound side only; the breaker and queue shape the
// outbound side independently
package ratelimit

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"veriscope/internal/platform/logger"
)

const (
	// DefaultWindow is the admission window per source address
	DefaultWindow = time.Hour

	// DefaultLimit is the number of requests allowed per window
	DefaultLimit = 25

	// sweepChance is the per-call probability of sweeping expired records
	sweepChance = 0.01
)

// Decision is the outcome of an admission check
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Message   string
}

// record tracks one source address within its current window.
// A record past its window is replaced, never incremented
type record struct {
	count   int
	resetAt time.Time
}

// Options configures a Gate
type Options struct {
	Window time.Duration
	Limit  int
}

// Gate is a fixed-window inbound limiter keyed by source address
type Gate struct {
	mu   sync.Mutex
	recs map[string]*record
	opts Options
	log  logger.Logger

	now  func() time.Time
	roll func() float64
}

// New constructs a Gate with defaults applied
func New(o Options) *Gate {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return &Gate{
		recs: make(map[string]*record),
		opts: o,
		log:  *logger.Named("ratelimit"),
		now:  time.Now,
		roll: rand.Float64,
	}
}

// Check admits or rejects one request from addr.
// A rejected request does not increment the counter, so a hammering
// caller cannot grow the record unboundedly
func (g *Gate) Check(addr string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.roll() < sweepChance {
		g.sweepLocked(now)
	}

	r, ok := g.recs[addr]
	if !ok || !now.Before(r.resetAt) {
		r = &record{count: 1, resetAt: now.Add(g.opts.Window)}
		g.recs[addr] = r
		return Decision{Allowed: true, Remaining: g.opts.Limit - 1, ResetAt: r.resetAt}
	}

	if r.count >= g.opts.Limit {
		mins := 0
		if until := r.resetAt.Sub(now); until > 0 {
			mins = int((until + time.Minute - 1) / time.Minute)
		}
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   r.resetAt,
			Message:   fmt.Sprintf("rate limit exceeded, resets in %d minutes", mins),
		}
	}

	r.count++
	return Decision{Allowed: true, Remaining: g.opts.Limit - r.count, ResetAt: r.resetAt}
}

// Size returns the number of tracked addresses (expired records included until swept)
func (g *Gate) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.recs)
}

// sweepLocked deletes expired records; callers hold the mutex.
// Opportunistic GC only; stale records are also treated as absent on lookup
func (g *Gate) sweepLocked(now time.Time) {
	n := 0
	for addr, r := range g.recs {
		if !now.Before(r.resetAt) {
			delete(g.recs, addr)
			n++
		}
	}
	if n > 0 {
		g.log.Debug().Int("swept", n).Int("tracked", len(g.recs)).Msg("admission sweep")
	}
}
