// Package metrics collects per-request observations in a bounded ring
// and derives aggregate statistics from whatever the ring still holds
package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"veriscope/internal/platform/logger"
)

// DefaultCapacity is the ring size when none is configured
const DefaultCapacity = 500

// Outcome labels for a recorded request
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Record is one observed request
type Record struct {
	ID          string        `json:"id"`
	Endpoint    string        `json:"endpoint"`
	Outcome     string        `json:"outcome"`
	Latency     time.Duration `json:"latency"`
	CacheHit    bool          `json:"cache_hit"`
	RateLimited bool          `json:"rate_limited"`
	ErrorCode   string        `json:"error_code,omitempty"`
	At          time.Time     `json:"at"`
}

// Sink receives each record after it lands in the ring.
// Writes are best-effort; a failing sink never affects collection
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Collector stores the most recent records in a fixed-size ring.
// Once full, each new observation overwrites the oldest
type Collector struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool

	sink Sink
	log  logger.Logger

	now   func() time.Time
	newID func() string
}

// sinkTimeout bounds each best-effort sink write
const sinkTimeout = 3 * time.Second

// New constructs a Collector; size <= 0 uses DefaultCapacity, sink may be nil
func New(size int, sink Sink) *Collector {
	if size <= 0 {
		size = DefaultCapacity
	}
	return &Collector{
		buf:   make([]Record, size),
		sink:  sink,
		log:   *logger.Named("metrics"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Observe stamps rec with an id and timestamp, stores it, and forwards it
// to the sink asynchronously. Returns the assigned id
func (c *Collector) Observe(rec Record) string {
	c.mu.Lock()
	rec.ID = c.newID()
	rec.At = c.now()
	c.buf[c.next] = rec
	c.next++
	if c.next == len(c.buf) {
		c.next = 0
		c.full = true
	}
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()
			if err := sink.Write(ctx, rec); err != nil {
				c.log.Warn().Err(err).Str("endpoint", rec.Endpoint).Msg("metrics sink write failed")
			}
		}()
	}
	return rec.ID
}

// Snapshot returns the retained records oldest-first
func (c *Collector) Snapshot() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.full {
		out := make([]Record, c.next)
		copy(out, c.buf[:c.next])
		return out
	}
	out := make([]Record, 0, len(c.buf))
	out = append(out, c.buf[c.next:]...)
	out = append(out, c.buf[:c.next]...)
	return out
}

// Stats are aggregates over the retained window
type Stats struct {
	Total        int            `json:"total"`
	CacheHits    int            `json:"cache_hits"`
	CacheHitRate float64        `json:"cache_hit_rate"`
	Errors       int            `json:"errors"`
	ErrorRate    float64        `json:"error_rate"`
	RateLimited  int            `json:"rate_limited"`
	LatencyP50   time.Duration  `json:"latency_p50"`
	LatencyP95   time.Duration  `json:"latency_p95"`
	PerEndpoint  map[string]int `json:"per_endpoint"`
}

// Stats derives aggregates from the current ring contents
func (c *Collector) Stats() Stats {
	recs := c.Snapshot()

	s := Stats{PerEndpoint: make(map[string]int)}
	s.Total = len(recs)
	if s.Total == 0 {
		return s
	}

	lats := make([]time.Duration, 0, len(recs))
	for _, r := range recs {
		s.PerEndpoint[r.Endpoint]++
		if r.CacheHit {
			s.CacheHits++
		}
		if r.Outcome == OutcomeError {
			s.Errors++
		}
		if r.RateLimited {
			s.RateLimited++
		}
		lats = append(lats, r.Latency)
	}
	s.CacheHitRate = float64(s.CacheHits) / float64(s.Total)
	s.ErrorRate = float64(s.Errors) / float64(s.Total)

	sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })
	s.LatencyP50 = percentile(lats, 50)
	s.LatencyP95 = percentile(lats, 95)
	return s
}

// percentile uses nearest-rank on an already sorted slice
func percentile(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
