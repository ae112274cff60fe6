package cache

import (
	"context"
	"encoding/json"
	"time"

	"veriscope/internal/platform/logger"
)

// writeTimeout bounds each fire-and-forget cache write
const writeTimeout = 2 * time.Second

// Tiered composes the optional shared tier with the bounded fast tier.
// Shared-tier failures are absorbed here: caching is best-effort and must
// never fail a request
type Tiered struct {
	fast   *Memory
	shared *Shared // nil when no shared store is configured
	log    logger.Logger

	// background is the detached context factory for async writes
	background func() context.Context
}

// NewTiered constructs the cache facade; shared may be nil
func NewTiered(fast *Memory, shared *Shared) *Tiered {
	if fast == nil {
		fast = NewMemory(0)
	}
	return &Tiered{
		fast:       fast,
		shared:     shared,
		log:        *logger.Named("cache"),
		background: context.Background,
	}
}

// Lookup consults the shared tier first when configured, then the fast tier
func (t *Tiered) Lookup(ctx context.Context, fp string) ([]byte, bool) {
	if t.shared != nil {
		payload, ok, err := t.shared.Get(ctx, fp)
		if err != nil {
			t.log.Warn().Err(err).Str("fingerprint", fp).Msg("shared tier unavailable, falling back")
		} else if ok {
			return payload, true
		}
	}
	return t.fast.Get(fp)
}

// Store writes through both tiers asynchronously; failures are logged, never propagated
func (t *Tiered) Store(fp string, payload []byte, ttl time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(t.background(), writeTimeout)
		defer cancel()

		t.fast.Set(fp, payload, ttl)
		if t.shared != nil {
			if err := t.shared.Set(ctx, fp, payload, ttl); err != nil {
				t.log.Warn().Err(err).Str("fingerprint", fp).Msg("shared tier write failed")
			}
		}
	}()
}

// Delete removes fp from both tiers
func (t *Tiered) Delete(ctx context.Context, fp string) {
	t.fast.Delete(fp)
	if t.shared != nil {
		if err := t.shared.Delete(ctx, fp); err != nil {
			t.log.Warn().Err(err).Str("fingerprint", fp).Msg("shared tier delete failed")
		}
	}
}

// WithCache returns the cached value for fp, or invokes producer on a miss
// and writes the result through asynchronously. The bool reports a cache hit.
// Concurrent misses for one fingerprint may both reach the producer; there
// is deliberately no single-flight de-duplication
func WithCache[T any](ctx context.Context, t *Tiered, fp string, ttl time.Duration, producer func(context.Context) (T, error)) (T, bool, error) {
	if payload, ok := t.Lookup(ctx, fp); ok {
		var v T
		if err := json.Unmarshal(payload, &v); err == nil {
			return v, true, nil
		}
		// undecodable entry: drop it and fall through to the producer
		t.log.Warn().Str("fingerprint", fp).Msg("evicting undecodable cache entry")
		t.Delete(ctx, fp)
	}

	v, err := producer(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		t.log.Error().Err(err).Str("fingerprint", fp).Msg("cache marshal failed, skipping write")
		return v, false, nil
	}
	t.Store(fp, payload, ttl)
	return v, false, nil
}
