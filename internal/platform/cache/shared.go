package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	perr "veriscope/internal/platform/errors"
)

// sharedDB is the slice of pgxpool.Pool the shared tier needs
type sharedDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema is the DDL for the shared tier table, applied at deploy time
const Schema = `
CREATE TABLE IF NOT EXISTS resolve_cache (
	fingerprint text PRIMARY KEY,
	payload     bytea NOT NULL,
	cached_at   timestamptz NOT NULL,
	expires_at  timestamptz NOT NULL,
	CHECK (expires_at > cached_at)
)`

// Shared is the Postgres-backed tier consulted before the fast tier.
// All failures surface as CacheUnavailable so the tiered facade can absorb them
type Shared struct {
	db  sharedDB
	now func() time.Time
}

// NewShared constructs a Shared tier over a pgx pool
func NewShared(db sharedDB) *Shared {
	return &Shared{db: db, now: time.Now}
}

// Get returns the payload for fp; entries past expiry are deleted and reported absent
func (s *Shared) Get(ctx context.Context, fp string) ([]byte, bool, error) {
	var payload []byte
	var expiresAt time.Time
	err := s.db.QueryRow(ctx,
		`SELECT payload, expires_at FROM resolve_cache WHERE fingerprint = $1`, fp,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.Wrapf(err, perr.ErrorCodeCacheUnavailable, "shared cache read failed")
	}
	if !s.now().Before(expiresAt) {
		_, _ = s.db.Exec(ctx, `DELETE FROM resolve_cache WHERE fingerprint = $1`, fp)
		return nil, false, nil
	}
	return payload, true, nil
}

// Set upserts the payload for fp with the given ttl
func (s *Shared) Set(ctx context.Context, fp string, payload []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.Exec(ctx, `
		INSERT INTO resolve_cache (fingerprint, payload, cached_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint)
		DO UPDATE SET payload = $2, cached_at = $3, expires_at = $4`,
		fp, payload, now, now.Add(ttl),
	)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeCacheUnavailable, "shared cache write failed")
	}
	return nil
}

// Delete removes fp if present
func (s *Shared) Delete(ctx context.Context, fp string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM resolve_cache WHERE fingerprint = $1`, fp); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeCacheUnavailable, "shared cache delete failed")
	}
	return nil
}
