// Package store provides a unified interface to optional storage backends
package store

import (
	"context"
	"errors"
	"fmt"

	"veriscope/internal/platform/store/ch"
	"veriscope/internal/platform/store/pg"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
}

// Store is the facade for optional backends.
// Disabled backends remain nil; callers check before use
type Store struct {
	PG *pg.PG
	CH *ch.CH
}

// Open constructs a Store with the requested backends
func Open(ctx context.Context, cfg Config) (*Store, error) {
	s := &Store{}

	if cfg.PG.Enabled {
		p, err := pg.Open(ctx, pg.Config{URL: cfg.PG.URL, MaxConns: cfg.PG.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("open pg: %w", err)
		}
		s.PG = p
	}

	if cfg.CH.Enabled {
		c, err := ch.Open(ctx, ch.Config{URL: cfg.CH.URL, Role: "api", Tag: cfg.AppName})
		if err != nil {
			s.Close() // release anything already opened
			return nil, fmt.Errorf("open ch: %w", err)
		}
		s.CH = c
	}

	return s, nil
}

// Guard verifies every configured backend is reachable
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pg: %w", err))
		}
	}
	if s.CH != nil {
		if err := s.CH.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ch: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all initialized backends; nil backends are ignored
func (s *Store) Close() error {
	var errs []error
	if s.CH != nil {
		if e := s.CH.Close(); e != nil {
			errs = append(errs, e)
		}
	}
	if s.PG != nil {
		s.PG.Close()
	}
	return errors.Join(errs...)
}
