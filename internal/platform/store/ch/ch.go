// Package ch provides a clickhouse client for columnar writes
package ch

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse connectivity
type Config struct {
	URL  string
	Role string
	Tag  string
}

// CH is a clickhouse client
type CH struct {
	conn driver.Conn
}

// Open dials clickhouse using a DSN URL and verifies the connection
func Open(ctx context.Context, cfg Config) (*CH, error) {
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.ClientInfo = BuildClientInfo(cfg.Role, cfg.Tag)

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &CH{conn: conn}, nil
}

// Exec runs a statement, used for DDL during boot
func (c *CH) Exec(ctx context.Context, query string, args ...any) error {
	return c.conn.Exec(ctx, query, args...)
}

// AsyncInsert appends rows without waiting for the server flush when wait is false
func (c *CH) AsyncInsert(ctx context.Context, query string, wait bool, args ...any) error {
	return c.conn.AsyncInsert(ctx, query, wait, args...)
}

// Ping reports connection readiness
func (c *CH) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes resources
func (c *CH) Close() error {
	return c.conn.Close()
}
