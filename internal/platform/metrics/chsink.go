package metrics

import "context"

// AsyncInserter is the slice of the clickhouse client the sink needs
type AsyncInserter interface {
	AsyncInsert(ctx context.Context, query string, wait bool, args ...any) error
}

// CHSchema creates the columnar metrics table
const CHSchema = `
CREATE TABLE IF NOT EXISTS request_metrics (
	id           String,
	endpoint     LowCardinality(String),
	outcome      LowCardinality(String),
	latency_ms   UInt32,
	cache_hit    UInt8,
	rate_limited UInt8,
	error_code   LowCardinality(String),
	at           DateTime64(3, 'UTC')
)
ENGINE = MergeTree
ORDER BY (endpoint, at)`

const insertMetricsSQL = `
INSERT INTO request_metrics
	(id, endpoint, outcome, latency_ms, cache_hit, rate_limited, error_code, at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// CHSink streams records into clickhouse via async inserts
type CHSink struct {
	conn AsyncInserter
}

// NewCHSink wraps an async-insert capable clickhouse connection
func NewCHSink(conn AsyncInserter) *CHSink {
	return &CHSink{conn: conn}
}

// Write appends one record without waiting for the server-side flush
func (s *CHSink) Write(ctx context.Context, rec Record) error {
	return s.conn.AsyncInsert(ctx, insertMetricsSQL, false,
		rec.ID,
		rec.Endpoint,
		rec.Outcome,
		uint32(rec.Latency.Milliseconds()),
		boolByte(rec.CacheHit),
		boolByte(rec.RateLimited),
		rec.ErrorCode,
		rec.At,
	)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
