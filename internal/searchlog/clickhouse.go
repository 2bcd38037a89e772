// Package searchlog implements the Search Logger & Gap Detector (§4.15):
// an append-only ClickHouse log of every retrieval call, and a periodic
// aggregation pass that raises/extends Knowledge Gap entries for
// persistently low-scoring query patterns. Grounded on the teacher's
// internal/agentd/*_clickhouse.go files (DSN parsing, table
// bootstrapping, the conn.Query/Exec/Ping shape), generalized from OTel
// metrics/traces/logs ingestion to this domain's search-log schema.
package searchlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
)

const component = "searchlog"

// Rows is the subset of clickhouse-go's driver.Rows this package reads.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Conn is the subset of clickhouse-go's clickhouse.Conn this package needs,
// narrowed so tests can supply an in-memory fake instead of a live server.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

type connAdapter struct{ conn clickhouse.Conn }

func (a connAdapter) Exec(ctx context.Context, query string, args ...any) error {
	return a.conn.Exec(ctx, query, args...)
}

func (a connAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return a.conn.Query(ctx, query, args...)
}

func (a connAdapter) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

func (a connAdapter) Close() error {
	return a.conn.Close()
}

// Open parses cfg.DSN and returns a connected, pinged Conn. Returns a nil
// Conn and nil error when DSN is empty, since search logging is optional
// best-effort infrastructure, not a hard dependency of the orchestrator.
func Open(ctx context.Context, cfg config.ClickHouseConfig) (Conn, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, nil
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, component, fmt.Errorf("parse clickhouse dsn: %w", err))
	}
	if cfg.Database != "" {
		opts.Auth.Database = cfg.Database
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("open clickhouse connection: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("clickhouse ping: %w", err))
	}

	return connAdapter{conn: conn}, nil
}

const searchLogsTable = "search_logs"

// EnsureSchema creates the append-only search_logs table if it doesn't
// already exist.
func EnsureSchema(ctx context.Context, conn Conn) error {
	if conn == nil {
		return nil
	}
	sql := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    query String,
    query_pattern String,
    user_id String,
    session_id String,
    results String,
    top_score Float64,
    result_count UInt32,
    result_quality LowCardinality(String),
    used_web_fallback Bool,
    collection LowCardinality(String),
    search_latency_ms Int64,
    ts DateTime64(3)
) ENGINE = MergeTree()
ORDER BY (query_pattern, ts)
TTL ts + INTERVAL 90 DAY
`, searchLogsTable)
	if err := conn.Exec(ctx, sql); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("create search_logs table: %w", err))
	}
	return nil
}
