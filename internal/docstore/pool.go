// Package docstore adapts PostgreSQL as the Document Store Adapter: it
// persists Documents, Artifacts, Pending Updates, Monitor Targets, Student
// Profiles, Knowledge Gaps, Orchestration Results, and conversation messages
// behind typed repositories. Search Logs are not stored here; they are
// written to ClickHouse by internal/searchlog.
package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
)

const component = "docstore"

// OpenPool creates a Postgres connection pool sized per cfg.
func OpenPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, component, fmt.Errorf("parse dsn: %w", err))
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	timeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, poolCfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("open pool: %w", err))
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("ping: %w", err))
	}
	return pool, nil
}
