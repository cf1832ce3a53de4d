package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// loaderMaxConns caps the pool. The loader runs one COPY writer per source
// plus a handful of report readers; more connections just contend on the
// rates table.
const loaderMaxConns = 8

// NewPool creates a pgxpool with session-level params suitable for bulk loads.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > loaderMaxConns {
		cfg.MaxConns = loaderMaxConns
	}
	// A single COPY of a large in-network file can run for minutes; never
	// let a server-side statement timeout kill it mid-load.
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = "0"
	cfg.ConnConfig.RuntimeParams["application_name"] = "ticload"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
