// Package store is the persistence layer: the append-only rates table, the
// ingestion log that provides skip-on-resume idempotency, and the provider
// registry tables.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/model"
)

// DefaultBatchSize caps rows per COPY call. Tunable, not architecturally
// significant.
const DefaultBatchSize = 10000

// Store wraps a pgx pool with the operations the pipeline needs.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
}

// New creates a Store. batchSize <= 0 selects DefaultBatchSize.
func New(pool *pgxpool.Pool, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{pool: pool, batchSize: batchSize}
}

// Pool exposes the underlying pool for read-side consumers (reports, export).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// InsertBatch bulk-inserts records via COPY, in batches inside a single
// transaction so a failed source never leaves a half-written batch visible.
func (s *Store) InsertBatch(ctx context.Context, records []model.RateRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var total int64
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"rates"},
			model.RateColumns(),
			pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				return batch[i].CopyValues(), nil
			}),
		)
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

// InsertStream copies records from a channel into rates as they arrive,
// inside one transaction. confirm is called after the channel closes and
// before commit; returning an error rolls the whole COPY back, so a
// producer failure never leaves a partial source committed.
func (s *Store) InsertStream(ctx context.Context, records <-chan *model.RateRecord, confirm func() error) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"rates"},
		model.RateColumns(),
		db.NewRecordSource(records),
	)
	if err != nil {
		return 0, err
	}
	if confirm != nil {
		if err := confirm(); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// TargetProviders returns the NPI and ZIP of every registry row, or nil if
// the table is empty (meaning: no NPI filtering configured).
func (s *Store) TargetProviders(ctx context.Context) ([]model.Provider, error) {
	rows, err := s.pool.Query(ctx, "SELECT npi, COALESCE(zip, '') FROM nppes_providers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.NPI, &p.Zip); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// ReplaceProviders reloads the provider registry table.
func (s *Store) ReplaceProviders(ctx context.Context, providers []model.Provider) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM nppes_providers"); err != nil {
		return 0, err
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"nppes_providers"},
		[]string{"npi", "provider_name", "provider_type", "taxonomy_code",
			"taxonomy_desc", "address_line1", "city", "state", "zip", "phone"},
		pgx.CopyFromSlice(len(providers), func(i int) ([]any, error) {
			p := providers[i]
			return []any{p.NPI, p.Name, p.Type, p.TaxonomyCode, p.TaxonomyDesc,
				p.AddressLine1, p.City, p.State, p.Zip, p.Phone}, nil
		}),
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// ReplaceNPIGroups reloads the individual-to-organization NPI mapping used
// by competitive reports.
func (s *Store) ReplaceNPIGroups(ctx context.Context, groups map[string]string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM npi_groups"); err != nil {
		return 0, err
	}

	pairs := make([][2]string, 0, len(groups))
	for individual, org := range groups {
		pairs = append(pairs, [2]string{individual, org})
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"npi_groups"},
		[]string{"individual_npi", "organization_npi"},
		pgx.CopyFromSlice(len(pairs), func(i int) ([]any, error) {
			return []any{pairs[i][0], pairs[i][1]}, nil
		}),
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// TableStats summarizes the rates table for run-end reporting.
type TableStats struct {
	TotalRates   int64
	Payers       int64
	BillingCodes int64
	Providers    int64
}

// Stats returns aggregate counts over the rates table.
func (s *Store) Stats(ctx context.Context) (*TableStats, error) {
	var st TableStats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(DISTINCT payer_name),
		       count(DISTINCT billing_code),
		       count(DISTINCT npi)
		FROM rates`).
		Scan(&st.TotalRates, &st.Payers, &st.BillingCodes, &st.Providers)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
