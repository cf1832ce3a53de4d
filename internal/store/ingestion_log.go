package store

import (
	"context"
)

// IsSourceComplete reports whether an ingestion-log entry in 'complete'
// status exists for the exact source identifier. This is the only skip
// condition: 'error' entries are retried by simply re-running.
func (s *Store) IsSourceComplete(ctx context.Context, source string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM ingestion_log WHERE file_source = $1 AND status = 'complete')",
		source,
	).Scan(&exists)
	return exists, err
}

// StartIngestion creates a 'running' log entry and returns its id.
func (s *Store) StartIngestion(ctx context.Context, payer, source string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ingestion_log (payer_name, file_source, status)
		 VALUES ($1, $2, 'running') RETURNING id`,
		payer, source,
	).Scan(&id)
	return id, err
}

// CompleteIngestion finalizes a log entry to 'complete' with the count
// actually inserted.
func (s *Store) CompleteIngestion(ctx context.Context, logID, inserted int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingestion_log
		 SET status = 'complete', records_inserted = $2, completed_at = now()
		 WHERE id = $1`,
		logID, inserted,
	)
	return err
}

// FailIngestion finalizes a log entry to 'error' with the failure message.
func (s *Store) FailIngestion(ctx context.Context, logID int64, msg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingestion_log
		 SET status = 'error', error_message = $2, completed_at = now()
		 WHERE id = $1`,
		logID, msg,
	)
	return err
}
