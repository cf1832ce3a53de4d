package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/ticrates/internal/model"
)

// RecordSource implements pgx.CopyFromSource by reading RateRecords from a
// channel. This gives natural backpressure between the extractor and the
// COPY writer when documents are processed as a stream.
type RecordSource struct {
	ch      <-chan *model.RateRecord
	current *model.RateRecord
}

// NewRecordSource creates a CopyFromSource backed by a channel.
func NewRecordSource(ch <-chan *model.RateRecord) *RecordSource {
	return &RecordSource{ch: ch}
}

// Next advances to the next record. Returns false when the channel is closed.
func (s *RecordSource) Next() bool {
	rec, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = rec
	return true
}

// Values returns the current record's values in COPY column order.
func (s *RecordSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

// Err returns any error encountered during iteration.
func (s *RecordSource) Err() error { return nil }

var _ pgx.CopyFromSource = (*RecordSource)(nil)
