// Package ingest drives documents through fetch, extraction, and storage
// with per-source idempotency: a source is skipped only when a 'complete'
// ingestion-log entry exists for its exact identifier.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/ticrates/internal/config"
	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/model"
	"github.com/gyeh/ticrates/internal/mrf"
	"github.com/gyeh/ticrates/internal/store"
)

// SourceError wraps a failure with the source and pipeline stage where it
// occurred.
type SourceError struct {
	Source string
	Stage  string // "fetch", "decompress", "parse", "extract", "insert"
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Coordinator processes sources for one run. Each document gets its own
// extractor and resolver state; the store is the only shared resource.
type Coordinator struct {
	Store   *store.Store
	Client  *fetch.Client
	Filters *config.FilterSet
	Log     zerolog.Logger
}

// ProcessSource runs one source identifier end to end. A ZIP archive fans
// out into one report per JSON member, each with its own log lifecycle;
// anything else produces exactly one report. Failures are captured in the
// reports, never returned: one bad file must not abort a batch.
func (c *Coordinator) ProcessSource(ctx context.Context, payer, url string) []model.SourceReport {
	if !isZip(url) {
		return []model.SourceReport{c.processRemote(ctx, payer, url)}
	}

	// Archive members are independent sources, so the archive is fetched
	// once and each member is checked/logged separately.
	body, err := c.Client.Get(ctx, url)
	if err != nil {
		return []model.SourceReport{c.recordFailure(ctx, payer, url,
			&SourceError{Source: url, Stage: "fetch", Err: err}, 0)}
	}
	payloads, err := fetch.Expand(url, body)
	if err != nil {
		return []model.SourceReport{c.recordFailure(ctx, payer, url,
			&SourceError{Source: url, Stage: "decompress", Err: err}, 0)}
	}

	reports := make([]model.SourceReport, 0, len(payloads))
	for _, p := range payloads {
		reports = append(reports, c.processPayload(ctx, payer, p))
	}
	return reports
}

// processRemote handles a plain or gzipped JSON source: skip check first,
// then running → fetch → decompress → payload processing under one log entry.
func (c *Coordinator) processRemote(ctx context.Context, payer, url string) model.SourceReport {
	start := time.Now()

	if skip, rep := c.checkComplete(ctx, payer, url); skip {
		return rep
	}

	logID, err := c.Store.StartIngestion(ctx, payer, url)
	if err != nil {
		return model.SourceReport{Payer: payer, Source: url, Outcome: model.OutcomeError,
			Err: fmt.Errorf("start ingestion log: %w", err), Duration: time.Since(start)}
	}

	body, err := c.Client.Get(ctx, url)
	if err != nil {
		return c.failWithLog(ctx, payer, url, logID,
			&SourceError{Source: url, Stage: "fetch", Err: err}, start)
	}
	payloads, err := fetch.Expand(url, body)
	if err != nil {
		return c.failWithLog(ctx, payer, url, logID,
			&SourceError{Source: url, Stage: "decompress", Err: err}, start)
	}

	return c.extractAndStore(ctx, payer, url, logID, payloads[0].Data, start)
}

// processPayload handles an already-decompressed archive member.
func (c *Coordinator) processPayload(ctx context.Context, payer string, p fetch.Payload) model.SourceReport {
	start := time.Now()

	if skip, rep := c.checkComplete(ctx, payer, p.Source); skip {
		return rep
	}

	logID, err := c.Store.StartIngestion(ctx, payer, p.Source)
	if err != nil {
		return model.SourceReport{Payer: payer, Source: p.Source, Outcome: model.OutcomeError,
			Err: fmt.Errorf("start ingestion log: %w", err), Duration: time.Since(start)}
	}
	return c.extractAndStore(ctx, payer, p.Source, logID, p.Data, start)
}

// streamThreshold selects the token-streaming path for large documents, so
// a multi-gigabyte in-network file is never fully materialized as a parse
// tree.
const streamThreshold = 256 << 20

func (c *Coordinator) extractAndStore(ctx context.Context, payer, source string, logID int64, data []byte, start time.Time) model.SourceReport {
	if int64(len(data)) >= streamThreshold {
		return c.streamAndStore(ctx, payer, source, logID, data, start)
	}

	doc, err := mrf.ParseDocument(data)
	if err != nil {
		return c.failWithLog(ctx, payer, source, logID,
			&SourceError{Source: source, Stage: "parse", Err: err}, start)
	}

	ex := &mrf.Extractor{Filters: c.Filters, PayerName: payer, FileSource: source}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		return c.failWithLog(ctx, payer, source, logID,
			&SourceError{Source: source, Stage: "extract", Err: err}, start)
	}

	inserted, err := c.Store.InsertBatch(ctx, records)
	if err != nil {
		return c.failWithLog(ctx, payer, source, logID,
			&SourceError{Source: source, Stage: "insert", Err: err}, start)
	}

	if err := c.Store.CompleteIngestion(ctx, logID, inserted); err != nil {
		return model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeError,
			RecordsStored: inserted, Err: fmt.Errorf("finalize ingestion log: %w", err),
			Duration: time.Since(start)}
	}

	c.Log.Info().
		Str("source", source).
		Int64("records", inserted).
		Dur("duration", time.Since(start)).
		Msg("source complete")

	return model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeComplete,
		RecordsStored: inserted, Duration: time.Since(start)}
}

// streamAndStore pipes the extractor straight into COPY through a channel.
// The insert transaction commits only after the extractor finishes cleanly.
func (c *Coordinator) streamAndStore(ctx context.Context, payer, source string, logID int64, data []byte, start time.Time) model.SourceReport {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan *model.RateRecord, 256)
	extractDone := make(chan error, 1)

	go func() {
		defer close(records)
		ex := &mrf.Extractor{Filters: c.Filters, PayerName: payer, FileSource: source}
		extractDone <- ex.StreamExtract(bytes.NewReader(data), func(rec model.RateRecord) error {
			r := rec
			select {
			case records <- &r:
				return nil
			case <-runCtx.Done():
				return runCtx.Err()
			}
		})
	}()

	var extractErr error
	inserted, err := c.Store.InsertStream(runCtx, records, func() error {
		extractErr = <-extractDone
		return extractErr
	})
	if err != nil {
		cancel()
		stage := "insert"
		if extractErr != nil {
			stage = "extract"
		}
		return c.failWithLog(ctx, payer, source, logID,
			&SourceError{Source: source, Stage: stage, Err: err}, start)
	}

	if err := c.Store.CompleteIngestion(ctx, logID, inserted); err != nil {
		return model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeError,
			RecordsStored: inserted, Err: fmt.Errorf("finalize ingestion log: %w", err),
			Duration: time.Since(start)}
	}

	c.Log.Info().
		Str("source", source).
		Int64("records", inserted).
		Dur("duration", time.Since(start)).
		Msg("source complete (streamed)")

	return model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeComplete,
		RecordsStored: inserted, Duration: time.Since(start)}
}

func (c *Coordinator) checkComplete(ctx context.Context, payer, source string) (bool, model.SourceReport) {
	done, err := c.Store.IsSourceComplete(ctx, source)
	if err != nil {
		return true, model.SourceReport{Payer: payer, Source: source,
			Outcome: model.OutcomeError, Err: fmt.Errorf("check ingestion log: %w", err)}
	}
	if done {
		c.Log.Debug().Str("source", source).Msg("already ingested, skipping")
		return true, model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeSkipped}
	}
	return false, model.SourceReport{}
}

// recordFailure creates and immediately fails a log entry, for failures
// that happen before a per-source running entry exists.
func (c *Coordinator) recordFailure(ctx context.Context, payer, source string, srcErr *SourceError, logID int64) model.SourceReport {
	if logID == 0 {
		id, err := c.Store.StartIngestion(ctx, payer, source)
		if err == nil {
			logID = id
		}
	}
	if logID != 0 {
		_ = c.Store.FailIngestion(ctx, logID, srcErr.Error())
	}
	c.Log.Error().Err(srcErr.Err).Str("source", source).Str("stage", srcErr.Stage).Msg("source failed")
	return model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeError, Err: srcErr}
}

func (c *Coordinator) failWithLog(ctx context.Context, payer, source string, logID int64, srcErr *SourceError, start time.Time) model.SourceReport {
	_ = c.Store.FailIngestion(ctx, logID, srcErr.Error())
	c.Log.Error().Err(srcErr.Err).Str("source", source).Str("stage", srcErr.Stage).Msg("source failed")
	return model.SourceReport{Payer: payer, Source: source, Outcome: model.OutcomeError,
		Err: srcErr, Duration: time.Since(start)}
}

func isZip(url string) bool {
	path, _, _ := strings.Cut(url, "?")
	return strings.HasSuffix(path, ".zip")
}
