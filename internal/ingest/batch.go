package ingest

import (
	"context"
	"sort"
	"time"

	"github.com/gyeh/ticrates/internal/config"
	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/model"
)

// BatchOptions tunes candidate selection for a payer run.
type BatchOptions struct {
	// MaxFiles caps how many sources are processed; 0 means no cap.
	MaxFiles int
	// MaxSizeBytes excludes files whose advertised size exceeds it;
	// 0 means no ceiling.
	MaxSizeBytes int64
}

type candidate struct {
	entry fetch.IndexEntry
	size  int64
}

// RunPayer fetches a payer's index, orders the not-yet-complete candidates
// smallest first, and processes each in turn. Failures are recorded and the
// batch continues; only an index fetch failure aborts the payer.
func (c *Coordinator) RunPayer(ctx context.Context, payer config.PayerConfig, opts BatchOptions) (*model.RunSummary, error) {
	start := time.Now()
	summary := &model.RunSummary{Payer: payer.Name}

	entries, err := c.Client.FetchIndex(ctx, payer.IndexURL)
	if err != nil {
		return nil, &SourceError{Source: payer.IndexURL, Stage: "fetch", Err: err}
	}
	for _, extra := range payer.AdditionalFiles {
		entries = append(entries, fetch.IndexEntry{Location: extra})
	}
	c.Log.Info().Str("payer", payer.Name).Int("files", len(entries)).Msg("index fetched")

	candidates := c.selectCandidates(ctx, entries, opts)
	c.Log.Info().
		Str("payer", payer.Name).
		Int("candidates", len(candidates)).
		Int("excluded", len(entries)-len(candidates)).
		Msg("processing batch smallest-first")

	for i, cand := range candidates {
		c.Log.Info().
			Int("file", i+1).
			Int("of", len(candidates)).
			Int64("size_bytes", cand.size).
			Str("url", cand.entry.Location).
			Msg("processing source")

		for _, rep := range c.ProcessSource(ctx, payer.Name, cand.entry.Location) {
			summary.Add(rep)
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary.Duration = time.Since(start)
	c.Log.Info().
		Str("payer", payer.Name).
		Int("sources", summary.Sources).
		Int("completed", summary.Completed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int64("records", summary.RecordsStored).
		Dur("duration", summary.Duration).
		Msg("payer run finished")
	return summary, nil
}

// selectCandidates drops already-complete sources, probes sizes via HEAD,
// applies the size ceiling, and sorts ascending so small files surface
// results quickly.
func (c *Coordinator) selectCandidates(ctx context.Context, entries []fetch.IndexEntry, opts BatchOptions) []candidate {
	var candidates []candidate
	for _, e := range entries {
		if !isZip(e.Location) {
			if done, err := c.Store.IsSourceComplete(ctx, e.Location); err == nil && done {
				continue
			}
		}
		size, err := c.Client.ContentLength(ctx, e.Location)
		if err != nil {
			// Unknown size sorts first rather than excluding the file.
			size = 0
		}
		if opts.MaxSizeBytes > 0 && size > opts.MaxSizeBytes {
			c.Log.Debug().Str("url", e.Location).Int64("size", size).Msg("over size ceiling, excluded")
			continue
		}
		candidates = append(candidates, candidate{entry: e, size: size})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].size < candidates[j].size })

	if opts.MaxFiles > 0 && len(candidates) > opts.MaxFiles {
		candidates = candidates[:opts.MaxFiles]
	}
	return candidates
}
