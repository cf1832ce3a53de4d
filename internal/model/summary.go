package model

import "time"

// SourceOutcome is the terminal state of one source's processing attempt.
type SourceOutcome string

const (
	OutcomeSkipped  SourceOutcome = "skipped"
	OutcomeComplete SourceOutcome = "complete"
	OutcomeError    SourceOutcome = "error"
)

// SourceReport summarizes the processing of a single source identifier.
type SourceReport struct {
	Payer         string
	Source        string
	Outcome       SourceOutcome
	RecordsStored int64
	Err           error
	Duration      time.Duration
}

// RunSummary aggregates one coordinator run over a batch of sources.
type RunSummary struct {
	Payer         string
	Sources       int
	Skipped       int
	Completed     int
	Failed        int
	RecordsStored int64
	Duration      time.Duration
	Reports       []SourceReport
}

// Add folds a per-source report into the run totals.
func (s *RunSummary) Add(r SourceReport) {
	s.Sources++
	s.RecordsStored += r.RecordsStored
	switch r.Outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeComplete:
		s.Completed++
	case OutcomeError:
		s.Failed++
	}
	s.Reports = append(s.Reports, r)
}
