// Package scan brute-forces a payer's per-group provider files to discover
// which group ids contain the target NPIs. This is the only concurrent part
// of the pipeline: the probes are independent and embarrassingly parallel.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/ticrates/internal/fetch"
)

// DefaultWorkers bounds concurrent probes.
const DefaultWorkers = 50

// Options configures a scan run. BaseURL must contain one %d (or %010d)
// verb for the group id.
type Options struct {
	BaseURL string
	StartID int64
	EndID   int64
	Workers int
}

// Mapping is the scan result: which groups each target NPI appears in.
type Mapping struct {
	ScanDate      time.Time          `json:"scan_date"`
	GroupsScanned int64              `json:"groups_scanned"`
	NPIToGroups   map[string][]int64 `json:"npi_to_groups"`
	MissingNPIs   []string           `json:"missing_npis"`
}

type probeResult struct {
	groupID int64
	npis    []string
}

// Run probes every group id in [StartID, EndID) with a bounded worker pool
// and aggregates matches. Individual probe failures (404s, timeouts) are
// counted and skipped; the scan itself only fails on context cancellation.
func Run(ctx context.Context, client *fetch.Client, log zerolog.Logger, targetNPIs []string, opts Options) (*Mapping, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	start := time.Now()

	ids := make(chan int64)
	results := make(chan probeResult)

	var wg sync.WaitGroup
	var errCount int64
	var errMu sync.Mutex

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				matches, err := probe(ctx, client, opts.BaseURL, id, targetNPIs)
				if err != nil {
					errMu.Lock()
					errCount++
					errMu.Unlock()
					continue
				}
				if len(matches) > 0 {
					select {
					case results <- probeResult{groupID: id, npis: matches}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(ids)
		for id := opts.StartID; id < opts.EndID; id++ {
			select {
			case ids <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Aggregation happens on this goroutine only; workers never touch the
	// mapping directly.
	found := make(map[string][]int64)
	for r := range results {
		for _, npi := range r.npis {
			found[npi] = append(found[npi], r.groupID)
			log.Info().Str("npi", npi).Int64("group", r.groupID).Msg("match found")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Mapping{
		ScanDate:      start,
		GroupsScanned: opts.EndID - opts.StartID,
		NPIToGroups:   found,
	}
	for _, npi := range targetNPIs {
		if _, ok := found[npi]; !ok {
			m.MissingNPIs = append(m.MissingNPIs, npi)
		}
	}
	sort.Strings(m.MissingNPIs)
	for npi := range m.NPIToGroups {
		sort.Slice(m.NPIToGroups[npi], func(i, j int) bool {
			return m.NPIToGroups[npi][i] < m.NPIToGroups[npi][j]
		})
	}

	log.Info().
		Int64("scanned", m.GroupsScanned).
		Int("npis_found", len(found)).
		Int("npis_missing", len(m.MissingNPIs)).
		Int64("probe_errors", errCount).
		Dur("duration", time.Since(start)).
		Msg("scan complete")
	return m, nil
}

// probe fetches one group file and returns which target NPIs appear in it.
// A plain substring match is sufficient: NPIs are 10-digit tokens and the
// group files are small.
func probe(ctx context.Context, client *fetch.Client, baseURL string, id int64, targetNPIs []string) ([]string, error) {
	body, err := client.Get(ctx, fmt.Sprintf(baseURL, id))
	if err != nil {
		return nil, err
	}
	text := string(body)
	var matches []string
	for _, npi := range targetNPIs {
		if npi != "" && strings.Contains(text, npi) {
			matches = append(matches, npi)
		}
	}
	return matches, nil
}

// WriteMapping saves the scan result as indented JSON.
func WriteMapping(path string, m *Mapping) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}
