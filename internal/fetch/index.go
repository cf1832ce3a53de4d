package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// IndexEntry is one in-network file reference from a payer's table of
// contents document.
type IndexEntry struct {
	Description string
	Location    string
}

// indexDoc covers the two common index shapes: nested reporting_structure
// and a flat in_network_files list.
type indexDoc struct {
	ReportingStructure []struct {
		InNetworkFiles []indexFile `json:"in_network_files"`
	} `json:"reporting_structure"`
	InNetworkFiles []indexFile `json:"in_network_files"`
}

type indexFile struct {
	Description string `json:"description"`
	Location    string `json:"location"`
}

// FetchIndex downloads and parses a payer index, returning deduplicated
// in-network file entries.
func (c *Client) FetchIndex(ctx context.Context, url string) ([]IndexEntry, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	// Index files can be JSON or gzipped JSON regardless of suffix.
	if len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b {
		if body, err = gunzip(body); err != nil {
			return nil, fmt.Errorf("decompress index %s: %w", url, err)
		}
	}

	entries, err := ParseIndex(body)
	if err != nil {
		return nil, fmt.Errorf("parse index %s: %w", url, err)
	}
	return entries, nil
}

// ParseIndex extracts in-network file locations from an index document,
// preferring the reporting_structure shape and deduplicating by URL.
func ParseIndex(data []byte) ([]IndexEntry, error) {
	var doc indexDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var files []indexFile
	for _, rs := range doc.ReportingStructure {
		files = append(files, rs.InNetworkFiles...)
	}
	if len(files) == 0 {
		files = doc.InNetworkFiles
	}

	seen := make(map[string]struct{}, len(files))
	var entries []IndexEntry
	for _, f := range files {
		if !strings.HasPrefix(f.Location, "http") {
			continue
		}
		if _, dup := seen[f.Location]; dup {
			continue
		}
		seen[f.Location] = struct{}{}
		entries = append(entries, IndexEntry{Description: f.Description, Location: f.Location})
	}
	return entries, nil
}
