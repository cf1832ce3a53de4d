package config

import (
	"fmt"
	"strings"
)

// FilterSet is the process-wide, read-only extraction scope: which billing
// codes, providers, and geographies are kept. Built once at startup and
// passed into the extractor by reference; never mutated afterwards.
type FilterSet struct {
	Codes map[string]struct{}

	// TargetNPIs distinguishes "no filter configured" (nil: accept every
	// NPI) from "filter configured but empty" (non-nil empty: suppress
	// everything).
	TargetNPIs map[string]struct{}

	ZipPrefixes []string
}

// NewFilterSet builds a FilterSet from the loaded code set, an optional NPI
// allowlist, and geography prefixes. A nil npis slice means no NPI filtering.
func NewFilterSet(codes map[string]struct{}, npis []string, zipPrefixes []string) (*FilterSet, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("filter set requires at least one billing code")
	}
	fs := &FilterSet{Codes: codes, ZipPrefixes: zipPrefixes}
	if npis != nil {
		fs.TargetNPIs = make(map[string]struct{}, len(npis))
		for _, n := range npis {
			fs.TargetNPIs[strings.TrimSpace(n)] = struct{}{}
		}
	}
	return fs, nil
}

// WantsCode reports whether a billing code is in scope.
func (fs *FilterSet) WantsCode(code string) bool {
	_, ok := fs.Codes[code]
	return ok
}

// WantsNPI reports whether a provider NPI passes the identity filter.
func (fs *FilterSet) WantsNPI(npi string) bool {
	if fs.TargetNPIs == nil {
		return true
	}
	_, ok := fs.TargetNPIs[npi]
	return ok
}

// WantsZip reports whether a postal code matches any configured prefix.
// No prefixes configured means every ZIP is in scope.
func (fs *FilterSet) WantsZip(zip string) bool {
	if len(fs.ZipPrefixes) == 0 {
		return true
	}
	for _, p := range fs.ZipPrefixes {
		if strings.HasPrefix(zip, p) {
			return true
		}
	}
	return false
}
