package nppes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/logging"
)

func registryResult(npi int, enumType string) map[string]any {
	r := map[string]any{
		"number":           strconv.Itoa(npi),
		"enumeration_type": enumType,
		"basic": map[string]any{
			"first_name":        "PAT",
			"last_name":         "SMITH",
			"organization_name": "ACME PT CLINIC",
		},
		"addresses": []map[string]any{
			{"address_purpose": "MAILING", "city": "NOWHERE", "state": "IA", "postal_code": "50000"},
			{"address_purpose": "LOCATION", "address_1": "1 MAIN ST", "city": "MINNEAPOLIS",
				"state": "MN", "postal_code": "554011234", "telephone_number": "612-555-0000"},
		},
		"taxonomies": []map[string]any{
			{"code": "208D00000X", "desc": "General Practice", "primary": false},
			{"code": "225100000X", "desc": "Physical Therapist", "primary": true},
		},
	}
	return r
}

func TestFetchProviders(t *testing.T) {
	// First page full (pageLimit results), second page short, so pagination
	// must issue exactly two requests per (prefix, taxonomy) pair.
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

		var results []map[string]any
		switch skip {
		case 0:
			for i := 0; i < pageLimit; i++ {
				results = append(results, registryResult(1000000000+i, "NPI-1"))
			}
		case pageLimit:
			results = append(results, registryResult(2000000000, "NPI-2"))
			// Duplicate of page one; must be deduplicated.
			results = append(results, registryResult(1000000000, "NPI-1"))
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	c := &Client{
		BaseURL: srv.URL + "/api/",
		HTTP:    fetch.NewClient(logging.Discard()),
		Log:     logging.Discard(),
	}
	providers, err := c.FetchProviders(context.Background(), []string{"554"},
		map[string]string{"225100000X": "Physical Therapist"})
	if err != nil {
		t.Fatalf("FetchProviders: %v", err)
	}

	if requests != 2 {
		t.Errorf("expected 2 page requests, got %d", requests)
	}
	if len(providers) != pageLimit+1 {
		t.Fatalf("expected %d providers after dedupe, got %d", pageLimit+1, len(providers))
	}

	first := providers[0]
	if first.Name != "PAT SMITH" || first.Type != "Individual" {
		t.Errorf("individual mapping wrong: %+v", first)
	}
	if first.City != "MINNEAPOLIS" || first.State != "MN" {
		t.Errorf("location address not selected: %+v", first)
	}
	if first.Zip != "55401" {
		t.Errorf("zip = %q, want 55401", first.Zip)
	}
	if first.TaxonomyCode != "225100000X" {
		t.Errorf("taxonomy = %q, want primary 225100000X", first.TaxonomyCode)
	}

	last := providers[len(providers)-1]
	if last.Type != "Organization" || last.Name != "ACME PT CLINIC" {
		t.Errorf("organization mapping wrong: %+v", last)
	}
}

func TestFetchProviders_EmptyFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer srv.Close()

	c := &Client{
		BaseURL: srv.URL + "/api/",
		HTTP:    fetch.NewClient(logging.Discard()),
		Log:     logging.Discard(),
	}
	providers, err := c.FetchProviders(context.Background(), []string{"554"},
		map[string]string{"225100000X": "Physical Therapist"})
	if err != nil {
		t.Fatalf("FetchProviders: %v", err)
	}
	if len(providers) != 0 {
		t.Errorf("expected no providers, got %d", len(providers))
	}
}

func TestTrimJoin(t *testing.T) {
	if got := trimJoin("PAT", "SMITH"); got != "PAT SMITH" {
		t.Errorf("trimJoin = %q", got)
	}
	if got := trimJoin("", "SMITH"); got != "SMITH" {
		t.Errorf("trimJoin = %q", got)
	}
	if got := trimJoin("PAT", ""); got != "PAT" {
		t.Errorf("trimJoin = %q", got)
	}
}
