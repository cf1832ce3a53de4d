// Package nppes loads the provider registry that supplies the target-NPI
// filter: all providers matching the configured taxonomies within the
// configured ZIP prefixes.
package nppes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/model"
)

// DefaultBaseURL is the public NPI registry API endpoint.
const DefaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"

const pageLimit = 200

// Taxonomies queried by default: physical therapy providers.
var DefaultTaxonomies = map[string]string{
	"225100000X": "Physical Therapist",
	"225200000X": "Physical Therapy Assistant",
}

// Client queries the registry API page by page.
type Client struct {
	BaseURL string
	HTTP    *fetch.Client
	Log     zerolog.Logger
}

type apiResponse struct {
	Results []apiResult `json:"results"`
}

type apiResult struct {
	Number          string `json:"number"`
	EnumerationType string `json:"enumeration_type"`
	Basic           struct {
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
		OrganizationName string `json:"organization_name"`
	} `json:"basic"`
	Addresses []struct {
		AddressPurpose  string `json:"address_purpose"`
		Address1        string `json:"address_1"`
		City            string `json:"city"`
		State           string `json:"state"`
		PostalCode      string `json:"postal_code"`
		TelephoneNumber string `json:"telephone_number"`
	} `json:"addresses"`
	Taxonomies []struct {
		Code    string `json:"code"`
		Desc    string `json:"desc"`
		Primary bool   `json:"primary"`
	} `json:"taxonomies"`
}

// FetchProviders queries every (ZIP prefix × taxonomy) combination,
// paginating each with an increasing offset until an empty page comes back.
// Results are deduplicated by NPI.
func (c *Client) FetchProviders(ctx context.Context, zipPrefixes []string, taxonomies map[string]string) ([]model.Provider, error) {
	if len(taxonomies) == 0 {
		taxonomies = DefaultTaxonomies
	}

	seen := make(map[string]struct{})
	var providers []model.Provider

	for code, desc := range taxonomies {
		for _, prefix := range zipPrefixes {
			page, err := c.fetchPrefix(ctx, prefix, desc, code, seen)
			if err != nil {
				return nil, fmt.Errorf("fetch %s %s: %w", prefix, desc, err)
			}
			providers = append(providers, page...)
		}
	}

	c.Log.Info().Int("providers", len(providers)).Msg("registry fetch complete")
	return providers, nil
}

func (c *Client) fetchPrefix(ctx context.Context, zipPrefix, taxonomyDesc, taxonomyCode string, seen map[string]struct{}) ([]model.Provider, error) {
	var out []model.Provider

	for skip := 0; ; skip += pageLimit {
		q := url.Values{}
		q.Set("version", "2.1")
		q.Set("postal_code", zipPrefix+"*")
		q.Set("taxonomy_description", taxonomyDesc)
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("skip", strconv.Itoa(skip))

		body, err := c.HTTP.Get(ctx, c.BaseURL+"?"+q.Encode())
		if err != nil {
			return nil, err
		}
		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parse registry response: %w", err)
		}
		if len(resp.Results) == 0 {
			break
		}

		for _, r := range resp.Results {
			if r.Number == "" {
				continue
			}
			if _, dup := seen[r.Number]; dup {
				continue
			}
			seen[r.Number] = struct{}{}
			out = append(out, toProvider(r, taxonomyCode))
		}

		if len(resp.Results) < pageLimit {
			break
		}
	}
	return out, nil
}

func toProvider(r apiResult, fallbackTaxonomy string) model.Provider {
	p := model.Provider{NPI: r.Number}

	if r.EnumerationType == "NPI-1" {
		p.Name = trimJoin(r.Basic.FirstName, r.Basic.LastName)
		p.Type = "Individual"
	} else {
		p.Name = r.Basic.OrganizationName
		p.Type = "Organization"
	}

	for _, a := range r.Addresses {
		if a.AddressPurpose == "LOCATION" {
			p.AddressLine1 = a.Address1
			p.City = a.City
			p.State = a.State
			if len(a.PostalCode) >= 5 {
				p.Zip = a.PostalCode[:5]
			} else {
				p.Zip = a.PostalCode
			}
			p.Phone = a.TelephoneNumber
			break
		}
	}

	p.TaxonomyCode = fallbackTaxonomy
	for _, t := range r.Taxonomies {
		if t.Primary {
			p.TaxonomyCode = t.Code
			p.TaxonomyDesc = t.Desc
			break
		}
	}
	return p
}

func trimJoin(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
