// Package mrf extracts negotiated rates from Transparency in Coverage
// machine-readable files. Decoding is tolerant: unknown fields are ignored,
// malformed items are skipped, and a document is never rejected because one
// entry inside it is broken.
package mrf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NPI is a provider identifier. Payers disagree on whether to publish NPIs
// as JSON numbers or strings, so it accepts both.
type NPI string

func (n *NPI) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NPI(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NPI(num.String())
	return nil
}

// TIN is the tax identification object attached to a provider group.
type TIN struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RawProviderGroup is one {npi: [...], tin: {...}} entry.
type RawProviderGroup struct {
	NPI []NPI `json:"npi"`
	TIN *TIN  `json:"tin"`
}

// RawProviderReference is one top-level provider_references entry. The group
// id is kept as a json.Number so encoded-float dialects survive decoding.
type RawProviderReference struct {
	ProviderGroupID json.Number        `json:"provider_group_id"`
	ProviderGroups  []RawProviderGroup `json:"provider_groups"`
}

// RawNegotiatedPrice is one negotiated_prices entry. The rate stays textual
// (json.Number) until converted to cents.
type RawNegotiatedPrice struct {
	NegotiatedRate json.Number `json:"negotiated_rate"`
	NegotiatedType string      `json:"negotiated_type"`
	BillingClass   string      `json:"billing_class"`
	ServiceCode    []string    `json:"service_code"`
}

// RawNegotiatedRate groups prices with the provider references they apply to.
type RawNegotiatedRate struct {
	ProviderReferences []json.Number        `json:"provider_references"`
	NegotiatedPrices   []RawNegotiatedPrice `json:"negotiated_prices"`
}

// RawInNetworkItem is one billing-code entry of the in_network array.
type RawInNetworkItem struct {
	BillingCode     string              `json:"billing_code"`
	BillingCodeType string              `json:"billing_code_type"`
	NegotiatedRates []RawNegotiatedRate `json:"negotiated_rates"`
}

// Document is a whole-document parse of an in-network file.
type Document struct {
	ReportingEntityName string                 `json:"reporting_entity_name"`
	LastUpdatedOn       string                 `json:"last_updated_on"`
	ProviderReferences  []RawProviderReference `json:"provider_references"`
	InNetwork           []RawInNetworkItem     `json:"in_network"`
}

// ParseDocument decodes a whole in-network document from raw JSON bytes.
// Numbers are preserved as text so rates and encoded references never pass
// through float64 on the way in.
func ParseDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &doc, nil
}

// ParseLastUpdated parses the document-level last_updated_on date.
// Invalid or missing input yields nil, never an error.
func ParseLastUpdated(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
