package mrf

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gyeh/ticrates/internal/config"
	"github.com/gyeh/ticrates/internal/model"
)

func filtersFor(t *testing.T, codes []string, npis []string) *config.FilterSet {
	t.Helper()
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	fs, err := config.NewFilterSet(set, npis, nil)
	if err != nil {
		t.Fatalf("NewFilterSet: %v", err)
	}
	return fs
}

func testDoc() *Document {
	return &Document{
		ReportingEntityName: "Test Payer",
		LastUpdatedOn:       "2026-08-01",
		ProviderReferences: []RawProviderReference{
			{
				ProviderGroupID: json.Number("1"),
				ProviderGroups: []RawProviderGroup{
					{NPI: []NPI{"1111111111", "2222222222"}, TIN: &TIN{Type: "ein", Value: "41-000"}},
				},
			},
			{
				ProviderGroupID: json.Number("2"),
				ProviderGroups:  []RawProviderGroup{{NPI: []NPI{"3333333333"}}},
			},
		},
		InNetwork: []RawInNetworkItem{
			{
				BillingCode:     "97110",
				BillingCodeType: "CPT",
				NegotiatedRates: []RawNegotiatedRate{
					{
						ProviderReferences: []json.Number{"1", "2"},
						NegotiatedPrices: []RawNegotiatedPrice{
							{NegotiatedRate: "45.1", NegotiatedType: "negotiated", BillingClass: "professional", ServiceCode: []string{"11", "19"}},
							{NegotiatedRate: "52.75", NegotiatedType: "negotiated", BillingClass: "professional"},
						},
					},
				},
			},
			{
				BillingCode: "99999",
				NegotiatedRates: []RawNegotiatedRate{
					{
						ProviderReferences: []json.Number{"1"},
						NegotiatedPrices:   []RawNegotiatedPrice{{NegotiatedRate: "10.00"}},
					},
				},
			},
		},
	}
}

func TestExtract_CrossProduct(t *testing.T) {
	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil), FileSource: "test.json"}
	records, err := ex.ExtractAll(testDoc())
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	// 2 prices x 3 providers = 6 records; the 99999 item is filtered out.
	if len(records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(records))
	}
	for _, r := range records {
		if r.BillingCode != "97110" {
			t.Errorf("unexpected billing code %s", r.BillingCode)
		}
		if r.PayerName != "Test Payer" {
			t.Errorf("payer = %q, want Test Payer", r.PayerName)
		}
		if r.LastUpdated == nil || r.LastUpdated.Format("2006-01-02") != "2026-08-01" {
			t.Errorf("last updated = %v", r.LastUpdated)
		}
	}

	first := records[0]
	if first.RateCents != 4510 {
		t.Errorf("rate = %d cents, want 4510", first.RateCents)
	}
	if first.PlaceOfService == nil || *first.PlaceOfService != "11" {
		t.Errorf("place of service = %v, want 11 (first service code only)", first.PlaceOfService)
	}
	if first.TIN == nil || *first.TIN != "41-000" {
		t.Errorf("tin = %v, want 41-000", first.TIN)
	}
}

func TestExtract_UnresolvedGroupDropped(t *testing.T) {
	doc := testDoc()
	// Point the rate at a reference that was never published.
	doc.InNetwork[0].NegotiatedRates[0].ProviderReferences = []json.Number{"404"}

	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil)}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("unattributed rates must be dropped, got %d records", len(records))
	}
}

func TestExtract_EmptyGroupDropped(t *testing.T) {
	doc := testDoc()
	doc.ProviderReferences = []RawProviderReference{{ProviderGroupID: json.Number("1")}}
	doc.InNetwork[0].NegotiatedRates[0].ProviderReferences = []json.Number{"1"}

	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil)}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("empty provider group should produce no records, got %d", len(records))
	}
}

func TestExtract_NPIFilter(t *testing.T) {
	// Non-nil filter keeps only the listed NPI.
	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, []string{"3333333333"})}
	records, err := ex.ExtractAll(testDoc())
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (2 prices x 1 provider), got %d", len(records))
	}
	for _, r := range records {
		if r.NPI != "3333333333" {
			t.Errorf("unexpected NPI %s", r.NPI)
		}
	}

	// Non-nil but empty filter suppresses everything.
	ex = &Extractor{Filters: filtersFor(t, []string{"97110"}, []string{})}
	records, err = ex.ExtractAll(testDoc())
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("empty NPI filter should suppress all records, got %d", len(records))
	}
}

func TestExtract_MalformedPriceSkipped(t *testing.T) {
	doc := testDoc()
	doc.InNetwork[0].NegotiatedRates[0].NegotiatedPrices = []RawNegotiatedPrice{
		{NegotiatedRate: "not-a-number"},
		{NegotiatedRate: ""},
		{NegotiatedRate: "-5.00"},
		{NegotiatedRate: "30.00"},
	}

	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil)}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	// Only the valid non-negative price survives, for 3 providers.
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, r := range records {
		if r.RateCents != 3000 {
			t.Errorf("rate = %d, want 3000", r.RateCents)
		}
	}
}

func TestExtract_ManyMalformedItems(t *testing.T) {
	doc := testDoc()
	for i := 0; i < 997; i++ {
		doc.InNetwork = append(doc.InNetwork, RawInNetworkItem{
			BillingCode: "97110",
			NegotiatedRates: []RawNegotiatedRate{
				{ProviderReferences: []json.Number{json.Number(fmt.Sprintf("bad-%d", i))}},
				{NegotiatedPrices: []RawNegotiatedPrice{{NegotiatedRate: "x"}}},
			},
		})
	}

	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil)}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("malformed items must not affect good ones: got %d records, want 6", len(records))
	}
}

func TestExtract_EarlyStop(t *testing.T) {
	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil)}
	var got []model.RateRecord
	err := ex.Extract(testDoc(), func(r model.RateRecord) error {
		got = append(got, r)
		if len(got) == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Extract with ErrStop should return nil, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records before stop, got %d", len(got))
	}
}

func TestExtract_DefaultCodeType(t *testing.T) {
	doc := testDoc()
	doc.InNetwork[0].BillingCodeType = ""

	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil)}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if records[0].BillingCodeType != "CPT" {
		t.Errorf("code type = %q, want CPT", records[0].BillingCodeType)
	}
}

func TestExtract_PayerFallback(t *testing.T) {
	doc := testDoc()
	doc.ReportingEntityName = ""

	ex := &Extractor{Filters: filtersFor(t, []string{"97110"}, nil), PayerName: "Configured Payer"}
	records, err := ex.ExtractAll(doc)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if records[0].PayerName != "Configured Payer" {
		t.Errorf("payer = %q, want Configured Payer", records[0].PayerName)
	}
}
