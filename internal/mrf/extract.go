package mrf

import (
	"errors"
	"time"

	"github.com/gyeh/ticrates/internal/config"
	"github.com/gyeh/ticrates/internal/model"
)

// ErrStop can be returned by an emit callback to end extraction early
// without error. Partial consumption never leaks the underlying decoder.
var ErrStop = errors.New("stop extraction")

// Extractor turns one parsed document into a stream of RateRecords,
// applying the code and NPI filters along the way.
type Extractor struct {
	Filters *config.FilterSet
	// PayerName is the fallback payer label when the document carries no
	// reporting_entity_name.
	PayerName string
	// FileSource identifies the document's provenance (URL, or
	// URL#fragment for archive members).
	FileSource string
}

// Extract walks the in-network tree and calls emit for every record that
// survives filtering. A malformed price or reference skips only itself;
// extraction never fails on bad data, only on a non-ErrStop emit error.
func (e *Extractor) Extract(doc *Document, emit func(model.RateRecord) error) error {
	payer := doc.ReportingEntityName
	if payer == "" {
		payer = e.PayerName
	}
	lastUpdated := ParseLastUpdated(doc.LastUpdatedOn)
	resolver := Build(doc.ProviderReferences)

	for i := range doc.InNetwork {
		if err := e.extractItem(&doc.InNetwork[i], resolver, payer, lastUpdated, emit); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// extractItem handles one billing-code entry. The code filter runs before
// any nested traversal so out-of-scope items cost nothing.
func (e *Extractor) extractItem(item *RawInNetworkItem, resolver *Resolver, payer string, lastUpdated *time.Time, emit func(model.RateRecord) error) error {
	if !e.Filters.WantsCode(item.BillingCode) {
		return nil
	}
	codeType := item.BillingCodeType
	if codeType == "" {
		codeType = "CPT"
	}

	for _, nr := range item.NegotiatedRates {
		// A rate entry can cite several group references; the provider
		// lists are concatenated.
		var providers []ProviderPair
		for _, ref := range nr.ProviderReferences {
			if pairs, ok := resolver.Resolve(ref); ok {
				providers = append(providers, pairs...)
			}
		}
		// No attributable provider means no record: unattributed rates are
		// dropped, never stored with a placeholder NPI.
		if len(providers) == 0 {
			continue
		}

		for _, price := range nr.NegotiatedPrices {
			cents, err := model.ParseCents(price.NegotiatedRate.String())
			if err != nil || cents < 0 {
				continue
			}
			var pos *string
			if len(price.ServiceCode) > 0 {
				v := price.ServiceCode[0]
				pos = &v
			}

			for _, p := range providers {
				if !e.Filters.WantsNPI(p.NPI) {
					continue
				}
				rec := model.RateRecord{
					PayerName:       payer,
					LastUpdated:     lastUpdated,
					BillingCode:     item.BillingCode,
					BillingCodeType: codeType,
					RateCents:       cents,
					NegotiatedType:  price.NegotiatedType,
					BillingClass:    price.BillingClass,
					PlaceOfService:  pos,
					NPI:             p.NPI,
					TIN:             p.TIN,
					FileSource:      e.FileSource,
				}
				if err := emit(rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ExtractAll is a convenience wrapper collecting every record into a slice.
func (e *Extractor) ExtractAll(doc *Document) ([]model.RateRecord, error) {
	var out []model.RateRecord
	err := e.Extract(doc, func(r model.RateRecord) error {
		out = append(out, r)
		return nil
	})
	return out, err
}
