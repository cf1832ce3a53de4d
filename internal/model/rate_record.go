package model

import "time"

// RateRecord is one flattened negotiated rate: a single (price, provider)
// pair extracted from an in-network file. Provider demographics are left
// empty at extraction time and filled by a later join against the registry.
type RateRecord struct {
	PayerName       string
	LastUpdated     *time.Time
	BillingCode     string
	BillingCodeType string
	RateCents       Cents
	NegotiatedType  string
	BillingClass    string
	PlaceOfService  *string
	NPI             string
	TIN             *string

	ProviderName  *string
	ProviderState *string
	ProviderCity  *string
	ProviderZip   *string

	FileSource string
}

// RateColumns returns the ordered column names for COPY into rates.
func RateColumns() []string {
	return []string{
		"payer_name",
		"last_updated",
		"billing_code",
		"billing_code_type",
		"negotiated_rate_cents",
		"negotiated_type",
		"billing_class",
		"place_of_service",
		"npi",
		"tin",
		"provider_name",
		"provider_state",
		"provider_city",
		"provider_zip",
		"file_source",
	}
}

// CopyValues returns the record values in RateColumns order, suitable for a
// pgx CopyFromSource.
func (r *RateRecord) CopyValues() []any {
	return []any{
		r.PayerName,
		r.LastUpdated,
		r.BillingCode,
		r.BillingCodeType,
		int64(r.RateCents),
		r.NegotiatedType,
		r.BillingClass,
		r.PlaceOfService,
		r.NPI,
		r.TIN,
		r.ProviderName,
		r.ProviderState,
		r.ProviderCity,
		r.ProviderZip,
		r.FileSource,
	}
}

// Provider is one row of the provider registry table.
type Provider struct {
	NPI          string
	Name         string
	Type         string
	TaxonomyCode string
	TaxonomyDesc string
	AddressLine1 string
	City         string
	State        string
	Zip          string
	Phone        string
}
