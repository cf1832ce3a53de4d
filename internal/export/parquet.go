// Package export dumps the rates table to Parquet for offline analysis.
package export

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parquet-go/parquet-go"
)

const flushInterval = 100_000

// RateRow is the Parquet schema for one exported rate.
type RateRow struct {
	PayerName       string  `parquet:"payer_name,dict"`
	LastUpdated     *string `parquet:"last_updated,optional"`
	BillingCode     string  `parquet:"billing_code,dict"`
	BillingCodeType string  `parquet:"billing_code_type,dict"`
	RateCents       int64   `parquet:"negotiated_rate_cents"`
	NegotiatedType  string  `parquet:"negotiated_type,dict"`
	BillingClass    string  `parquet:"billing_class,dict"`
	PlaceOfService  *string `parquet:"place_of_service,optional,dict"`
	NPI             string  `parquet:"npi,dict"`
	TIN             *string `parquet:"tin,optional,dict"`
	FileSource      string  `parquet:"file_source,dict"`
}

// Rates streams every row of the rates table into a Snappy-compressed
// Parquet file at path and returns the row count.
func Rates(ctx context.Context, pool *pgxpool.Pool, path string) (int64, error) {
	rows, err := pool.Query(ctx, `
		SELECT payer_name, to_char(last_updated, 'YYYY-MM-DD'),
		       billing_code, billing_code_type, negotiated_rate_cents,
		       negotiated_type, billing_class, place_of_service,
		       npi, tin, file_source
		FROM rates`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create parquet file: %w", err)
	}
	writer := parquet.NewGenericWriter[RateRow](file,
		parquet.Compression(&parquet.Snappy),
	)

	var count int64
	for rows.Next() {
		var r RateRow
		if err := rows.Scan(&r.PayerName, &r.LastUpdated, &r.BillingCode,
			&r.BillingCodeType, &r.RateCents, &r.NegotiatedType, &r.BillingClass,
			&r.PlaceOfService, &r.NPI, &r.TIN, &r.FileSource); err != nil {
			file.Close()
			return 0, err
		}
		if _, err := writer.Write([]RateRow{r}); err != nil {
			file.Close()
			return 0, fmt.Errorf("write parquet row: %w", err)
		}
		count++
		if count%flushInterval == 0 {
			if err := writer.Flush(); err != nil {
				file.Close()
				return 0, fmt.Errorf("flush parquet: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		file.Close()
		return 0, err
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return count, file.Close()
}
