// Package report computes read-side summaries over the rates table.
// Grouping and filtering happen in SQL; order statistics are computed in Go
// because percentile math over cents wants exact control of interpolation.
package report

import (
	"context"
	"math"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/ticrates/internal/model"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between order statistics. The input order does not matter;
// the slice is not modified.
func Percentile(values []model.Cents, p float64) model.Cents {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]model.Cents, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	v := float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo])
	return model.Cents(math.Round(v))
}

// Median is the 50th percentile.
func Median(values []model.Cents) model.Cents {
	return Percentile(values, 50)
}

func mean(values []model.Cents) model.Cents {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	return model.Cents(math.Round(float64(sum) / float64(len(values))))
}

// CodeStats summarizes all rates stored for one billing code.
type CodeStats struct {
	BillingCode string
	Count       int64
	Min         model.Cents
	Max         model.Cents
	Mean        model.Cents
	P10         model.Cents
	P25         model.Cents
	P50         model.Cents
	P75         model.Cents
	P90         model.Cents
}

// PayerStats summarizes one payer's footprint in the rates table.
type PayerStats struct {
	Payer     string
	Records   int64
	Codes     int64
	Providers int64
	Median    model.Cents
}

// Reporter runs read-only queries against the pool.
type Reporter struct {
	Pool *pgxpool.Pool
}

// CodeSummaries returns per-billing-code statistics, optionally restricted
// to one payer. Results are ordered by billing code.
func (r *Reporter) CodeSummaries(ctx context.Context, payer string) ([]CodeStats, error) {
	query := `
		SELECT billing_code, negotiated_rate_cents
		FROM rates`
	args := []any{}
	if payer != "" {
		query += " WHERE payer_name = $1"
		args = append(args, payer)
	}
	query += " ORDER BY billing_code"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCode := make(map[string][]model.Cents)
	var order []string
	for rows.Next() {
		var code string
		var cents int64
		if err := rows.Scan(&code, &cents); err != nil {
			return nil, err
		}
		if _, seen := byCode[code]; !seen {
			order = append(order, code)
		}
		byCode[code] = append(byCode[code], model.Cents(cents))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := make([]CodeStats, 0, len(order))
	for _, code := range order {
		stats = append(stats, summarize(code, byCode[code]))
	}
	return stats, nil
}

func summarize(code string, values []model.Cents) CodeStats {
	s := CodeStats{
		BillingCode: code,
		Count:       int64(len(values)),
		Min:         Percentile(values, 0),
		Max:         Percentile(values, 100),
		Mean:        mean(values),
		P10:         Percentile(values, 10),
		P25:         Percentile(values, 25),
		P50:         Percentile(values, 50),
		P75:         Percentile(values, 75),
		P90:         Percentile(values, 90),
	}
	return s
}

// PayerSummaries returns per-payer counts and the overall median rate.
func (r *Reporter) PayerSummaries(ctx context.Context) ([]PayerStats, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT payer_name,
		       count(*),
		       count(DISTINCT billing_code),
		       count(DISTINCT npi)
		FROM rates
		GROUP BY payer_name
		ORDER BY payer_name`)
	if err != nil {
		return nil, err
	}

	var stats []PayerStats
	for rows.Next() {
		var p PayerStats
		if err := rows.Scan(&p.Payer, &p.Records, &p.Codes, &p.Providers); err != nil {
			rows.Close()
			return nil, err
		}
		stats = append(stats, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range stats {
		values, err := r.payerRates(ctx, stats[i].Payer)
		if err != nil {
			return nil, err
		}
		stats[i].Median = Median(values)
	}
	return stats, nil
}

func (r *Reporter) payerRates(ctx context.Context, payer string) ([]model.Cents, error) {
	rows, err := r.Pool.Query(ctx,
		"SELECT negotiated_rate_cents FROM rates WHERE payer_name = $1", payer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []model.Cents
	for rows.Next() {
		var cents int64
		if err := rows.Scan(&cents); err != nil {
			return nil, err
		}
		values = append(values, model.Cents(cents))
	}
	return values, rows.Err()
}
