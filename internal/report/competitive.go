package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/gyeh/ticrates/internal/model"
)

// OrgRate is one organization's position for a billing code. Individual
// NPIs are folded into their organization through the npi_groups mapping;
// an NPI with no mapping stands as its own organization.
type OrgRate struct {
	OrgNPI string
	Name   string
	Median model.Cents
	Count  int64
}

// CompetitiveReport ranks organizations by median negotiated rate for one
// billing code. Rank 1 is the highest-paid organization.
type CompetitiveReport struct {
	Payer       string // empty means all payers combined
	BillingCode string
	Orgs        []OrgRate

	TargetOrg    string
	TargetRank   int
	TargetMedian model.Cents

	Lowest  OrgRate
	Highest OrgRate
}

// Competitive builds the per-organization ranking for billingCode, within
// one payer or across all of them. Ties on median break toward the lower
// organization NPI so repeated runs produce the same ordering.
func (r *Reporter) Competitive(ctx context.Context, payer, billingCode, targetOrg string) (*CompetitiveReport, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT COALESCE(g.organization_npi, r.npi) AS org_npi,
		       COALESCE(p.provider_name, '') AS org_name,
		       r.negotiated_rate_cents
		FROM rates r
		LEFT JOIN npi_groups g ON g.individual_npi = r.npi
		LEFT JOIN nppes_providers p ON p.npi = COALESCE(g.organization_npi, r.npi)
		WHERE r.billing_code = $1 AND ($2 = '' OR r.payer_name = $2)`,
		billingCode, payer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrg := make(map[string][]model.Cents)
	names := make(map[string]string)
	for rows.Next() {
		var org, name string
		var cents int64
		if err := rows.Scan(&org, &name, &cents); err != nil {
			return nil, err
		}
		byOrg[org] = append(byOrg[org], model.Cents(cents))
		if name != "" {
			names[org] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byOrg) == 0 {
		return nil, fmt.Errorf("no rates stored for billing code %s", billingCode)
	}

	orgs := make([]OrgRate, 0, len(byOrg))
	for org, values := range byOrg {
		orgs = append(orgs, OrgRate{
			OrgNPI: org,
			Name:   names[org],
			Median: Median(values),
			Count:  int64(len(values)),
		})
	}
	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].Median != orgs[j].Median {
			return orgs[i].Median > orgs[j].Median
		}
		return orgs[i].OrgNPI < orgs[j].OrgNPI
	})

	rep := &CompetitiveReport{
		Payer:       payer,
		BillingCode: billingCode,
		Orgs:        orgs,
		TargetOrg:   targetOrg,
		Highest:     orgs[0],
		Lowest:      orgs[len(orgs)-1],
	}
	for i, o := range orgs {
		if o.OrgNPI == targetOrg {
			rep.TargetRank = i + 1
			rep.TargetMedian = o.Median
			break
		}
	}
	if targetOrg != "" && rep.TargetRank == 0 {
		return rep, fmt.Errorf("organization %s has no rates for billing code %s", targetOrg, billingCode)
	}
	return rep, nil
}
