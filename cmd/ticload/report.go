package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/exitcode"
	"github.com/gyeh/ticrates/internal/logging"
	"github.com/gyeh/ticrates/internal/report"
	"github.com/gyeh/ticrates/internal/store"
)

var reportPayer string
var reportCode string
var reportOrg string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summaries over the stored rates",
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Per-billing-code rate distribution",
	RunE:  runReportStats,
}

var reportPayersCmd = &cobra.Command{
	Use:   "payers",
	Short: "Per-payer footprint and median rate",
	RunE:  runReportPayers,
}

var reportCompetitiveCmd = &cobra.Command{
	Use:   "competitive",
	Short: "Rank organizations by median rate for a billing code",
	RunE:  runReportCompetitive,
}

func init() {
	reportStatsCmd.Flags().StringVar(&reportPayer, "payer", "", "Restrict to one payer")

	f := reportCompetitiveCmd.Flags()
	f.StringVar(&reportCode, "code", "", "Billing code (required)")
	f.StringVar(&reportOrg, "org", "", "Target organization NPI")
	f.StringVar(&reportPayer, "payer", "", "Restrict to one payer")
	_ = reportCompetitiveCmd.MarkFlagRequired("code")

	reportCmd.AddCommand(reportStatsCmd, reportPayersCmd, reportCompetitiveCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportPool(ctx context.Context) *pgxpool.Pool {
	log := logging.Setup(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return pool
}

func runReportStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool := reportPool(ctx)
	defer pool.Close()

	stats, err := (&report.Reporter{Pool: pool}).CodeSummaries(ctx, reportPayer)
	if err != nil {
		log := logging.Setup(cfg.LogFormat)
		log.Error().Err(err).Msg("stats query failed")
		os.Exit(exitcode.DBConnError)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tCOUNT\tMIN\tP10\tP25\tMEDIAN\tP75\tP90\tMAX\tMEAN")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.BillingCode, s.Count, s.Min, s.P10, s.P25, s.P50, s.P75, s.P90, s.Max, s.Mean)
	}
	w.Flush()

	tbl, err := store.New(pool, 0).Stats(ctx)
	if err == nil {
		fmt.Printf("\n%d rates, %d payers, %d codes, %d providers\n",
			tbl.TotalRates, tbl.Payers, tbl.BillingCodes, tbl.Providers)
	}
	return nil
}

func runReportPayers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool := reportPool(ctx)
	defer pool.Close()

	stats, err := (&report.Reporter{Pool: pool}).PayerSummaries(ctx)
	if err != nil {
		log := logging.Setup(cfg.LogFormat)
		log.Error().Err(err).Msg("payer query failed")
		os.Exit(exitcode.DBConnError)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAYER\tRECORDS\tCODES\tPROVIDERS\tMEDIAN")
	for _, p := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", p.Payer, p.Records, p.Codes, p.Providers, p.Median)
	}
	return w.Flush()
}

func runReportCompetitive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool := reportPool(ctx)
	defer pool.Close()

	rep, err := (&report.Reporter{Pool: pool}).Competitive(ctx, reportPayer, reportCode, reportOrg)
	if err != nil {
		log := logging.Setup(cfg.LogFormat)
		log.Error().Err(err).Msg("competitive query failed")
		os.Exit(exitcode.ValidationError)
	}

	fmt.Printf("Billing code %s: %d organizations\n", rep.BillingCode, len(rep.Orgs))
	if reportOrg != "" {
		fmt.Printf("Target %s: rank %d of %d, median %s\n",
			rep.TargetOrg, rep.TargetRank, len(rep.Orgs), rep.TargetMedian)
	}
	fmt.Printf("Highest: %s %s (%s)\n", rep.Highest.OrgNPI, rep.Highest.Name, rep.Highest.Median)
	fmt.Printf("Lowest:  %s %s (%s)\n", rep.Lowest.OrgNPI, rep.Lowest.Name, rep.Lowest.Median)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tORG NPI\tNAME\tMEDIAN\tRATES")
	for i, o := range rep.Orgs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", i+1, o.OrgNPI, o.Name, o.Median, o.Count)
	}
	return w.Flush()
}
