package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/exitcode"
	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/logging"
	"github.com/gyeh/ticrates/internal/scan"
	"github.com/gyeh/ticrates/internal/store"
)

var scanOpts scan.Options
var scanOut string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe a payer's provider-group endpoints for the target NPIs",
	RunE:  runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanOpts.BaseURL, "base-url", "", "Group URL template with a %d verb for the group id (required)")
	f.Int64Var(&scanOpts.StartID, "start", 0, "First group id")
	f.Int64Var(&scanOpts.EndID, "end", 0, "One past the last group id (required)")
	f.IntVar(&scanOpts.Workers, "workers", scan.DefaultWorkers, "Concurrent probes")
	f.StringVar(&scanOut, "out", "npi_groups.json", "Output mapping path")
	_ = scanCmd.MarkFlagRequired("base-url")
	_ = scanCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	providers, err := store.New(pool, 0).TargetProviders(ctx)
	pool.Close()
	if err != nil {
		log.Error().Err(err).Msg("load target NPIs failed")
		os.Exit(exitcode.DBConnError)
	}
	if len(providers) == 0 {
		log.Error().Msg("provider registry is empty; run the nppes command first")
		os.Exit(exitcode.ValidationError)
	}
	npis := make([]string, 0, len(providers))
	for _, p := range providers {
		npis = append(npis, p.NPI)
	}

	mapping, err := scan.Run(ctx, fetch.NewClient(log), log, npis, scanOpts)
	if err != nil {
		log.Error().Err(err).Msg("scan failed")
		os.Exit(exitcode.FetchError)
	}
	if err := scan.WriteMapping(scanOut, mapping); err != nil {
		log.Error().Err(err).Msg("write mapping failed")
		os.Exit(exitcode.ExtractError)
	}

	fmt.Printf("Scan complete: %d NPIs found, %d missing, mapping written to %s\n",
		len(mapping.NPIToGroups), len(mapping.MissingNPIs), scanOut)
	return nil
}
