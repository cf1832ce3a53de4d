package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/config"
	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/exitcode"
	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/logging"
	"github.com/gyeh/ticrates/internal/nppes"
	"github.com/gyeh/ticrates/internal/store"
)

var nppesCmd = &cobra.Command{
	Use:   "nppes",
	Short: "Load the provider registry from the NPPES API",
	RunE:  runNPPES,
}

func init() {
	rootCmd.AddCommand(nppesCmd)
}

func runNPPES(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	payers, err := config.LoadPayers(cfg.PayersPath)
	if err != nil {
		log.Error().Err(err).Msg("load payers config failed")
		os.Exit(exitcode.UsageError)
	}
	if len(payers.Geography.ZipPrefixes) == 0 {
		log.Error().Msg("payers config defines no geography zip_prefixes")
		os.Exit(exitcode.UsageError)
	}

	client := &nppes.Client{
		BaseURL: nppes.DefaultBaseURL,
		HTTP:    fetch.NewClient(log),
		Log:     log,
	}
	providers, err := client.FetchProviders(ctx, payers.Geography.ZipPrefixes, nil)
	if err != nil {
		log.Error().Err(err).Msg("registry fetch failed")
		os.Exit(exitcode.FetchError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	n, err := store.New(pool, 0).ReplaceProviders(ctx, providers)
	if err != nil {
		log.Error().Err(err).Msg("provider load failed")
		os.Exit(exitcode.DBConnError)
	}

	fmt.Printf("Provider registry loaded: %d providers\n", n)
	return nil
}
