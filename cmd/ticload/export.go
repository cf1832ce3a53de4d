package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/exitcode"
	"github.com/gyeh/ticrates/internal/export"
	"github.com/gyeh/ticrates/internal/logging"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the rates table to a Parquet file",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "rates.parquet", "Output Parquet path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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
	defer pool.Close()

	n, err := export.Rates(ctx, pool, exportOut)
	if err != nil {
		log.Error().Err(err).Msg("export failed")
		os.Exit(exitcode.ExtractError)
	}

	fmt.Printf("Export complete: %d rows written to %s\n", n, exportOut)
	return nil
}
