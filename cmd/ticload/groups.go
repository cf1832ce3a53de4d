package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/exitcode"
	"github.com/gyeh/ticrates/internal/logging"
	"github.com/gyeh/ticrates/internal/store"
)

var groupsFile string

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Load the individual-to-organization NPI mapping",
	Long:  "Reads a JSON object of {individual_npi: organization_npi} pairs and replaces the npi_groups table used by competitive reports.",
	RunE:  runGroups,
}

func init() {
	groupsCmd.Flags().StringVar(&groupsFile, "file", "", "Path to mapping JSON (required)")
	_ = groupsCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(groupsCmd)
}

func runGroups(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	data, err := os.ReadFile(groupsFile)
	if err != nil {
		log.Error().Err(err).Msg("read mapping failed")
		os.Exit(exitcode.UsageError)
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		log.Error().Err(err).Msg("parse mapping failed")
		os.Exit(exitcode.ValidationError)
	}
	if len(mapping) == 0 {
		log.Error().Msg("mapping file lists no NPI pairs")
		os.Exit(exitcode.ValidationError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	n, err := store.New(pool, 0).ReplaceNPIGroups(ctx, mapping)
	if err != nil {
		log.Error().Err(err).Msg("group load failed")
		os.Exit(exitcode.DBConnError)
	}

	fmt.Printf("NPI groups loaded: %d pairs\n", n)
	return nil
}
