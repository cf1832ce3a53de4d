package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/config"
	"github.com/gyeh/ticrates/internal/db"
	"github.com/gyeh/ticrates/internal/exitcode"
	"github.com/gyeh/ticrates/internal/fetch"
	"github.com/gyeh/ticrates/internal/ingest"
	"github.com/gyeh/ticrates/internal/logging"
	"github.com/gyeh/ticrates/internal/model"
	"github.com/gyeh/ticrates/internal/store"
)

var ingestAll bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch payer indexes and ingest in-network files",
	RunE:  runIngestBatch,
}

var ingestFileCmd = &cobra.Command{
	Use:   "ingest-file",
	Short: "Ingest a single in-network file by URL",
	RunE:  runIngestFile,
}

var ingestFileURL string

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&cfg.Payer, "payer", "", "Ingest only this payer")
	f.BoolVar(&ingestAll, "all", false, "Ingest every enabled payer")
	f.IntVar(&cfg.MaxFiles, "max-files", 0, "Max files per payer (0 = no cap)")
	f.Int64Var(&cfg.MaxSizeMB, "max-size-mb", 0, "Skip files larger than this (0 = no ceiling)")
	f.IntVar(&cfg.BatchSize, "batch-size", 0, "Rows per COPY batch (0 = default)")
	rootCmd.AddCommand(ingestCmd)

	ff := ingestFileCmd.Flags()
	ff.StringVar(&cfg.Payer, "payer", "", "Payer name to record against (required)")
	ff.StringVar(&ingestFileURL, "url", "", "In-network file URL (required)")
	ff.IntVar(&cfg.BatchSize, "batch-size", 0, "Rows per COPY batch (0 = default)")
	_ = ingestFileCmd.MarkFlagRequired("payer")
	_ = ingestFileCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(ingestFileCmd)
}

// setupCoordinator wires config, database, filters, and HTTP client into a
// ready coordinator. The NPI filter comes from the registry table: empty
// table means no filtering.
func setupCoordinator(ctx context.Context, log zerolog.Logger) (*ingest.Coordinator, *config.PayersFile, func(), error) {
	payers, err := config.LoadPayers(cfg.PayersPath)
	if err != nil {
		return nil, nil, nil, err
	}
	codes, err := config.LoadCodes(cfg.CodesPath)
	if err != nil {
		return nil, nil, nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	st := store.New(pool, cfg.BatchSize)

	filters, err := config.NewFilterSet(codes, nil, payers.Geography.ZipPrefixes)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	// The registry supplies the NPI allowlist, narrowed to the configured
	// geography. An empty registry means no NPI filtering at all.
	providers, err := st.TargetProviders(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("load target NPIs: %w", err)
	}
	if len(providers) > 0 {
		npis := make([]string, 0, len(providers))
		for _, p := range providers {
			if filters.WantsZip(p.Zip) {
				npis = append(npis, p.NPI)
			}
		}
		filters, err = config.NewFilterSet(codes, npis, payers.Geography.ZipPrefixes)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
	}

	coord := &ingest.Coordinator{
		Store:   st,
		Client:  fetch.NewClient(log),
		Filters: filters,
		Log:     log,
	}
	return coord, payers, pool.Close, nil
}

func runIngestBatch(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat).With().
		Str("run_id", uuid.NewString()).Logger()
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if cfg.Payer == "" && !ingestAll {
		log.Error().Msg("--payer or --all is required")
		os.Exit(exitcode.UsageError)
	}

	coord, payers, closePool, err := setupCoordinator(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("setup failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closePool()

	var targets []config.PayerConfig
	if cfg.Payer != "" {
		p, ok := payers.Lookup(cfg.Payer)
		if !ok {
			log.Error().Str("payer", cfg.Payer).Msg("payer not found in config")
			os.Exit(exitcode.UsageError)
		}
		targets = []config.PayerConfig{p}
	} else {
		targets = payers.Enabled()
	}

	opts := ingest.BatchOptions{
		MaxFiles:     cfg.MaxFiles,
		MaxSizeBytes: cfg.MaxSizeMB << 20,
	}

	var totalFailed int
	var totalRecords int64
	for _, payer := range targets {
		summary, err := coord.RunPayer(ctx, payer, opts)
		if err != nil {
			log.Error().Err(err).Str("payer", payer.Name).Msg("payer run failed")
			totalFailed++
			continue
		}
		totalFailed += summary.Failed
		totalRecords += summary.RecordsStored
	}

	fmt.Printf("Ingest complete: %d records stored, %d failures\n", totalRecords, totalFailed)
	if totalFailed > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat).With().
		Str("run_id", uuid.NewString()).Logger()
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	coord, _, closePool, err := setupCoordinator(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("setup failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closePool()

	var stored int64
	failed := false
	for _, rep := range coord.ProcessSource(ctx, cfg.Payer, ingestFileURL) {
		stored += rep.RecordsStored
		if rep.Outcome == model.OutcomeError {
			failed = true
		}
	}

	fmt.Printf("Ingest complete: %d records stored\n", stored)
	if failed {
		os.Exit(exitcode.ExtractError)
	}
	return nil
}
