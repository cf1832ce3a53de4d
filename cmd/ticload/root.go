package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gyeh/ticrates/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "ticload",
	Short: "Transparency-in-Coverage negotiated-rate loader",
	Long:  "Downloads payer machine-readable in-network files, extracts negotiated rates for the configured billing codes and providers, and loads them into Postgres.",
}

func init() {
	// .env is optional; real deployments set DATABASE_URL directly.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.PayersPath, "payers", "config/payers.yaml", "Path to payer roster config")
	pf.StringVar(&cfg.CodesPath, "codes", "config/codes.yaml", "Path to billing code config")
}
