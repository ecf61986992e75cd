package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/oeedash/internal/config"
	"github.com/JonMunkholm/oeedash/internal/logging"
)

var (
	// Set at build time with -ldflags.
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "oeeimport",
		Short: "Normalise and validate OEE manufacturing data files",
		Long: `oeeimport reads equipment, operation, material and environment exports
(CSV, XLSX or HTML-table .xls), maps their columns to canonical fields,
validates and backfills the rows and writes a canonical dataset plus a
processing report. Imports can be persisted to the same store the
dashboard server uses.

Settings not given as flags are read from the environment (and .env),
using the same variables as the server.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format: text or json")

	cmd.AddCommand(newNormalizeCmd(), newKindsCmd(), newOEECmd())
	return cmd
}

// loadConfig reads the environment configuration shared with the server.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
