package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/oeedash/internal/service"
	"github.com/JonMunkholm/oeedash/internal/store"
)

type oeeOptions struct {
	db     string
	days   int
	asJSON bool
}

func newOEECmd() *cobra.Command {
	var opts oeeOptions

	cmd := &cobra.Command{
		Use:   "oee",
		Short: "Compute per-device OEE and TEEP from a persisted store",
		Example: `  oeeimport oee --db sqlite:oee.db --days 7`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dbURL := cfg.Database.URL
			if cmd.Flags().Changed("db") {
				dbURL = opts.db
			}
			if store.Describe(dbURL) == store.BackendMemory {
				return fmt.Errorf("oee needs a persisted store: pass --db or set DATABASE_URL")
			}

			st, err := store.Open(cmd.Context(), store.Options{URL: dbURL, MaxConns: cfg.Database.MaxConns, MinConns: cfg.Database.MinConns})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			pipeline, err := service.NewPipeline(cfg.Import, slog.Default())
			if err != nil {
				return err
			}
			svc := service.New(st, pipeline, service.ConfigFrom(cfg))

			summary, err := svc.OEE(cmd.Context(), opts.days)
			if err != nil {
				return describeError(err)
			}

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOEE(summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "Store URL (sqlite:path or postgres://; default DATABASE_URL)")
	cmd.Flags().IntVar(&opts.days, "days", 0, "Window length in days ending now (default OEE_WINDOW_DAYS)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the summary as JSON")
	return cmd
}
