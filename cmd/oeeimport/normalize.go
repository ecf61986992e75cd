package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/oeedash/internal/config"
	"github.com/JonMunkholm/oeedash/internal/core"
	"github.com/JonMunkholm/oeedash/internal/export"
	"github.com/JonMunkholm/oeedash/internal/service"
	"github.com/JonMunkholm/oeedash/internal/store"
)

type normalizeOptions struct {
	kind       string
	output     string
	format     string
	reportPath string
	db         string
	replace    bool
	seed       uint64
	noAugment  bool
	timezone   string
	quiet      bool
}

func newNormalizeCmd() *cobra.Command {
	var opts normalizeOptions

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Run one file through the pipeline and write the canonical dataset",
		Example: `  oeeimport normalize --kind equipment 设备数据.xlsx -o equipment.csv
  oeeimport normalize -k material materials.csv --format xlsx -o out.xlsx --report report.json
  oeeimport normalize -k environment env.xls --db sqlite:oee.db --replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.kind, "kind", "k", "", "Record kind: "+kindList()+" (required)")
	f.StringVarP(&opts.output, "output", "o", "-", `Output file for the canonical dataset ("-" for stdout)`)
	f.StringVar(&opts.format, "format", "", "Output format: csv or xlsx (default from --output extension, else csv)")
	f.StringVar(&opts.reportPath, "report", "", "Write the processing report as JSON to this file")
	f.StringVar(&opts.db, "db", "", "Persist the import to this store (sqlite:path or postgres:// URL; default DATABASE_URL)")
	f.BoolVar(&opts.replace, "replace", false, "Replace the stored dataset of the kind instead of appending")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed for corrections and synthetic rows (0 = random; default IMPORT_SEED)")
	f.BoolVar(&opts.noAugment, "no-augment", false, "Never add synthetic rows to small datasets")
	f.StringVar(&opts.timezone, "timezone", "", "IANA zone for timestamps without an offset (default IMPORT_TIMEZONE)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the report summary")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runNormalize(cmd *cobra.Command, path string, opts normalizeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyImportFlags(cmd.Flags(), &cfg.Import, opts)

	def, ok := core.Get(core.RecordKind(strings.ToLower(opts.kind)))
	if !ok {
		return fmt.Errorf("%w: %q (use one of %s)", core.ErrUnsupportedKind, opts.kind, kindList())
	}

	format, err := outputFormat(opts.format, opts.output)
	if err != nil {
		return err
	}

	pipeline, err := service.NewPipeline(cfg.Import, slog.Default())
	if err != nil {
		return err
	}

	dbURL := cfg.Database.URL
	if cmd.Flags().Changed("db") {
		dbURL = opts.db
	}
	st, err := store.Open(cmd.Context(), store.Options{
		URL:             dbURL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	svc := service.New(st, pipeline, service.ConfigFrom(cfg))
	out, err := svc.Import(cmd.Context(), service.ImportRequest{
		Kind:         def.Kind,
		FileName:     filepath.Base(path),
		Data:         file,
		Replace:      opts.replace,
		UploadedFrom: "cli",
	})
	if err != nil {
		return describeError(err)
	}

	if err := writeDataset(cmd.OutOrStdout(), opts.output, format, def, out.Rows); err != nil {
		return err
	}
	if opts.reportPath != "" {
		if err := writeReport(opts.reportPath, out); err != nil {
			return err
		}
	}
	if !opts.quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), renderReport(out, store.Describe(dbURL)))
	}
	return nil
}

// applyImportFlags overrides the environment import settings with explicitly set flags.
func applyImportFlags(flags *pflag.FlagSet, ic *config.ImportConfig, opts normalizeOptions) {
	if flags.Changed("seed") {
		ic.Seed = opts.seed
	}
	if flags.Changed("no-augment") {
		ic.DisableAugment = opts.noAugment
	}
	if flags.Changed("timezone") {
		ic.Timezone = opts.timezone
	}
}

// outputFormat picks the explicit format, else the output extension, else CSV.
func outputFormat(explicit, output string) (export.Format, error) {
	if explicit != "" {
		return export.ParseFormat(explicit)
	}
	if strings.EqualFold(filepath.Ext(output), ".xlsx") {
		return export.FormatXLSX, nil
	}
	return export.FormatCSV, nil
}

func writeDataset(stdout io.Writer, output string, format export.Format, def core.KindDefinition, rows []core.Row) error {
	if output == "" || output == "-" {
		return export.Write(stdout, format, def, rows)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := export.Write(f, format, def, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeReport(path string, out *service.ImportOutcome) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// describeError appends the user-facing guidance to known pipeline and file errors.
func describeError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	msg := core.MapError(err)
	return fmt.Errorf("%w\n  %s (%s). %s", err, msg.Message, msg.Code, msg.Action)
}

func kindList() string {
	kinds := core.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
