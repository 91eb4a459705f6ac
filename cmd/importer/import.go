package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hospitrack/backend/internal/adapters/dataset"
	"github.com/hospitrack/backend/internal/adapters/providers/geolocation"
	"github.com/hospitrack/backend/internal/application/services"
	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/infrastructure/clients/postgres"
)

var (
	importFile        string
	importTable       string
	importGeocode     bool
	importConcurrency int
	importDryRun      bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a facility CSV or Parquet export into Postgres",
	Long: `Reads a facility export, drops repeated header rows, keeps the whitelisted
columns and replaces the contents of the facility table. Files ending in
.parquet are read as Parquet, anything else as CSV.

Examples:
  # Parse and geocode only, print a summary
  importer import --file data/us_er.csv --dry-run

  # Full import without postal code lookups
  importer import --file data/US_er_final.parquet --geocode=false`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		facilities, columns, err := readFacilities(ctx, importFile)
		if err != nil {
			return err
		}
		log.Info().Int("rows", len(facilities)).Strs("columns", columns).Msg("parsed dataset")

		if importGeocode {
			provider, err := geolocation.NewProvider(cfg.Geolocation)
			if err != nil {
				return fmt.Errorf("import: geocoder: %w", err)
			}
			var stats services.BackfillStats
			facilities, stats, err = services.BackfillCoordinates(ctx, facilities, provider, importConcurrency)
			if err != nil {
				return fmt.Errorf("import: backfill coordinates: %w", err)
			}
			log.Info().Interface("stats", stats).Msg("coordinates backfilled")
		}

		if importDryRun {
			return printSummary(facilities, columns)
		}

		table := importTable
		if table == "" {
			table = cfg.Database.Table
		}

		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("import: connect: %w", err)
		}
		defer pgClient.Close()

		target := dataset.NewPostgresSource(pgClient.DB(), table)
		if err := target.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("import: ensure schema: %w", err)
		}
		n, err := target.ReplaceAll(ctx, facilities)
		if err != nil {
			return fmt.Errorf("import: write: %w", err)
		}

		log.Info().Int("rows", n).Str("table", table).Msg("import complete")
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to facility CSV or Parquet file (required)")
	importCmd.Flags().StringVar(&importTable, "table", "", "target table (default: DB_FACILITY_TABLE)")
	importCmd.Flags().BoolVar(&importGeocode, "geocode", true, "fill missing coordinates from postal codes")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 1, "max concurrent postal code lookups")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and geocode only, print a summary")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func readFacilities(ctx context.Context, path string) ([]entities.Facility, []string, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return dataset.ReadParquetFile(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	facilities, columns, err := dataset.ReadFacilities(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return facilities, columns, nil
}

func printSummary(facilities []entities.Facility, columns []string) error {
	located := 0
	states := make(map[string]int)
	for i := range facilities {
		if facilities[i].Located() {
			located++
		}
		if s := facilities[i].Address.State; s != "" {
			states[s]++
		}
	}
	fmt.Fprintf(os.Stdout, "rows:     %d\n", len(facilities))
	fmt.Fprintf(os.Stdout, "located:  %d\n", located)
	fmt.Fprintf(os.Stdout, "states:   %d\n", len(states))
	fmt.Fprintf(os.Stdout, "columns:  %s\n", strings.Join(columns, ", "))
	return nil
}
