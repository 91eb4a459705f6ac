package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hospitrack/backend/internal/adapters/dataset"
	"github.com/hospitrack/backend/internal/infrastructure/clients/postgres"
)

var inspectTable string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the Postgres snapshot and print what the API would serve",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		table := inspectTable
		if table == "" {
			table = cfg.Database.Table
		}

		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("inspect: connect: %w", err)
		}
		defer pgClient.Close()

		snap, err := dataset.NewPostgresSource(pgClient.DB(), table).LoadSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("inspect: load: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"source":     snap.Source,
			"facilities": len(snap.Facilities),
			"located":    snap.LocatedCount(),
			"columns":    snap.Columns(),
		})
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectTable, "table", "", "source table (default: DB_FACILITY_TABLE)")
	rootCmd.AddCommand(inspectCmd)
}
