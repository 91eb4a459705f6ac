package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hospitrack/backend/internal/infrastructure/observability"
	"github.com/hospitrack/backend/pkg/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Load ER facility datasets into the HospiTrack database",
	Long:  "Reads facility CSV exports, fills missing coordinates from postal codes and writes the whitelisted columns to Postgres.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		observability.InitLogger("hospitrack-importer", cfg.Env)
		return nil
	},
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
