package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vergabe-radar",
	Short: "Procurement notice ingestion and search pipeline",
	Long:  "Fetches daily notice exports from oeffentlichevergabe.de, imports them into Postgres, geocodes and embeds the notices, and publishes them to a hybrid search index.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
