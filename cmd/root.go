package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-labs/goldenhour/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "goldenhour",
	Short: "Risk-weighted trauma response placement",
	Long:  "Fetches road networks, classifies accident-prone intersections by connectivity, and places standby trauma units at risk-cluster centroids.",
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
