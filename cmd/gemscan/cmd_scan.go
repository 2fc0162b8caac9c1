package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/solgems/gemscan/internal/config"
)

// scanCmd runs a single detection cycle and exits.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one detection cycle",
	Long: `Run a single discovery-to-analysis cycle and write the cycle report
to the output directory.

Examples:
  gemscan scan
  gemscan scan --output out/gemscan --timeout 5m
  gemscan scan --config config/gemscan.yaml --verbose`,
	RunE: runScan,
}

var (
	scanOutputDir string
	scanTimeout   time.Duration
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanOutputDir, "output", "out/gemscan", "Output directory for cycle artifacts")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "Wall-clock limit for the cycle")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := buildApp(cfg, scanOutputDir)
	if err != nil {
		return err
	}
	defer application.close()

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	application.stream.Start(ctx)
	application.runCycle(ctx)
	return nil
}
