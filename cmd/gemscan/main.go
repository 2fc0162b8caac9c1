package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "gemscan"
	version = "v0.1.0"
)

var (
	flagConfig  string
	flagVerbose bool
)

// rootCmd is the base command for the gemscan CLI.
var rootCmd = &cobra.Command{
	Use:     "gemscan",
	Short:   "Solana early-gem detector",
	Version: version,
	Long: `gemscan hunts newly launched Solana tokens through a four-stage
progressive analysis funnel: cheap triage first, expensive OHLCV analysis
only for the handful of candidates that earn it.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gemscan - progressive early-gem detection")
		fmt.Println("Use 'gemscan scan' for a single cycle or 'gemscan loop' for continuous hunting")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config/gemscan.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	// Accept snake_case spellings of every flag.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	// Pretty console output on a terminal, raw JSON when piped.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
