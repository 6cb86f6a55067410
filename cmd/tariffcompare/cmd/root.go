// Package cmd holds the tariffcompare command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bher20/tariffcompare/internal/config"
	"github.com/bher20/tariffcompare/internal/logging"
)

var (
	envFile   string
	verbose   bool
	logFormat string

	// cfg is populated by initConfig before any command runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tariffcompare",
	Short: "Compare electricity retailer rate cards against your usage",
	Long: `tariffcompare prices a bill's charge lines against the published rate
cards of several retailers for one network tariff, and keeps the signup
checklist audit log.

Examples:
  tariffcompare serve
  tariffcompare tariffs
  tariffcompare compare --tariff EA025 --usage "Peak=842.3" --usage "Daily supply charge=91"
  tariffcompare migrate up`,
	SilenceUsage: true,
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logging.Sync()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tariffsCmd)
	rootCmd.AddCommand(compareCmd)
}

func initConfig() {
	if envFile != "" {
		cfg = config.Load(envFile)
	} else {
		cfg = config.Load()
	}

	lc := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"}
	if verbose {
		lc.Level = "debug"
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	if err := logging.Initialize(lc); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}
