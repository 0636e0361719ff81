// ABOUTME: Root Cobra command for fitlog CLI.
// ABOUTME: Loads configuration and handles the storage lifecycle via PersistentPre/PostRunE.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/harperreed/fitlog/internal/config"
	"github.com/harperreed/fitlog/internal/logging"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/spf13/cobra"
)

// Command annotations that skip parts of the root setup.
const (
	skipStore  = "skip-store"
	skipConfig = "skip-config"
)

var (
	configPath  string
	backendFlag string
	dataDirFlag string
	verbose     bool

	cfg    *config.Config
	store  storage.Store
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fitlog",
	Short: "Fitness tracker data normalization and smart updates",
	Long: `Fitlog turns fitness tracker exports into one clean, day-partitioned dataset
and keeps it current with small, rate-limited updates from the web API.

WHAT IT STORES:

  Activity     steps, distance, calories, activity_summary
  Heart        heart_rate, hrv
  Sleep        sleep, sleep_score
  Biometrics   spo2, temperature

  Every metric is kept as one table per calendar day.

QUICK START:

  $ fitlog config init                 # Write a config with every default
  $ fitlog ingest ~/Downloads/Takeout  # Normalize a bulk archive (folders or zips)
  $ fitlog analyze                     # Show coverage and gaps per metric
  $ fitlog update --dry-run            # Preview what an update would fetch
  $ fitlog update                      # Fetch recent days and priority gaps
  $ fitlog summary                     # Health summary for the last week of data

VIEWING:

  $ fitlog show heart_rate 2024-08-29          # Every row of one day
  $ fitlog show steps --bucket weekly          # Weekly totals
  $ fitlog serve                               # JSON API for dashboards

STORAGE BACKENDS:

  csv (default)   One folder per metric, one CSV file per day
  sqlite          Single fitlog.db file
  badger          Embedded key-value database
  charm           Charm KV, synced across devices (see 'fitlog sync')

MCP INTEGRATION:

  Run 'fitlog mcp' to start the Model Context Protocol server for use with
  Claude Desktop or other MCP-compatible AI assistants.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Annotations[skipConfig] == "true" {
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		level := cfg.GetLogLevel()
		if verbose {
			level = "debug"
		}
		logger = logging.New(os.Stderr, level)

		if cmd.Annotations[skipStore] == "true" {
			return nil
		}

		store, err = cfg.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		logger.Debug("storage opened", "backend", cfg.GetBackend(), "dir", cfg.GetDataDir())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/fitlog/config.json)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: csv, sqlite, badger, or charm")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command and releases storage even when a command fails.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeStore(); err == nil {
		err = cerr
	}
	return err
}

// loadConfig reads --config or the default path and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if configPath != "" {
		c, err = config.LoadFrom(configPath)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if backendFlag != "" {
		c.Backend = backendFlag
	}
	if dataDirFlag != "" {
		c.DataDir = dataDirFlag
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func closeStore() error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store = nil
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
