// ABOUTME: CLI command for copying every partition to another storage backend.
// ABOUTME: Refuses a non-empty destination unless --force is given.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/config"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateTo     string
	migrateToDir  string
	migrateForce  bool
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy stored data to another backend",
	Long: `Copy every stored partition to another storage backend.

The source is the configured backend. Partitions already in the destination
are replaced, so a migration can be repeated safely with --force.

After migrating, point backend and data_dir in the config at the new store.

EXAMPLES:

  fitlog migrate --to sqlite --dry-run
  fitlog migrate --to sqlite --to-dir ~/.local/share/fitlog-sqlite
  fitlog migrate --to charm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(config.Backends, migrateTo) {
			return fmt.Errorf("%w: unknown backend %q", config.ErrConfigInvalid, migrateTo)
		}

		dst := *cfg
		dst.Backend = migrateTo
		if migrateToDir != "" {
			dst.DataDir = config.ExpandPath(migrateToDir)
		}
		if dst.GetBackend() == cfg.GetBackend() && dst.GetDataDir() == cfg.GetDataDir() {
			return fmt.Errorf("source and destination are the same store")
		}

		if migrateDryRun {
			color.Yellow("Dry run mode - no changes will be made")
			fmt.Println()
			return previewMigration()
		}

		if !migrateForce {
			exists, where, err := destinationHasData(&dst)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("destination %s already has data (use --force to overwrite partitions)", where)
			}
		}

		target, err := dst.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer func() { _ = target.Close() }()

		summary, err := storage.MigrateData(store, target)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.Green("✓ Migrated to %s (%s)", migrateTo, dst.GetDataDir())
		fmt.Printf("  Metrics:    %d\n", summary.Metrics)
		fmt.Printf("  Partitions: %d\n", summary.Partitions)
		fmt.Printf("  Rows:       %d\n", summary.Rows)
		return nil
	},
}

// destinationHasData reports whether the destination store already holds files.
// Charm is never checked; its partitions are simply replaced.
func destinationHasData(dst *config.Config) (bool, string, error) {
	dir := dst.GetDataDir()
	switch dst.GetBackend() {
	case "csv":
		ok, err := storage.IsDirNonEmpty(dir)
		return ok, dir, err
	case "badger":
		dir = filepath.Join(dir, "badger")
		ok, err := storage.IsDirNonEmpty(dir)
		return ok, dir, err
	case "sqlite":
		path := filepath.Join(dir, "fitlog.db")
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return false, path, nil
		}
		return err == nil, path, err
	}
	return false, "", nil
}

func previewMigration() error {
	metrics, err := store.Metrics()
	if err != nil {
		return err
	}
	total := 0
	for _, m := range metrics {
		days, err := store.ListDays(m)
		if err != nil {
			return err
		}
		total += len(days)
		fmt.Printf("  %s %d partitions\n", padRight(string(m), 18), len(days))
	}
	fmt.Printf("\nWould migrate %d partitions to %s\n", total, migrateTo)
	return nil
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend: csv, sqlite, badger, or charm")
	migrateCmd.Flags().StringVar(&migrateToDir, "to-dir", "", "destination data directory (default: data_dir)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "write into a non-empty destination")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}
