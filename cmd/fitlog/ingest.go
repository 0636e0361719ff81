// ABOUTME: CLI command for ingesting a bulk data archive.
// ABOUTME: Accepts an extracted export folder or a zip file and prints run counts.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/config"
	"github.com/harperreed/fitlog/internal/ingest"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Normalize a bulk data archive into the store",
	Long: `Walk a bulk export archive and write one normalized table per metric and day.

The path may be an extracted export folder (zip files inside it are read too)
or a single zip file. Without a path, archive_dir from the config is used.

Files that are not recognized (profile data, notes) are skipped. Malformed
rows are skipped and counted. Re-running the same ingest leaves the store
unchanged.

EXAMPLES:

  fitlog ingest ~/Downloads/Takeout
  fitlog ingest ~/Downloads/takeout-20240901.zip
  fitlog ingest                        # uses archive_dir`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cfg.GetArchiveDir()
		if len(args) == 1 {
			root = config.ExpandPath(args[0])
		}
		if root == "" {
			return fmt.Errorf("%w: no archive path given and archive_dir is not set", config.ErrConfigMissing)
		}

		if cfg.GetBackend() == "charm" {
			client, err := charmClient()
			if err != nil {
				return err
			}
			client.SetAutoSync(false)
			defer func() {
				client.SetAutoSync(true)
				if err := client.Sync(); err != nil {
					color.Yellow("⚠ Sync after ingest failed: %v", err)
				}
			}()
		}

		ctx, cancel := signalContext()
		defer cancel()

		summary, err := ingest.NewProcessor(store, logger).Run(ctx, root)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}

		color.Green("✓ Ingested %s", root)
		fmt.Printf("  Files processed:  %d\n", summary.FilesProcessed)
		fmt.Printf("  Files skipped:    %d\n", summary.FilesSkipped)
		fmt.Printf("  Files failed:     %d\n", summary.FilesFailed)
		fmt.Printf("  Rows:             %d\n", summary.Rows)
		fmt.Printf("  Malformed rows:   %d\n", summary.Malformed)
		fmt.Printf("  Tables written:   %d\n", summary.TablesWritten)
		if summary.WriteFailures > 0 {
			color.Yellow("  Write failures:   %d", summary.WriteFailures)
		}
		for _, m := range summary.SortedDays() {
			fmt.Printf("  %s %d days\n", padRight(string(m), 18), summary.Days[m])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
