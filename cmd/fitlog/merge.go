// ABOUTME: CLI command for merging staged API pages into the store.
// ABOUTME: Applies the per-metric merge policy and prints added/skipped/composed/failed counts.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/merge"
	"github.com/spf13/cobra"
)

var mergeDryRun bool

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge staged API pages into the store",
	Long: `Merge every page in the staging folder into the store.

Each (metric, day) page is normalized and resolved against the stored day:

  archive_wins   keep stored data; fill only missing days (default)
  fetched_wins   replace the stored day (default for activity_summary)
  compose        union of stored and fetched rows

Policies are set per metric with merge_policy in the config.

EXAMPLES:

  fitlog merge --dry-run    # Show what would change
  fitlog merge`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := cfg.MergeResolver()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		if mergeDryRun {
			color.Yellow("Dry run mode - no changes will be made")
			fmt.Println()
		}

		merger := merge.NewMerger(store, resolver, cfg.GetStagingDir(), logger)
		summary, err := merger.MergeStaging(ctx, mergeDryRun)
		if err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}
		if summary.Pages == 0 {
			fmt.Printf("No staged pages in %s\n", cfg.GetStagingDir())
			return nil
		}

		printMergeSummary(summary)
		if !mergeDryRun {
			color.Green("✓ Merged %d pages", summary.Pages)
		}
		return nil
	},
}

func printMergeSummary(s *merge.Summary) {
	fmt.Printf("%s %s %s %s %s\n", padRight("METRIC", 18), padRight("ADDED", 7), padRight("SKIPPED", 8), padRight("COMPOSED", 9), "FAILED")
	for _, m := range s.SortedMetrics() {
		c := s.Metrics[m]
		fmt.Printf("%s %s %s %s %d\n", padRight(string(m), 18),
			padRight(fmt.Sprint(c.Added), 7), padRight(fmt.Sprint(c.Skipped), 8), padRight(fmt.Sprint(c.Composed), 9), c.Failed)
	}
	t := s.Totals()
	fmt.Printf("%s %s %s %s %d\n", padRight("total", 18),
		padRight(fmt.Sprint(t.Added), 7), padRight(fmt.Sprint(t.Skipped), 8), padRight(fmt.Sprint(t.Composed), 9), t.Failed)
	if s.Malformed > 0 {
		color.Yellow("  Malformed rows skipped: %d", s.Malformed)
	}
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "show what would change without writing")
	rootCmd.AddCommand(mergeCmd)
}
