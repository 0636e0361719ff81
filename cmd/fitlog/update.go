// ABOUTME: CLI command for smart updates from the web API.
// ABOUTME: Plans recent days and priority gaps, confirms large plans, then fetches and merges.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/fetch"
	"github.com/harperreed/fitlog/internal/merge"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/update"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var (
	updateDryRun     bool
	updateRecentOnly bool
	updateFillGaps   bool
	updateYes        bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch recent days and fill priority gaps",
	Long: `Bring the store up to date with the web API.

An update plans two kinds of work:

  recent   every day after the newest stored day, up to today
           (cold start: the last update_recent_days days)
  gaps     missing days of priority metrics, shortest gaps first,
           skipping gaps longer than max_gap_days

Requests are rate limited (rate_limit_per_hour). Plans that need more
requests than confirm_threshold ask before running.

Fetched pages are staged first and then merged with the configured merge
policy, so an interrupted run loses no fetched data.

EXAMPLES:

  fitlog update --dry-run        # Show the plan only
  fitlog update --recent-only    # Skip gap filling
  fitlog update --fill-gaps      # Only fill gaps
  fitlog update --yes            # Do not ask for confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plannerOpts, err := cfg.PlannerOptions()
		if err != nil {
			return err
		}
		resolver, err := cfg.MergeResolver()
		if err != nil {
			return err
		}
		if !updateDryRun {
			if err := cfg.RequireFetch(); err != nil {
				return err
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		fetcher, err := newFetcher(ctx, updateDryRun)
		if err != nil {
			return err
		}

		stagingDir := cfg.GetStagingDir()
		merger := merge.NewMerger(store, resolver, stagingDir, logger)
		updater := update.New(store, fetcher, merger, update.Config{
			Planner:          plannerOpts,
			ConfirmThreshold: cfg.GetConfirmThreshold(),
			StagingDir:       stagingDir,
		}, logger)

		summary, runErr := updater.Run(ctx, update.Options{
			DryRun:     updateDryRun,
			RecentOnly: updateRecentOnly,
			FillGaps:   updateFillGaps,
			Confirm:    confirmPlan,
		})
		if summary != nil {
			printUpdateSummary(summary)
		}
		if runErr != nil {
			return fmt.Errorf("update failed: %w", runErr)
		}
		return nil
	},
}

// newFetcher builds an authorized API client. Dry runs never send requests,
// so they get an unauthenticated client and need no token file.
func newFetcher(ctx context.Context, dryRun bool) (*fetch.Client, error) {
	limiter := fetch.NewLimiter(cfg.GetRateLimit())
	if dryRun {
		return fetch.NewClient(http.DefaultClient, limiter, cfg.GetAPIBaseURL()), nil
	}

	oauthCfg := fetch.OAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.GetTokenURL())
	ts, err := fetch.NewTokenSource(ctx, oauthCfg, cfg.GetTokenFile())
	if err != nil {
		return nil, err
	}
	return fetch.NewClient(oauth2.NewClient(ctx, ts), limiter, cfg.GetAPIBaseURL()), nil
}

func confirmPlan(plan planner.UpdatePlan) bool {
	if updateYes {
		return true
	}
	printPlan(plan)
	return confirm(fmt.Sprintf("This plan needs %d requests (about %.1f hours). Continue?",
		plan.EstimatedRequests, plan.EstimatedHours))
}

func printPlan(plan planner.UpdatePlan) {
	if r := plan.RecentRange; r != nil {
		fmt.Printf("  Recent:   %s to %s (%d days)\n", r.Start, r.End, r.Days())
	} else {
		fmt.Println("  Recent:   up to date")
	}
	fmt.Printf("  Gaps:     %d\n", len(plan.PriorityGaps))
	for i, g := range plan.PriorityGaps {
		if i == maxGapsShown {
			fmt.Printf("            ... and %d more\n", len(plan.PriorityGaps)-maxGapsShown)
			break
		}
		fmt.Printf("            %s %s to %s (%d days)\n", padRight(string(g.Metric), 18), g.First, g.Last, g.Length)
	}
	fmt.Printf("  Days:     %d\n", plan.TotalDays)
	fmt.Printf("  Requests: %d (about %.1f hours)\n", plan.EstimatedRequests, plan.EstimatedHours)
}

func printUpdateSummary(s *update.Summary) {
	switch s.Phase {
	case planner.PhaseUpToDate:
		color.Green("✓ Already up to date")
		return
	case planner.PhasePlanReady:
		color.Yellow("Dry run - nothing fetched")
		printPlan(s.Plan)
		return
	case planner.PhaseCancelled:
		color.Yellow("Update cancelled")
	case planner.PhaseCompleted:
		color.Green("✓ Update complete")
	case planner.PhasePartiallyCompleted:
		color.Yellow("⚠ Update partially completed")
	}

	fmt.Printf("  Days fetched: %d\n", s.DaysFetched)
	if s.DaysFailed > 0 {
		color.Red("  Days failed:  %d", s.DaysFailed)
	}
	if s.Merge != nil && s.Merge.Pages > 0 {
		t := s.Merge.Totals()
		fmt.Printf("  Merged:       %d added, %d skipped, %d composed, %d failed\n", t.Added, t.Skipped, t.Composed, t.Failed)
	}
	fmt.Printf("  Duration:     %s\n", s.Duration.Round(time.Second))
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "show the plan without fetching")
	updateCmd.Flags().BoolVar(&updateRecentOnly, "recent-only", false, "only fetch days after the newest stored day")
	updateCmd.Flags().BoolVar(&updateFillGaps, "fill-gaps", false, "only fill priority gaps")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "skip the confirmation prompt")
	updateCmd.MarkFlagsMutuallyExclusive("recent-only", "fill-gaps")
	rootCmd.AddCommand(updateCmd)
}
