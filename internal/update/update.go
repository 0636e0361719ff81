// ABOUTME: Smart update orchestration: analyze, plan, confirm, fetch, merge.
// ABOUTME: Produces one summary per run with fetch and merge counts.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/fetch"
	"github.com/harperreed/fitlog/internal/logging"
	"github.com/harperreed/fitlog/internal/merge"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/storage"
)

// Config is read once when the Updater is built.
type Config struct {
	Planner          planner.Options
	ConfirmThreshold int
	StagingDir       string
	Retry            fetch.RetryPolicy
}

// Options selects the mode of one run.
type Options struct {
	DryRun     bool
	RecentOnly bool
	FillGaps   bool
	// Confirm is asked before plans above the confirmation threshold.
	// Nil declines them.
	Confirm planner.ConfirmFunc
	// Today defaults to the current local date.
	Today models.Day
}

// Summary reports one update run.
type Summary struct {
	RunID       string             `json:"run_id"`
	Phase       planner.Phase      `json:"phase"`
	History     []planner.Phase    `json:"history"`
	Plan        planner.UpdatePlan `json:"plan"`
	DaysFetched int                `json:"days_fetched"`
	DaysFailed  int                `json:"days_failed"`
	Merge       *merge.Summary     `json:"merge"`
	Duration    time.Duration      `json:"duration"`
}

// Updater runs smart updates against one store.
type Updater struct {
	store   storage.Store
	fetcher fetch.Fetcher
	merger  *merge.Merger
	cfg     Config
	logger  *log.Logger
}

// New creates an updater.
func New(store storage.Store, fetcher fetch.Fetcher, merger *merge.Merger, cfg Config, logger *log.Logger) *Updater {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fetch.DefaultRetryPolicy()
	}
	return &Updater{store: store, fetcher: fetcher, merger: merger, cfg: cfg, logger: logger}
}

// Run performs one update. A fatal fetch error (ErrAuthExpired) is returned
// together with the partial summary.
func (u *Updater) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	today := opts.Today
	if today == 0 {
		today = models.Today()
	}

	mergeSummary := merge.NewSummary(opts.DryRun)
	handler := func(metric models.MetricType, day models.Day, data []byte) error {
		return u.merger.MergePage(mergeSummary, metric, day, data)
	}
	exec := fetch.NewExecutor(u.fetcher, u.cfg.Retry, u.cfg.StagingDir, handler, u.logger)

	plannerOpts := u.cfg.Planner
	plannerOpts.RecentOnly = opts.RecentOnly
	plannerOpts.FillGaps = opts.FillGaps

	u.logger.Info("smart update", "run_id", mergeSummary.RunID, "today", today, "dry_run", opts.DryRun)
	outcome, err := planner.Run(ctx, coverage.NewAnalyzer(u.store), exec, planner.RunOptions{
		Options:          plannerOpts,
		Today:            today,
		DryRun:           opts.DryRun,
		ConfirmThreshold: u.cfg.ConfirmThreshold,
		Confirm:          opts.Confirm,
	})

	summary := &Summary{
		RunID:    mergeSummary.RunID,
		Merge:    mergeSummary,
		Duration: time.Since(start),
	}
	if outcome != nil {
		summary.Phase = outcome.Phase
		summary.History = outcome.History
		summary.Plan = outcome.Plan
		summary.DaysFetched = outcome.Execution.Succeeded
		summary.DaysFailed = outcome.Execution.Failed
	}
	u.logger.Info("update finished", "run_id", summary.RunID, "phase", summary.Phase,
		"fetched", summary.DaysFetched, "failed", summary.DaysFailed)
	return summary, err
}
