// ABOUTME: Drives one update run through its phases: analyze, plan, confirm, execute.
// ABOUTME: Execution is delegated to an Executor so planning stays free of network calls.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/models"
)

// CoverageSource produces coverage reports. *coverage.Analyzer satisfies it.
type CoverageSource interface {
	AnalyzeAll(metrics []models.MetricType) (map[models.MetricType]coverage.Report, error)
}

// Execution summarizes the tasks an Executor ran.
type Execution struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Executor runs the tasks of a plan. It returns a non-nil error for a fatal
// failure or cancellation, along with what it managed before stopping.
type Executor interface {
	Execute(ctx context.Context, plan UpdatePlan) (Execution, error)
}

// ConfirmFunc is asked before executing a plan above the confirmation threshold.
type ConfirmFunc func(plan UpdatePlan) bool

// RunOptions configures Run.
type RunOptions struct {
	Options
	Today            models.Day
	DryRun           bool
	ConfirmThreshold int
	Confirm          ConfirmFunc
}

// Outcome is the result of Run.
type Outcome struct {
	Phase     Phase                                 `json:"phase"`
	History   []Phase                               `json:"history"`
	Plan      UpdatePlan                            `json:"plan"`
	Coverage  map[models.MetricType]coverage.Report `json:"-"`
	Execution Execution                             `json:"execution"`
}

// Run analyzes coverage, plans, and executes unless the run is a dry run,
// already up to date, or declined at confirmation.
func Run(ctx context.Context, src CoverageSource, exec Executor, opts RunOptions) (*Outcome, error) {
	m := NewMachine()
	out := &Outcome{}
	finish := func() *Outcome {
		out.Phase = m.Phase()
		out.History = m.History()
		return out
	}

	if err := m.Transition(PhasePlanning); err != nil {
		return finish(), err
	}
	full := opts.Options.withDefaults()
	reports, err := src.AnalyzeAll(analyzedMetrics(full))
	if err != nil {
		return finish(), fmt.Errorf("analyze coverage: %w", err)
	}
	out.Coverage = reports
	out.Plan = Plan(reports, opts.Today, opts.Options)

	if out.Plan.UpToDate() {
		_ = m.Transition(PhaseUpToDate)
		return finish(), nil
	}
	_ = m.Transition(PhasePlanReady)
	if opts.DryRun {
		return finish(), nil
	}

	threshold := opts.ConfirmThreshold
	if threshold <= 0 {
		threshold = DefaultConfirmThreshold
	}
	if out.Plan.EstimatedRequests > threshold && (opts.Confirm == nil || !opts.Confirm(out.Plan)) {
		_ = m.Transition(PhaseCancelled)
		return finish(), nil
	}

	_ = m.Transition(PhaseExecuting)
	out.Execution, err = exec.Execute(ctx, out.Plan)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		_ = m.Transition(PhaseCancelled)
		return finish(), nil
	case err != nil:
		_ = m.Transition(PhasePartiallyCompleted)
		return finish(), err
	case out.Execution.Failed > 0:
		_ = m.Transition(PhasePartiallyCompleted)
	default:
		_ = m.Transition(PhaseCompleted)
	}
	return finish(), nil
}

// analyzedMetrics is every stored metric type plus any configured fetch or
// priority metric, in order. The recent range starts after the latest day
// held by any metric, not only the fetched ones.
func analyzedMetrics(o Options) []models.MetricType {
	seen := make(map[models.MetricType]bool)
	var out []models.MetricType
	for _, list := range [][]models.MetricType{o.FetchMetrics, o.PriorityMetrics, models.AllMetricTypes} {
		for _, m := range list {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
