// ABOUTME: Tests for update planning, the phase machine, and Run.
// ABOUTME: Coverage and execution are faked so no store or network is involved.
package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = models.MustParseDay("2024-09-10")

func reportWith(metric models.MetricType, days ...models.Day) coverage.Report {
	return coverage.Compute(metric, days)
}

func TestPlanRecentRange(t *testing.T) {
	tests := []struct {
		name      string
		reports   map[models.MetricType]coverage.Report
		wantRange *Range
	}{
		{
			name:      "cold start",
			reports:   map[models.MetricType]coverage.Report{},
			wantRange: &Range{Start: today.AddDays(-6), End: today},
		},
		{
			name: "three days behind",
			reports: map[models.MetricType]coverage.Report{
				models.MetricHeartRate: reportWith(models.MetricHeartRate, today.AddDays(-10), today.AddDays(-3)),
				models.MetricSleep:     reportWith(models.MetricSleep, today.AddDays(-5)),
			},
			wantRange: &Range{Start: today.AddDays(-2), End: today},
		},
		{
			name: "current",
			reports: map[models.MetricType]coverage.Report{
				models.MetricSteps: reportWith(models.MetricSteps, today),
			},
			wantRange: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(tt.reports, today, Options{UpdateRecentDays: 7})
			assert.Equal(t, tt.wantRange, plan.RecentRange)
		})
	}
}

func TestPlanPriorityGaps(t *testing.T) {
	d := models.MustParseDay("2024-06-01")
	reports := map[models.MetricType]coverage.Report{
		// gaps of 5 and 1 days
		models.MetricHeartRate: reportWith(models.MetricHeartRate, d, d.AddDays(6), d.AddDays(8), today),
		// gap of 2 days, and one of 40 that exceeds the ceiling
		models.MetricSleep: reportWith(models.MetricSleep, d, d.AddDays(3), d.AddDays(44), today),
		// not a priority metric
		models.MetricSpO2: reportWith(models.MetricSpO2, d, d.AddDays(2), today),
	}

	plan := Plan(reports, today, Options{
		MaxGapDays:      30,
		PriorityMetrics: []models.MetricType{models.MetricHeartRate, models.MetricSleep},
		FetchMetrics:    []models.MetricType{models.MetricHeartRate, models.MetricSleep},
	})

	require.Len(t, plan.PriorityGaps, 3)
	lengths := []int{plan.PriorityGaps[0].Length, plan.PriorityGaps[1].Length, plan.PriorityGaps[2].Length}
	assert.Equal(t, []int{1, 2, 5}, lengths)
	assert.Equal(t, models.MetricSleep, plan.PriorityGaps[1].Metric)
	assert.Nil(t, plan.RecentRange)

	assert.Equal(t, 8, plan.TotalDays)
	assert.Equal(t, 8, plan.EstimatedRequests)
	assert.InDelta(t, 8.0/150, plan.EstimatedHours, 1e-9)
}

func TestPlanEstimatesAndModes(t *testing.T) {
	reports := map[models.MetricType]coverage.Report{
		models.MetricHeartRate: reportWith(models.MetricHeartRate, today.AddDays(-7), today.AddDays(-3)),
	}
	opts := Options{FetchMetrics: models.FetchableMetricTypes}

	plan := Plan(reports, today, opts)
	require.NotNil(t, plan.RecentRange)
	assert.Equal(t, 3+3, plan.TotalDays)
	assert.Equal(t, 3*len(models.FetchableMetricTypes)+3, plan.EstimatedRequests)

	opts.RecentOnly = true
	recent := Plan(reports, today, opts)
	assert.Empty(t, recent.PriorityGaps)
	assert.Equal(t, 3, recent.TotalDays)

	opts.RecentOnly, opts.FillGaps = false, true
	gaps := Plan(reports, today, opts)
	assert.Nil(t, gaps.RecentRange)
	assert.Equal(t, 3, gaps.TotalDays)
}

func TestPlanTasks(t *testing.T) {
	plan := UpdatePlan{
		RecentRange:  &Range{Start: today.AddDays(-1), End: today},
		FetchMetrics: []models.MetricType{models.MetricHeartRate, models.MetricSleep},
		PriorityGaps: []coverage.Gap{
			{Metric: models.MetricSleep, First: today.AddDays(-5), Last: today.AddDays(-4), Length: 2},
			{Metric: models.MetricSleep, First: today, Last: today, Length: 1},
		},
	}

	want := []Task{
		{models.MetricHeartRate, today.AddDays(-1)},
		{models.MetricSleep, today.AddDays(-1)},
		{models.MetricHeartRate, today},
		{models.MetricSleep, today},
		{models.MetricSleep, today.AddDays(-5)},
		{models.MetricSleep, today.AddDays(-4)},
	}
	assert.Equal(t, want, plan.Tasks())
}

func TestMachineTransitions(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Transition(PhasePlanning))
	require.NoError(t, m.Transition(PhasePlanReady))

	err := m.Transition(PhaseCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Transition(PhaseExecuting))
	require.NoError(t, m.Transition(PhasePartiallyCompleted))
	assert.True(t, m.Phase().Terminal())
	assert.Equal(t, []Phase{PhaseIdle, PhasePlanning, PhasePlanReady, PhaseExecuting, PhasePartiallyCompleted}, m.History())

	assert.False(t, PhasePlanReady.Terminal())
	assert.True(t, PhaseUpToDate.Terminal())
}

type fakeCoverage map[models.MetricType]coverage.Report

func (f fakeCoverage) AnalyzeAll(metrics []models.MetricType) (map[models.MetricType]coverage.Report, error) {
	out := make(map[models.MetricType]coverage.Report)
	for _, m := range metrics {
		if r, ok := f[m]; ok {
			out[m] = r
		}
	}
	return out, nil
}

type fakeExecutor struct {
	result Execution
	err    error
	called bool
}

func (f *fakeExecutor) Execute(ctx context.Context, plan UpdatePlan) (Execution, error) {
	f.called = true
	return f.result, f.err
}

func TestRun(t *testing.T) {
	behind := fakeCoverage{models.MetricHeartRate: reportWith(models.MetricHeartRate, today.AddDays(-2))}
	current := fakeCoverage{models.MetricHeartRate: reportWith(models.MetricHeartRate, today)}
	coldStart := fakeCoverage{}

	tests := []struct {
		name      string
		src       fakeCoverage
		exec      *fakeExecutor
		opts      RunOptions
		wantPhase Phase
		wantExec  bool
		wantErr   bool
	}{
		{"up to date", current, &fakeExecutor{}, RunOptions{}, PhaseUpToDate, false, false},
		{"dry run", behind, &fakeExecutor{}, RunOptions{DryRun: true}, PhasePlanReady, false, false},
		{"completed", behind, &fakeExecutor{result: Execution{Attempted: 8, Succeeded: 8}}, RunOptions{}, PhaseCompleted, true, false},
		{"partial", behind, &fakeExecutor{result: Execution{Attempted: 8, Succeeded: 7, Failed: 1}}, RunOptions{}, PhasePartiallyCompleted, true, false},
		{"cancelled mid run", behind, &fakeExecutor{err: context.Canceled}, RunOptions{}, PhaseCancelled, true, false},
		{"fatal error", behind, &fakeExecutor{err: errors.New("auth expired")}, RunOptions{}, PhasePartiallyCompleted, true, true},
		{
			name: "declined above threshold", src: coldStart, exec: &fakeExecutor{},
			opts:      RunOptions{ConfirmThreshold: 10, Confirm: func(UpdatePlan) bool { return false }},
			wantPhase: PhaseCancelled,
		},
		{
			name: "accepted above threshold", src: coldStart, exec: &fakeExecutor{},
			opts:      RunOptions{ConfirmThreshold: 10, Confirm: func(UpdatePlan) bool { return true }},
			wantPhase: PhaseCompleted, wantExec: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Today = today
			out, err := Run(context.Background(), tt.src, tt.exec, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if out.Phase != tt.wantPhase {
				t.Errorf("phase = %s, want %s (history %v)", out.Phase, tt.wantPhase, out.History)
			}
			if tt.exec.called != tt.wantExec {
				t.Errorf("executor called = %v, want %v", tt.exec.called, tt.wantExec)
			}
		})
	}
}

func TestRunRecentRangeUsesEveryStoredMetric(t *testing.T) {
	// Only a non-fetched metric has data; its latest day still bounds the recent range.
	src := fakeCoverage{models.MetricHRV: reportWith(models.MetricHRV, today.AddDays(-3))}

	out, err := Run(context.Background(), src, &fakeExecutor{}, RunOptions{Today: today, DryRun: true})
	require.NoError(t, err)
	require.NotNil(t, out.Plan.RecentRange)
	assert.Equal(t, Range{Start: today.AddDays(-2), End: today}, *out.Plan.RecentRange)
	assert.Contains(t, out.Coverage, models.MetricHRV)
}

func TestAnalyzedMetricsCoversAllTypes(t *testing.T) {
	got := analyzedMetrics(Options{FetchMetrics: []models.MetricType{models.MetricSteps}})
	assert.Equal(t, models.MetricSteps, got[0])
	assert.ElementsMatch(t, models.AllMetricTypes, got)
}
