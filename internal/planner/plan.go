// ABOUTME: Update planner turning coverage reports into a fetch plan.
// ABOUTME: Plans the trailing days behind today plus small priority gaps, cheapest first.
package planner

import (
	"sort"

	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/models"
)

// Defaults used when options leave a field at zero.
const (
	DefaultMaxGapDays       = 30
	DefaultUpdateRecentDays = 7
	DefaultRequestsPerHour  = 150
	DefaultConfirmThreshold = 300
)

// DefaultPriorityMetrics are the metrics whose gaps are worth refetching.
var DefaultPriorityMetrics = []models.MetricType{
	models.MetricHeartRate,
	models.MetricSleep,
	models.MetricActivitySummary,
}

// Options configures planning.
type Options struct {
	MaxGapDays       int
	UpdateRecentDays int
	PriorityMetrics  []models.MetricType
	// FetchMetrics are fetched for every day of the recent range.
	FetchMetrics    []models.MetricType
	RequestsPerHour int

	// RecentOnly drops the priority gaps from the plan.
	RecentOnly bool
	// FillGaps drops the recent range from the plan.
	FillGaps bool
}

func (o Options) withDefaults() Options {
	if o.MaxGapDays <= 0 {
		o.MaxGapDays = DefaultMaxGapDays
	}
	if o.UpdateRecentDays <= 0 {
		o.UpdateRecentDays = DefaultUpdateRecentDays
	}
	if o.PriorityMetrics == nil {
		o.PriorityMetrics = DefaultPriorityMetrics
	}
	if o.FetchMetrics == nil {
		o.FetchMetrics = models.FetchableMetricTypes
	}
	if o.RequestsPerHour <= 0 {
		o.RequestsPerHour = DefaultRequestsPerHour
	}
	return o
}

// Range is an inclusive span of days.
type Range struct {
	Start models.Day `json:"start"`
	End   models.Day `json:"end"`
}

// Days returns the number of days in the range.
func (r Range) Days() int {
	return r.End.Sub(r.Start) + 1
}

// UpdatePlan is an advisory list of what to fetch.
type UpdatePlan struct {
	Today             models.Day          `json:"today"`
	RecentRange       *Range              `json:"recent_range,omitempty"`
	PriorityGaps      []coverage.Gap      `json:"priority_gaps"`
	FetchMetrics      []models.MetricType `json:"fetch_metrics"`
	TotalDays         int                 `json:"total_days"`
	EstimatedRequests int                 `json:"estimated_requests"`
	EstimatedHours    float64             `json:"estimated_hours"`
}

// UpToDate reports whether there is nothing to fetch.
func (p UpdatePlan) UpToDate() bool {
	return p.TotalDays == 0
}

// Task is one (metric, day) fetch.
type Task struct {
	Metric models.MetricType `json:"metric"`
	Day    models.Day        `json:"day"`
}

// Tasks expands the plan in execution order: the recent range day by day for
// every fetch metric, then each priority gap for its own metric.
func (p UpdatePlan) Tasks() []Task {
	var out []Task
	seen := make(map[Task]bool)
	add := func(t Task) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if p.RecentRange != nil {
		for d := p.RecentRange.Start; d <= p.RecentRange.End; d = d.AddDays(1) {
			for _, m := range p.FetchMetrics {
				add(Task{Metric: m, Day: d})
			}
		}
	}
	for _, g := range p.PriorityGaps {
		for d := g.First; d <= g.Last; d = d.AddDays(1) {
			add(Task{Metric: g.Metric, Day: d})
		}
	}
	return out
}

// Plan computes the update plan. It has no side effects.
func Plan(reports map[models.MetricType]coverage.Report, today models.Day, opts Options) UpdatePlan {
	opts = opts.withDefaults()
	plan := UpdatePlan{
		Today:        today,
		PriorityGaps: []coverage.Gap{},
		FetchMetrics: opts.FetchMetrics,
	}

	if !opts.FillGaps {
		plan.RecentRange = recentRange(reports, today, opts.UpdateRecentDays)
	}
	if !opts.RecentOnly {
		plan.PriorityGaps = priorityGaps(reports, opts.PriorityMetrics, opts.MaxGapDays)
	}

	if plan.RecentRange != nil {
		days := plan.RecentRange.Days()
		plan.TotalDays += days
		plan.EstimatedRequests += days * len(plan.FetchMetrics)
	}
	for _, g := range plan.PriorityGaps {
		plan.TotalDays += g.Length
		plan.EstimatedRequests += g.Length
	}
	plan.EstimatedHours = float64(plan.EstimatedRequests) / float64(opts.RequestsPerHour)
	return plan
}

func recentRange(reports map[models.MetricType]coverage.Report, today models.Day, recentDays int) *Range {
	var (
		latest models.Day
		found  bool
	)
	for _, r := range reports {
		if d, ok := r.MaxDay(); ok && (!found || d > latest) {
			latest, found = d, true
		}
	}
	if !found {
		return &Range{Start: today.AddDays(-recentDays + 1), End: today}
	}
	if today > latest {
		return &Range{Start: latest.AddDays(1), End: today}
	}
	return nil
}

func priorityGaps(reports map[models.MetricType]coverage.Report, priority []models.MetricType, maxGapDays int) []coverage.Gap {
	out := []coverage.Gap{}
	for _, m := range priority {
		for _, g := range reports[m].Gaps {
			if g.Length <= maxGapDays {
				out = append(out, g)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Length < out[j].Length })
	return out
}
