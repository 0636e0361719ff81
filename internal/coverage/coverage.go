// ABOUTME: Coverage analyzer computing covered days, span, and gaps per metric.
// ABOUTME: Gaps are maximal runs of missing days strictly inside the covered span.
package coverage

import (
	"fmt"
	"sort"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
)

// Gap is a run of consecutive missing days.
type Gap struct {
	Metric models.MetricType `json:"data_type" yaml:"data_type"`
	First  models.Day        `json:"gap_start" yaml:"gap_start"`
	Last   models.Day        `json:"gap_end" yaml:"gap_end"`
	Length int               `json:"days_missing" yaml:"days_missing"`
}

// Span is the first and last covered day, inclusive.
type Span struct {
	First models.Day `json:"first" yaml:"first"`
	Last  models.Day `json:"last" yaml:"last"`
}

// Days returns the number of calendar days in the span.
func (s Span) Days() int {
	return s.Last.Sub(s.First) + 1
}

// Report describes the coverage of one metric.
type Report struct {
	Metric  models.MetricType `json:"metric" yaml:"metric"`
	Covered []models.Day      `json:"covered_days" yaml:"-"`
	Span    *Span             `json:"span,omitempty" yaml:"span,omitempty"`
	Gaps    []Gap             `json:"gaps" yaml:"gaps"`
}

// Days returns the number of covered days.
func (r Report) Days() int {
	return len(r.Covered)
}

// MaxDay returns the last covered day, if any.
func (r Report) MaxDay() (models.Day, bool) {
	if r.Span == nil {
		return 0, false
	}
	return r.Span.Last, true
}

// MissingDays returns the total number of days inside gaps.
func (r Report) MissingDays() int {
	n := 0
	for _, g := range r.Gaps {
		n += g.Length
	}
	return n
}

// Compute builds a report from a set of covered days in any order.
func Compute(metric models.MetricType, days []models.Day) Report {
	sorted := make([]models.Day, 0, len(days))
	seen := make(map[models.Day]bool, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r := Report{Metric: metric, Covered: sorted, Gaps: []Gap{}}
	if len(sorted) == 0 {
		return r
	}
	r.Span = &Span{First: sorted[0], Last: sorted[len(sorted)-1]}

	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		if diff := next.Sub(cur); diff > 1 {
			r.Gaps = append(r.Gaps, Gap{
				Metric: metric,
				First:  cur.AddDays(1),
				Last:   next.AddDays(-1),
				Length: diff - 1,
			})
		}
	}
	return r
}

// Analyzer reads covered days from a store.
type Analyzer struct {
	store storage.Store
}

// NewAnalyzer creates an analyzer over the store.
func NewAnalyzer(s storage.Store) *Analyzer {
	return &Analyzer{store: s}
}

// Analyze returns the coverage report for one metric.
func (a *Analyzer) Analyze(metric models.MetricType) (Report, error) {
	days, err := a.store.ListDays(metric)
	if err != nil {
		return Report{}, fmt.Errorf("list days for %s: %w", metric, err)
	}
	return Compute(metric, days), nil
}

// AnalyzeAll returns a report for every given metric.
func (a *Analyzer) AnalyzeAll(metrics []models.MetricType) (map[models.MetricType]Report, error) {
	out := make(map[models.MetricType]Report, len(metrics))
	for _, m := range metrics {
		r, err := a.Analyze(m)
		if err != nil {
			return nil, err
		}
		out[m] = r
	}
	return out, nil
}

// OverallSpan returns the span covering every report with data.
func OverallSpan(reports map[models.MetricType]Report) *Span {
	var out *Span
	for _, r := range reports {
		if r.Span == nil {
			continue
		}
		if out == nil {
			s := *r.Span
			out = &s
			continue
		}
		if r.Span.First < out.First {
			out.First = r.Span.First
		}
		if r.Span.Last > out.Last {
			out.Last = r.Span.Last
		}
	}
	return out
}

// AllGaps flattens the gaps of the reports, ordered by metric then start day.
func AllGaps(reports map[models.MetricType]Report) []Gap {
	metrics := make([]models.MetricType, 0, len(reports))
	for m := range reports {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	var out []Gap
	for _, m := range metrics {
		out = append(out, reports[m].Gaps...)
	}
	return out
}
