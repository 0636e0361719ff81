// ABOUTME: Response bodies for the JSON API.
// ABOUTME: Coverage is flattened so clients do not receive every covered day.
package api

import (
	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MetricDTO describes one stored metric.
type MetricDTO struct {
	Metric models.MetricType `json:"metric"`
	Unit   string            `json:"unit"`
	Days   int               `json:"days"`
	First  *models.Day       `json:"first,omitempty"`
	Last   *models.Day       `json:"last,omitempty"`
}

// CoverageDTO is the coverage of one metric without its day list.
type CoverageDTO struct {
	Metric      models.MetricType `json:"metric"`
	Days        int               `json:"days"`
	MissingDays int               `json:"missing_days"`
	Span        *coverage.Span    `json:"span,omitempty"`
	Gaps        []coverage.Gap    `json:"gaps"`
}

// CoverageResponse is the body of GET /api/coverage.
type CoverageResponse struct {
	Span    *coverage.Span `json:"span,omitempty"`
	Metrics []CoverageDTO  `json:"metrics"`
}

// PlanResponse is the body of GET /api/plan.
type PlanResponse struct {
	Phase planner.Phase      `json:"phase"`
	Plan  planner.UpdatePlan `json:"plan"`
	Tasks []planner.Task     `json:"tasks"`
}

func toMetricDTO(r coverage.Report) MetricDTO {
	dto := MetricDTO{Metric: r.Metric, Unit: r.Metric.Unit(), Days: r.Days()}
	if r.Span != nil {
		first, last := r.Span.First, r.Span.Last
		dto.First, dto.Last = &first, &last
	}
	return dto
}

func toCoverageDTO(r coverage.Report) CoverageDTO {
	return CoverageDTO{
		Metric:      r.Metric,
		Days:        r.Days(),
		MissingDays: r.MissingDays(),
		Span:        r.Span,
		Gaps:        r.Gaps,
	}
}
