// ABOUTME: MCP tool implementations for the fitness data store.
// ABOUTME: All tools are read-only; none of them fetch from the remote API.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/harperreed/fitlog/internal/view"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_coverage",
		Description: "Show which days are stored per metric, the covered span, and the gaps inside it",
	}, s.handleGetCoverage)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_update_plan",
		Description: "Preview the smart update plan: recent days and priority gaps to fetch, with request and time estimates",
	}, s.handleGetUpdatePlan)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "read_day",
		Description: "Read every stored row of one metric for one day",
	}, s.handleReadDay)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_series",
		Description: "Aggregate one metric by day, week, or month over a date range",
	}, s.handleGetSeries)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_summary",
		Description: "Summarize heart rate, sleep, steps, and calories over a date range (default: last 7 days of data)",
	}, s.handleGetSummary)
}

// Tool input types

type getCoverageInput struct {
	MetricTypes []string `json:"metric_types,omitempty" jsonschema:"Metric types to analyze; defaults to every stored metric"`
}

type getUpdatePlanInput struct {
	RecentOnly bool `json:"recent_only,omitempty" jsonschema:"Plan only the days since the latest stored day"`
	FillGaps   bool `json:"fill_gaps,omitempty" jsonschema:"Plan only the priority gaps"`
}

type readDayInput struct {
	MetricType string `json:"metric_type" jsonschema:"Metric type, e.g. heart_rate, sleep, steps"`
	Day        string `json:"day" jsonschema:"Day as YYYY-MM-DD"`
}

type getSeriesInput struct {
	MetricType string `json:"metric_type" jsonschema:"Metric type, e.g. heart_rate, sleep, steps"`
	Start      string `json:"start,omitempty" jsonschema:"First day as YYYY-MM-DD"`
	End        string `json:"end,omitempty" jsonschema:"Last day as YYYY-MM-DD"`
	Bucket     string `json:"bucket,omitempty" jsonschema:"daily, weekly, or monthly (default daily)"`
}

type getSummaryInput struct {
	Start string `json:"start,omitempty" jsonschema:"First day as YYYY-MM-DD"`
	End   string `json:"end,omitempty" jsonschema:"Last day as YYYY-MM-DD"`
}

type coverageOutput struct {
	Metric      models.MetricType `json:"metric"`
	Days        int               `json:"days"`
	MissingDays int               `json:"missing_days"`
	Span        *coverage.Span    `json:"span,omitempty"`
	Gaps        []coverage.Gap    `json:"gaps"`
}

func (s *Server) handleGetCoverage(ctx context.Context, req *mcp.CallToolRequest, input getCoverageInput) (*mcp.CallToolResult, any, error) {
	reports, err := s.coverage(input.MetricTypes)
	if err != nil {
		return nil, nil, err
	}

	out := make([]coverageOutput, 0, len(reports))
	for _, r := range reports {
		out = append(out, coverageOutput{
			Metric:      r.Metric,
			Days:        r.Days(),
			MissingDays: r.MissingDays(),
			Span:        r.Span,
			Gaps:        r.Gaps,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })

	if len(out) == 0 {
		return nil, map[string]interface{}{"message": "No data stored yet."}, nil
	}
	return nil, map[string]interface{}{
		"span":    coverage.OverallSpan(reports),
		"metrics": out,
	}, nil
}

func (s *Server) handleGetUpdatePlan(ctx context.Context, req *mcp.CallToolRequest, input getUpdatePlanInput) (*mcp.CallToolResult, any, error) {
	if input.RecentOnly && input.FillGaps {
		return nil, nil, errors.New("recent_only and fill_gaps are mutually exclusive")
	}
	opts := s.plan
	opts.RecentOnly = input.RecentOnly
	opts.FillGaps = input.FillGaps

	out, err := planner.Run(ctx, coverage.NewAnalyzer(s.store), nil, planner.RunOptions{
		Options: opts,
		Today:   s.today(),
		DryRun:  true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to plan update: %w", err)
	}

	return nil, map[string]interface{}{
		"phase": out.Phase,
		"plan":  out.Plan,
		"tasks": len(out.Plan.Tasks()),
	}, nil
}

func (s *Server) handleReadDay(ctx context.Context, req *mcp.CallToolRequest, input readDayInput) (*mcp.CallToolResult, any, error) {
	metric, err := parseMetric(input.MetricType)
	if err != nil {
		return nil, nil, err
	}
	day, err := models.ParseDay(input.Day)
	if err != nil {
		return nil, nil, err
	}

	table, err := s.store.Read(metric, day)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, map[string]interface{}{"message": fmt.Sprintf("No %s data for %s.", metric, day)}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read day: %w", err)
	}
	return nil, table, nil
}

func (s *Server) handleGetSeries(ctx context.Context, req *mcp.CallToolRequest, input getSeriesInput) (*mcp.CallToolResult, any, error) {
	metric, err := parseMetric(input.MetricType)
	if err != nil {
		return nil, nil, err
	}
	state, err := view.StateFrom(s.store, []models.MetricType{metric}, s.today(), input.Start, input.End, input.Bucket)
	if err != nil {
		return nil, nil, err
	}
	series, err := view.BuildSeries(s.store, metric, state)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build series: %w", err)
	}
	return nil, series, nil
}

func (s *Server) handleGetSummary(ctx context.Context, req *mcp.CallToolRequest, input getSummaryInput) (*mcp.CallToolResult, any, error) {
	summary, err := s.summary(input.Start, input.End)
	if err != nil {
		return nil, nil, err
	}
	return nil, summary, nil
}

// coverage analyzes the named metrics, or every stored metric when none are named.
func (s *Server) coverage(names []string) (map[models.MetricType]coverage.Report, error) {
	var (
		metrics []models.MetricType
		err     error
	)
	if len(names) > 0 {
		metrics, err = models.ParseMetricTypes(names)
	} else {
		metrics, err = s.store.Metrics()
	}
	if err != nil {
		return nil, err
	}
	reports, err := coverage.NewAnalyzer(s.store).AnalyzeAll(metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze coverage: %w", err)
	}
	return reports, nil
}

func (s *Server) summary(start, end string) (*view.Summary, error) {
	state, err := view.StateFrom(s.store, nil, s.today(), start, end, "")
	if err != nil {
		return nil, err
	}
	summary, err := view.Summarize(s.store, state.Start, state.End)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}
	return summary, nil
}

func parseMetric(name string) (models.MetricType, error) {
	if !models.IsValidMetricType(name) {
		return "", &models.UnknownMetricError{Name: name}
	}
	return models.MetricType(name), nil
}
