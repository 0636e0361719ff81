// ABOUTME: HTTP handlers for metrics, coverage, update plans, summaries, and series.
// ABOUTME: Every handler is read-only; view state comes from query parameters.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/logging"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/harperreed/fitlog/internal/view"
)

// Handler serves the JSON API.
type Handler struct {
	store  storage.Store
	plan   planner.Options
	logger *log.Logger
	today  func() models.Day
}

// NewHandler creates a handler over the store. Plan options are used by GET /api/plan.
func NewHandler(store storage.Store, plan planner.Options, logger *log.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{store: store, plan: plan, logger: logger, today: models.Today}
}

// ListMetrics returns every stored metric with its day count and span.
func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	reports, err := h.storedCoverage()
	if err != nil {
		h.internalError(w, "failed to read metrics", err)
		return
	}
	out := make([]MetricDTO, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toMetricDTO(rep))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCoverage returns per-metric coverage and the overall span.
func (h *Handler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	reports, err := h.storedCoverage()
	if err != nil {
		h.internalError(w, "failed to analyze coverage", err)
		return
	}
	resp := CoverageResponse{Metrics: make([]CoverageDTO, 0, len(reports))}
	byMetric := make(map[models.MetricType]coverage.Report, len(reports))
	for _, rep := range reports {
		resp.Metrics = append(resp.Metrics, toCoverageDTO(rep))
		byMetric[rep.Metric] = rep
	}
	resp.Span = coverage.OverallSpan(byMetric)
	writeJSON(w, http.StatusOK, resp)
}

// GetPlan returns the update plan that `fitlog update` would run today.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	out, err := planner.Run(r.Context(), coverage.NewAnalyzer(h.store), nil, planner.RunOptions{
		Options: h.plan,
		Today:   h.today(),
		DryRun:  true,
	})
	if err != nil {
		h.internalError(w, "failed to plan update", err)
		return
	}
	tasks := out.Plan.Tasks()
	if tasks == nil {
		tasks = []planner.Task{}
	}
	writeJSON(w, http.StatusOK, PlanResponse{Phase: out.Phase, Plan: out.Plan, Tasks: tasks})
}

// GetSummary returns the health summary for ?start=&end=, defaulting to the last week of data.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	state, err := h.viewState(r, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid view", err)
		return
	}
	summary, err := view.Summarize(h.store, state.Start, state.End)
	if err != nil {
		h.internalError(w, "failed to summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetSeries returns one metric aggregated by ?bucket= over ?start=&end=.
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	metric, ok := metricParam(w, r)
	if !ok {
		return
	}
	state, err := h.viewState(r, []models.MetricType{metric})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid view", err)
		return
	}
	series, err := view.BuildSeries(h.store, metric, state)
	if err != nil {
		h.internalError(w, "failed to build series", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// GetDay returns the stored table for one metric and day.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	metric, ok := metricParam(w, r)
	if !ok {
		return
	}
	day, err := models.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day", err)
		return
	}
	table, err := h.store.Read(metric, day)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no data for day", err)
		return
	}
	if err != nil {
		h.internalError(w, "failed to read day", err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// storedCoverage analyzes every metric present in the store, sorted by metric.
func (h *Handler) storedCoverage() ([]coverage.Report, error) {
	metrics, err := h.store.Metrics()
	if err != nil {
		return nil, err
	}
	reports, err := coverage.NewAnalyzer(h.store).AnalyzeAll(metrics)
	if err != nil {
		return nil, err
	}
	out := make([]coverage.Report, 0, len(reports))
	for _, rep := range reports {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out, nil
}

func (h *Handler) viewState(r *http.Request, metrics []models.MetricType) (view.ViewState, error) {
	q := r.URL.Query()
	return view.StateFrom(h.store, metrics, h.today(), q.Get("start"), q.Get("end"), q.Get("bucket"))
}

func metricParam(w http.ResponseWriter, r *http.Request) (models.MetricType, bool) {
	name := chi.URLParam(r, "metric")
	if !models.IsValidMetricType(name) {
		writeError(w, http.StatusBadRequest, "unknown metric", &models.UnknownMetricError{Name: name})
		return "", false
	}
	return models.MetricType(name), true
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, "err", err)
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
