// ABOUTME: Applies merge decisions to the store and runs merge passes over staged pages.
// ABOUTME: Every batch finishes with per-metric added/skipped/composed/failed counts.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/fitlog/internal/logging"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/normalize"
	"github.com/harperreed/fitlog/internal/storage"
)

// Outcome is what happened to one partition during a merge.
type Outcome string

const (
	OutcomeAdded    Outcome = "added"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeComposed Outcome = "composed"
	OutcomeFailed   Outcome = "failed"
)

// Counts aggregates outcomes for one metric.
type Counts struct {
	Added    int `json:"added"`
	Skipped  int `json:"skipped"`
	Composed int `json:"composed"`
	Failed   int `json:"failed"`
}

func (c *Counts) add(o Outcome) {
	switch o {
	case OutcomeAdded:
		c.Added++
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeComposed:
		c.Composed++
	case OutcomeFailed:
		c.Failed++
	}
}

// Summary reports a merge pass.
type Summary struct {
	RunID     string                        `json:"run_id"`
	DryRun    bool                          `json:"dry_run"`
	Pages     int                           `json:"pages"`
	Malformed int                           `json:"malformed"`
	Metrics   map[models.MetricType]*Counts `json:"metrics"`
}

// NewSummary creates an empty summary with a fresh run ID.
func NewSummary(dryRun bool) *Summary {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Summary{
		RunID:   id.String(),
		DryRun:  dryRun,
		Metrics: make(map[models.MetricType]*Counts),
	}
}

// Record counts one outcome for a metric.
func (s *Summary) Record(metric models.MetricType, o Outcome) {
	c, ok := s.Metrics[metric]
	if !ok {
		c = &Counts{}
		s.Metrics[metric] = c
	}
	c.add(o)
}

// Totals sums the counts of every metric.
func (s *Summary) Totals() Counts {
	var t Counts
	for _, c := range s.Metrics {
		t.Added += c.Added
		t.Skipped += c.Skipped
		t.Composed += c.Composed
		t.Failed += c.Failed
	}
	return t
}

// SortedMetrics returns the metrics present in the summary.
func (s *Summary) SortedMetrics() []models.MetricType {
	out := make([]models.MetricType, 0, len(s.Metrics))
	for m := range s.Metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merger writes fetched tables into the store according to a Resolver.
type Merger struct {
	store      storage.Store
	resolver   *Resolver
	stagingDir string
	logger     *log.Logger
}

// NewMerger creates a merger over the store.
func NewMerger(store storage.Store, resolver *Resolver, stagingDir string, logger *log.Logger) *Merger {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Merger{store: store, resolver: resolver, stagingDir: stagingDir, logger: logger}
}

// Apply resolves one fetched table against the stored partition and writes
// the winner. Nothing is written in dry-run mode.
func (m *Merger) Apply(metric models.MetricType, day models.Day, fetched *models.DayTable, dryRun bool) (Outcome, error) {
	if fetched.Empty() {
		m.logger.Debug("empty fetched table", "metric", metric, "day", day)
		return OutcomeSkipped, nil
	}

	archive, err := m.store.Read(metric, day)
	if errors.Is(err, storage.ErrNotFound) {
		archive = nil
	} else if err != nil {
		m.logger.Error("read stored partition", "metric", metric, "day", day, "err", err)
		return OutcomeFailed, fmt.Errorf("read %s/%s: %w", metric, day, err)
	}

	decision := m.resolver.Resolve(metric, day, archive, fetched)
	var (
		winner  *models.DayTable
		outcome Outcome
	)
	switch decision {
	case KeepArchive:
		m.logger.Debug("has archive data, keeping original", "metric", metric, "day", day)
		return OutcomeSkipped, nil
	case Compose:
		winner, outcome = normalize.Merge(archive, fetched), OutcomeComposed
	default:
		winner, outcome = fetched, OutcomeAdded
	}

	if dryRun {
		m.logger.Info("would write", "metric", metric, "day", day, "decision", decision)
		return outcome, nil
	}
	if err := m.store.Write(metric, day, winner); err != nil {
		m.logger.Error("write partition", "metric", metric, "day", day, "err", err)
		return OutcomeFailed, fmt.Errorf("write %s/%s: %w", metric, day, err)
	}
	m.logger.Debug("merged", "metric", metric, "day", day, "decision", decision)
	return outcome, nil
}

// MergePage normalizes one fetched API page and applies every resulting table.
func (m *Merger) MergePage(summary *Summary, metric models.MetricType, day models.Day, data []byte) error {
	summary.Pages++
	res, err := normalize.Normalize(normalize.Unit{
		Kind:   normalize.KindAPIPage,
		Metric: metric,
		Name:   fmt.Sprintf("%s/%s", metric, day),
		Data:   data,
		Day:    day,
		HasDay: true,
	})
	if err != nil {
		summary.Record(metric, OutcomeFailed)
		return err
	}
	summary.Malformed += res.Malformed

	if len(res.Tables) == 0 {
		summary.Record(metric, OutcomeSkipped)
		return nil
	}
	var errs []error
	for _, d := range res.Days() {
		outcome, err := m.Apply(metric, d, res.Tables[d], summary.DryRun)
		summary.Record(metric, outcome)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MergeStaging runs a merge pass over every page in the staging folder.
// Per-page failures are counted and logged; the pass always completes unless
// the context is cancelled.
func (m *Merger) MergeStaging(ctx context.Context, dryRun bool) (*Summary, error) {
	summary := NewSummary(dryRun)
	pages, err := m.stagedPages()
	if err != nil {
		return summary, err
	}
	m.logger.Info("merge pass", "run_id", summary.RunID, "staging", m.stagingDir, "pages", len(pages), "dry_run", dryRun)

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		data, err := os.ReadFile(p.path)
		if err != nil {
			m.logger.Warn("read staged page", "path", p.path, "err", err)
			summary.Record(p.metric, OutcomeFailed)
			continue
		}
		if err := m.MergePage(summary, p.metric, p.day, data); err != nil {
			m.logger.Warn("merge staged page", "path", p.path, "err", err)
		}
	}
	return summary, nil
}

type stagedPage struct {
	path   string
	metric models.MetricType
	day    models.Day
}

// stagedPages lists staged pages ordered by metric then day. A missing
// staging folder yields no pages.
func (m *Merger) stagedPages() ([]stagedPage, error) {
	if m.stagingDir == "" {
		return nil, nil
	}
	var pages []stagedPage
	err := filepath.WalkDir(m.stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == m.stagingDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		metric, day, ok := storage.ParseStagingPath(m.stagingDir, path)
		if !ok {
			return nil
		}
		pages = append(pages, stagedPage{path: path, metric: metric, day: day})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan staging folder: %w", err)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].metric != pages[j].metric {
			return pages[i].metric < pages[j].metric
		}
		return pages[i].day < pages[j].day
	})
	return pages, nil
}
