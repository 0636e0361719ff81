// ABOUTME: Bulk archive ingestion over extracted folders and zip files.
// ABOUTME: Classifies each file, normalizes it, and writes day tables to the store.
package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
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

// Summary reports one ingestion run.
type Summary struct {
	RunID          string                    `json:"run_id"`
	FilesProcessed int                       `json:"files_processed"`
	FilesSkipped   int                       `json:"files_skipped"`
	FilesFailed    int                       `json:"files_failed"`
	Rows           int                       `json:"rows"`
	Malformed      int                       `json:"malformed"`
	TablesWritten  int                       `json:"tables_written"`
	WriteFailures  int                       `json:"write_failures"`
	Days           map[models.MetricType]int `json:"days"`
}

type partition struct {
	metric models.MetricType
	day    models.Day
}

// Processor ingests archives into a store.
type Processor struct {
	store  storage.Store
	logger *log.Logger
}

// NewProcessor creates a processor writing to store.
func NewProcessor(store storage.Store, logger *log.Logger) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Processor{store: store, logger: logger}
}

// run holds the state of one Run call.
type run struct {
	*Processor
	summary *Summary
	written map[partition]bool
}

// Run ingests root, which is either a folder or a single zip file. Within a
// run the first table written for a partition replaces what is stored; later
// tables for the same partition are merged into it.
func (p *Processor) Run(ctx context.Context, root string) (*Summary, error) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	r := &run{
		Processor: p,
		summary:   &Summary{RunID: id.String(), Days: make(map[models.MetricType]int)},
		written:   make(map[partition]bool),
	}

	info, err := os.Stat(root)
	if err != nil {
		return r.summary, fmt.Errorf("open archive root: %w", err)
	}
	p.logger.Info("ingesting", "run_id", r.summary.RunID, "root", root)

	if !info.IsDir() {
		if err := r.processZip(ctx, root); err != nil {
			return r.summary, err
		}
		return r.finish(), nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			return r.processZip(ctx, path)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("read file", "path", path, "err", err)
			r.summary.FilesFailed++
			return nil
		}
		r.processFile(filepath.ToSlash(rel), data)
		return nil
	})
	if err != nil {
		return r.finish(), fmt.Errorf("walk archive: %w", err)
	}
	return r.finish(), nil
}

func (r *run) finish() *Summary {
	for k := range r.written {
		r.summary.Days[k.metric]++
	}
	r.logger.Info("ingest finished", "run_id", r.summary.RunID,
		"files", r.summary.FilesProcessed, "skipped", r.summary.FilesSkipped,
		"tables", r.summary.TablesWritten, "malformed", r.summary.Malformed,
		"write_failures", r.summary.WriteFailures)
	return r.summary
}

func (r *run) processZip(ctx context.Context, path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		r.logger.Warn("open zip", "path", path, "err", err)
		r.summary.FilesFailed++
		return nil
	}
	defer func() { _ = zr.Close() }()

	r.logger.Debug("processing zip", "path", path, "entries", len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if _, ok := normalize.Classify(f.Name); !ok {
			r.summary.FilesSkipped++
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			r.logger.Warn("read zip entry", "zip", path, "entry", f.Name, "err", err)
			r.summary.FilesFailed++
			continue
		}
		r.processFile(f.Name, data)
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (r *run) processFile(name string, data []byte) {
	src, ok := normalize.Classify(name)
	if !ok {
		r.summary.FilesSkipped++
		return
	}

	res, err := normalize.Normalize(src.Unit(name, data))
	if err != nil {
		r.summary.FilesFailed++
		if errors.Is(err, normalize.ErrMalformedRecord) {
			r.summary.Malformed++
		}
		r.logger.Warn("normalize", "file", name, "err", err)
		return
	}
	r.summary.FilesProcessed++
	r.summary.Rows += res.Rows
	r.summary.Malformed += res.Malformed

	for _, day := range res.Days() {
		r.write(src.Metric, day, res.Tables[day])
	}
}

func (r *run) write(metric models.MetricType, day models.Day, table *models.DayTable) {
	key := partition{metric, day}
	out := table
	if r.written[key] {
		existing, err := r.store.Read(metric, day)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.summary.WriteFailures++
			r.logger.Error("read partition", "metric", metric, "day", day, "err", err)
			return
		}
		out = normalize.Merge(existing, table)
	}
	if err := r.store.Write(metric, day, out); err != nil {
		r.summary.WriteFailures++
		r.logger.Error("write partition", "metric", metric, "day", day, "err", err)
		return
	}
	r.written[key] = true
	r.summary.TablesWritten++
}

// SortedDays returns the per-metric day counts ordered by metric.
func (s *Summary) SortedDays() []models.MetricType {
	out := make([]models.MetricType, 0, len(s.Days))
	for m := range s.Days {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
