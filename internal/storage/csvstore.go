// ABOUTME: File-based Store writing one CSV per metric, day, and variant.
// ABOUTME: Layout is <root>/<metric>/<YYYY-MM-DD>[_<variant>].csv with atomic replacement.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

// CSVStore keeps partitions as CSV files under a root directory.
type CSVStore struct {
	root string
}

// Compile-time check that CSVStore implements Store.
var _ Store = (*CSVStore)(nil)

// NewCSVStore creates a CSV-backed store rooted at dir.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &CSVStore{root: dir}, nil
}

// Root returns the store's root directory.
func (s *CSVStore) Root() string {
	return s.root
}

// Close releases resources. For CSVStore this is a no-op.
func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) metricDir(metric models.MetricType) string {
	return filepath.Join(s.root, string(metric))
}

// partitionFile returns the file name for a day and variant.
func partitionFile(day models.Day, variant string) string {
	if variant == "" {
		return day.String() + ".csv"
	}
	return day.String() + "_" + variant + ".csv"
}

// splitPartitionFile parses a partition file name into day and variant.
func splitPartitionFile(name string) (models.Day, string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".csv") {
		return 0, "", false
	}
	stem := strings.TrimSuffix(name, ".csv")
	date, variant, _ := strings.Cut(stem, "_")
	day, err := models.ParseDay(date)
	if err != nil {
		return 0, "", false
	}
	return day, variant, true
}

// Write replaces every file of the partition. New files are written to a
// temporary name and renamed into place, then stale variant files are removed.
func (s *CSVStore) Write(metric models.MetricType, day models.Day, table *models.DayTable) error {
	t := prepare(metric, day, table)
	dir := s.metricDir(metric)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return ioErr("write", metric, day, err)
	}

	byVariant := make(map[string][]models.Record)
	for _, r := range t.Rows {
		if strings.ContainsAny(r.Variant, `/\`) {
			return ioErr("write", metric, day, fmt.Errorf("invalid variant %q", r.Variant))
		}
		byVariant[r.Variant] = append(byVariant[r.Variant], r)
	}

	keep := make(map[string]bool)
	for variant, rows := range byVariant {
		data, err := encodeRows(metric, rows)
		if err != nil {
			return ioErr("encode", metric, day, err)
		}
		name := partitionFile(day, variant)
		if err := writeFileAtomic(filepath.Join(dir, name), data); err != nil {
			return ioErr("write", metric, day, err)
		}
		keep[name] = true
	}

	existing, err := s.partitionFiles(metric, day)
	if err != nil {
		return ioErr("write", metric, day, err)
	}
	for _, name := range existing {
		if keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return ioErr("remove stale", metric, day, err)
		}
	}
	return nil
}

// Read merges every variant file of the partition into one table.
func (s *CSVStore) Read(metric models.MetricType, day models.Day) (*models.DayTable, error) {
	names, err := s.partitionFiles(metric, day)
	if err != nil {
		return nil, ioErr("read", metric, day, err)
	}
	if len(names) == 0 {
		return nil, ErrNotFound
	}

	t := models.NewDayTable(metric, day)
	for _, name := range names {
		_, variant, _ := splitPartitionFile(name)
		data, err := os.ReadFile(filepath.Join(s.metricDir(metric), name))
		if err != nil {
			return nil, ioErr("read", metric, day, err)
		}
		rows, err := decodeRows(metric, data, variant)
		if err != nil {
			return nil, ioErr("decode "+name, metric, day, err)
		}
		t.Rows = append(t.Rows, rows...)
	}
	if t.Empty() {
		return nil, ErrNotFound
	}
	t.Sort()
	return t, nil
}

// ReadRange returns existing partitions between start and end inclusive.
func (s *CSVStore) ReadRange(metric models.MetricType, start, end models.Day) ([]*models.DayTable, error) {
	return readRange(s, metric, start, end)
}

// ListDays returns the days with at least one partition file holding rows.
// Header-only files do not count.
func (s *CSVStore) ListDays(metric models.MetricType) ([]models.Day, error) {
	entries, err := os.ReadDir(s.metricDir(metric))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorageIO, metric, err)
	}

	seen := make(map[models.Day]bool)
	var days []models.Day
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		day, _, ok := splitPartitionFile(e.Name())
		if !ok || seen[day] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.metricDir(metric), e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", ErrStorageIO, metric, err)
		}
		if !hasRecords(data) {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return sortDays(days), nil
}

// Metrics returns the metric directories present under the root.
func (s *CSVStore) Metrics() ([]models.MetricType, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list metrics: %v", ErrStorageIO, err)
	}
	var out []models.MetricType
	for _, e := range entries {
		if e.IsDir() && models.IsValidMetricType(e.Name()) {
			out = append(out, models.MetricType(e.Name()))
		}
	}
	return sortMetrics(out), nil
}

// partitionFiles lists the file names belonging to one partition, sorted.
func (s *CSVStore) partitionFiles(metric models.MetricType, day models.Day) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.metricDir(metric), day.String()+"*.csv"))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range matches {
		name := filepath.Base(m)
		if d, _, ok := splitPartitionFile(name); ok && d == day {
			names = append(names, name)
		}
	}
	return names, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
