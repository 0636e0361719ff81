// ABOUTME: Store interface for day-partitioned metric tables.
// ABOUTME: Defines the partition contract shared by the CSV, SQLite, and KV backends.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/harperreed/fitlog/internal/models"
)

var (
	// ErrNotFound is returned by Read when a partition does not exist.
	ErrNotFound = errors.New("partition not found")

	// ErrStorageIO wraps every failure to read or write a partition.
	ErrStorageIO = errors.New("storage i/o")
)

// Store keeps one table per (metric, day) partition.
// Writes replace a whole partition; readers never see a half-written one.
type Store interface {
	// Write replaces the partition with the given table. An empty table
	// removes the partition.
	Write(metric models.MetricType, day models.Day, table *models.DayTable) error

	// Read returns the partition or ErrNotFound.
	Read(metric models.MetricType, day models.Day) (*models.DayTable, error)

	// ReadRange returns the existing partitions between start and end
	// inclusive, ordered by day. Missing days are skipped. Unreadable
	// partitions are reported as *PartitionErrors alongside the rest.
	ReadRange(metric models.MetricType, start, end models.Day) ([]*models.DayTable, error)

	// ListDays returns the days with a non-empty partition, sorted ascending.
	ListDays(metric models.MetricType) ([]models.Day, error)

	// Metrics returns the metric types that have at least one partition.
	Metrics() ([]models.MetricType, error)

	Close() error
}

// DataDir returns the default data directory under XDG_DATA_HOME.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "fitlog")
}

func ioErr(op string, metric models.MetricType, day models.Day, err error) error {
	return fmt.Errorf("%w: %s %s/%s: %v", ErrStorageIO, op, metric, day, err)
}

// prepare stamps the partition key on a copy of the table and sorts it.
func prepare(metric models.MetricType, day models.Day, table *models.DayTable) *models.DayTable {
	t := table.Clone()
	if t == nil {
		t = models.NewDayTable(metric, day)
	}
	t.Metric, t.Day = metric, day
	t.Sort()
	return t
}

// PartitionErrors lists the partitions a range read could not decode.
// The readable partitions are returned with it.
type PartitionErrors struct {
	Metric models.MetricType
	Days   []models.Day
	Errs   []error
}

func (e *PartitionErrors) Error() string {
	return fmt.Sprintf("%d unreadable %s partitions: %v", len(e.Days), e.Metric, errors.Join(e.Errs...))
}

func (e *PartitionErrors) Unwrap() []error { return e.Errs }

// SkippedDays returns the unreadable days carried by err, if any.
func SkippedDays(err error) ([]models.Day, bool) {
	var pe *PartitionErrors
	if errors.As(err, &pe) {
		return pe.Days, true
	}
	return nil, false
}

// readRange implements ReadRange on top of ListDays and Read.
func readRange(s Store, metric models.MetricType, start, end models.Day) ([]*models.DayTable, error) {
	days, err := s.ListDays(metric)
	if err != nil {
		return nil, err
	}

	var (
		out    []*models.DayTable
		failed *PartitionErrors
	)
	for _, d := range days {
		if d < start || d > end {
			continue
		}
		t, err := s.Read(metric, d)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			if failed == nil {
				failed = &PartitionErrors{Metric: metric}
			}
			failed.Days = append(failed.Days, d)
			failed.Errs = append(failed.Errs, err)
			continue
		}
		out = append(out, t)
	}
	if failed != nil {
		return out, failed
	}
	return out, nil
}

// ReadRangeTolerant reads a range and keeps going past unreadable partitions,
// returning the days it had to skip. Other errors are returned as is.
func ReadRangeTolerant(s Store, metric models.MetricType, start, end models.Day) ([]*models.DayTable, []models.Day, error) {
	tables, err := s.ReadRange(metric, start, end)
	if err == nil {
		return tables, nil, nil
	}
	if skipped, ok := SkippedDays(err); ok {
		return tables, skipped, nil
	}
	return nil, nil, err
}

func sortDays(days []models.Day) []models.Day {
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

func sortMetrics(ms []models.MetricType) []models.MetricType {
	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })
	return ms
}

// LatestDay returns the most recent day across the given metrics.
func LatestDay(s Store, metrics []models.MetricType) (models.Day, bool, error) {
	var (
		latest models.Day
		found  bool
	)
	for _, m := range metrics {
		days, err := s.ListDays(m)
		if err != nil {
			return 0, false, err
		}
		if len(days) > 0 && (!found || days[len(days)-1] > latest) {
			latest = days[len(days)-1]
			found = true
		}
	}
	return latest, found, nil
}
