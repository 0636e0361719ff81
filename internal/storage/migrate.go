// ABOUTME: Data migration between fitlog storage backends.
// ABOUTME: Copies every partition of every metric from source to destination.

package storage

import (
	"fmt"
	"os"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Metrics    int
	Partitions int
	Rows       int
}

// MigrateData copies all partitions from src to dst. Partitions already in
// dst are replaced, so running it twice yields the same destination.
func MigrateData(src, dst Store) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	metrics, err := src.Metrics()
	if err != nil {
		return nil, fmt.Errorf("list source metrics: %w", err)
	}

	for _, m := range metrics {
		days, err := src.ListDays(m)
		if err != nil {
			return nil, fmt.Errorf("list source days for %s: %w", m, err)
		}
		if len(days) == 0 {
			continue
		}
		summary.Metrics++

		for _, d := range days {
			t, err := src.Read(m, d)
			if err != nil {
				return nil, fmt.Errorf("read %s/%s: %w", m, d, err)
			}
			if err := dst.Write(m, d, t); err != nil {
				return nil, fmt.Errorf("write %s/%s: %w", m, d, err)
			}
			summary.Partitions++
			summary.Rows += t.Len()
		}
	}

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
