// ABOUTME: On-disk layout of fetched API pages awaiting merge.
// ABOUTME: Pages live at <staging>/YYYY/MM/DD/<metric>.json.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

// StagingPath returns where the fetched page for (metric, day) is staged.
func StagingPath(root string, metric models.MetricType, day models.Day) string {
	t := day.Time()
	return filepath.Join(root,
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
		string(metric)+".json")
}

// ParseStagingPath recovers (metric, day) from a staged page path.
func ParseStagingPath(root, path string) (models.MetricType, models.Day, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", 0, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 || !strings.HasSuffix(parts[3], ".json") {
		return "", 0, false
	}
	day, err := models.ParseDay(parts[0] + "-" + parts[1] + "-" + parts[2])
	if err != nil {
		return "", 0, false
	}
	name := strings.TrimSuffix(parts[3], ".json")
	if !models.IsValidMetricType(name) {
		return "", 0, false
	}
	return models.MetricType(name), day, true
}

// StagePage writes a fetched page atomically into the staging layout.
func StagePage(root string, metric models.MetricType, day models.Day, data []byte) (string, error) {
	path := StagingPath(root, metric, day)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("%w: create staging dir: %v", ErrStorageIO, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: stage %s: %v", ErrStorageIO, path, err)
	}
	return path, nil
}
