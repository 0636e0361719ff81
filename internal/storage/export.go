// ABOUTME: Export and import functionality for stored day tables.
// ABOUTME: Supports JSON, YAML, and Markdown export formats plus JSON restore.
package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harperreed/fitlog/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for fitlog data.
type ExportData struct {
	Version    string             `json:"version" yaml:"version"`
	ExportedAt time.Time          `json:"exported_at" yaml:"exported_at"`
	Tool       string             `json:"tool" yaml:"tool"`
	Tables     []*models.DayTable `json:"tables" yaml:"tables"`
	// Skipped counts partitions left out because they could not be read.
	Skipped int `json:"skipped_partitions,omitempty" yaml:"skipped_partitions,omitempty"`
}

// ExportFilter limits an export to some metrics and a day range.
// Zero values mean every metric and every day.
type ExportFilter struct {
	Metrics []models.MetricType
	Start   *models.Day
	End     *models.Day
}

// GetAllData retrieves the filtered partitions for export.
func GetAllData(s Store, f ExportFilter) (*ExportData, error) {
	metrics := f.Metrics
	if len(metrics) == 0 {
		var err error
		metrics, err = s.Metrics()
		if err != nil {
			return nil, fmt.Errorf("list metrics: %w", err)
		}
	}

	start, end := models.Day(math.MinInt32), models.Day(math.MaxInt32)
	if f.Start != nil {
		start = *f.Start
	}
	if f.End != nil {
		end = *f.End
	}

	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       "fitlog",
	}
	for _, m := range metrics {
		tables, skipped, err := ReadRangeTolerant(s, m, start, end)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m, err)
		}
		data.Tables = append(data.Tables, tables...)
		data.Skipped += len(skipped)
	}
	return data, nil
}

// ImportData writes every table of an export into the store.
func ImportData(s Store, data *ExportData) error {
	for _, t := range data.Tables {
		if err := s.Write(t.Metric, t.Day, t); err != nil {
			return fmt.Errorf("import %s/%s: %w", t.Metric, t.Day, err)
		}
	}
	return nil
}

// ExportJSON exports the filtered data as JSON.
func ExportJSON(s Store, f ExportFilter) ([]byte, error) {
	data, err := GetAllData(s, f)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports the filtered data as YAML grouped by metric.
func ExportYAML(s Store, f ExportFilter) ([]byte, error) {
	data, err := GetAllData(s, f)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string               `yaml:"version"`
		ExportedAt string               `yaml:"exported_at"`
		Tool       string               `yaml:"tool"`
		Metrics    map[string][]yamlDay `yaml:"metrics"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Metrics:    make(map[string][]yamlDay),
	}

	for _, t := range data.Tables {
		yd := yamlDay{Day: t.Day.String(), Unit: t.Metric.Unit()}
		for _, r := range t.Rows {
			yr := yamlRow{Value: r.Value, Variant: r.Variant, Attrs: r.Attrs}
			if r.HasTime {
				yr.Time = r.Timestamp.Format("15:04:05")
			}
			if r.Sleep != nil {
				yr.Classification = r.Sleep.Classification
			}
			yd.Rows = append(yd.Rows, yr)
		}
		mt := string(t.Metric)
		yamlData.Metrics[mt] = append(yamlData.Metrics[mt], yd)
	}

	return yaml.Marshal(yamlData)
}

type yamlDay struct {
	Day  string    `yaml:"day"`
	Unit string    `yaml:"unit"`
	Rows []yamlRow `yaml:"rows"`
}

type yamlRow struct {
	Time           string             `yaml:"time,omitempty"`
	Value          float64            `yaml:"value"`
	Variant        string             `yaml:"variant,omitempty"`
	Classification string             `yaml:"classification,omitempty"`
	Attrs          map[string]float64 `yaml:"attrs,omitempty"`
}

// ExportMarkdown exports one daily summary table per metric.
func ExportMarkdown(s Store, f ExportFilter) (string, error) {
	data, err := GetAllData(s, f)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Fitlog Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	var current models.MetricType
	for _, t := range data.Tables {
		if t.Metric != current {
			if current != "" {
				sb.WriteString("\n")
			}
			current = t.Metric
			sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", t.Metric, t.Metric.Unit()))
			sb.WriteString("| Date | Rows | Min | Mean | Max |\n")
			sb.WriteString("|------|------|-----|------|-----|\n")
		}
		lo, mean, hi := rowStats(t)
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f |\n", t.Day, t.Len(), lo, mean, hi))
	}

	return sb.String(), nil
}

func rowStats(t *models.DayTable) (lo, mean, hi float64) {
	if t.Empty() {
		return 0, 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, r := range t.Rows {
		lo = math.Min(lo, r.Value)
		hi = math.Max(hi, r.Value)
		sum += r.Value
	}
	return lo, sum / float64(t.Len()), hi
}

// ImportJSON restores data from JSON bytes.
func ImportJSON(s Store, data []byte) error {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return ImportData(s, &exportData)
}
