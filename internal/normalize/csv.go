// ABOUTME: Parser for archive CSV files (SpO2, temperature, HRV, sleep score).
// ABOUTME: Picks a timestamp and value column per metric; other numeric columns become attrs.
package normalize

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/harperreed/fitlog/internal/models"
)

var timestampColumns = []string{"timestamp", "recorded_time", "datetime", "date_time", "date"}

var valueColumnCandidates = map[models.MetricType][]string{
	models.MetricHeartRate:       {"heart_rate", "bpm", "value"},
	models.MetricSteps:           {"steps", "value"},
	models.MetricDistance:        {"distance", "value"},
	models.MetricCalories:        {"calories", "value"},
	models.MetricSpO2:            {"spo2", "infrared_to_red_signal_ratio", "oxygen_variation", "value"},
	models.MetricTemperature:     {"temperature", "temperature_celsius", "value"},
	models.MetricHRV:             {"rmssd", "root_mean_square_of_successive_differences_milliseconds", "value"},
	models.MetricSleepScore:      {"overall_score", "value"},
	models.MetricActivitySummary: {"steps", "value"},
}

func normalizeCSV(u Unit) (*Result, error) {
	if u.Metric == models.MetricSleep {
		return nil, malformed("sleep sessions are read from JSON, not CSV")
	}

	r := csv.NewReader(bytes.NewReader(u.Data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return newResult(u.Metric), nil
		}
		return nil, malformed("read csv header: %v", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = snakeCase(h)
	}

	tsCol := findColumn(cols, timestampColumns)
	valCol := findColumn(cols, valueColumnCandidates[u.Metric])
	if valCol < 0 {
		return nil, malformed("no %s value column in %v", u.Metric, cols)
	}

	fallback, hasFallback := u.Day, u.HasDay
	if !hasFallback {
		fallback, hasFallback = DateFromName(u.Name)
	}
	if tsCol < 0 && !hasFallback {
		return nil, malformed("no timestamp column and no date in name")
	}

	res := newResult(u.Metric)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Malformed++
			continue
		}

		rec := models.Record{Variant: u.Variant}
		if tsCol >= 0 {
			ts, hasTime, err := ParseTimestamp(cell(row, tsCol))
			if err != nil {
				res.Malformed++
				continue
			}
			rec.Timestamp, rec.HasTime = ts, hasTime
		} else {
			rec.Timestamp = fallback.Time()
		}

		v, ok := parseFloat(cell(row, valCol))
		if !ok {
			res.Malformed++
			continue
		}
		rec.Value = v

		for i, name := range cols {
			if i == tsCol || i == valCol || name == "" {
				continue
			}
			if f, ok := parseFloat(cell(row, i)); ok {
				if rec.Attrs == nil {
					rec.Attrs = make(map[string]float64)
				}
				rec.Attrs[name] = f
			}
		}
		res.add(models.DayOf(rec.Timestamp), rec)
	}
	return res, nil
}

func findColumn(cols []string, candidates []string) int {
	for _, want := range candidates {
		for i, c := range cols {
			if c == want {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// snakeCase lowercases a header and joins its words with underscores.
// "Infrared to Red Signal Ratio" and "dateTime" become infrared_to_red_signal_ratio and date_time.
func snakeCase(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "\ufeff")
	var b strings.Builder
	sep, prevLower := false, false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			sep = true
			prevLower = false
			continue
		}
		upper := unicode.IsUpper(r)
		if b.Len() > 0 && (sep || (upper && prevLower)) {
			b.WriteByte('_')
		}
		sep = false
		prevLower = !upper
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
