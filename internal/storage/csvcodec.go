// ABOUTME: CSV encoding of day tables for the file-based store.
// ABOUTME: Uses a fixed column layout per metric so files round-trip exactly.
package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/harperreed/fitlog/internal/models"
)

const (
	timestampLayout = "2006-01-02 15:04:05.999999999"
	datetimeColumn  = "datetime"
)

var sleepColumns = []string{
	datetimeColumn, "date_of_sleep", "start_time", "end_time", "duration_ms",
	"minutes_to_fall_asleep", "minutes_asleep", "minutes_awake", "minutes_after_wakeup",
	"time_in_bed", "efficiency", "deep_minutes", "light_minutes", "rem_minutes", "wake_minutes",
	"classification",
}

// encodeRows writes rows of one variant. Attribute columns follow the value
// column in sorted order; a missing attribute is an empty cell.
func encodeRows(metric models.MetricType, rows []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if metric == models.MetricSleep {
		if err := w.Write(sleepColumns); err != nil {
			return nil, err
		}
		for _, r := range rows {
			if err := w.Write(sleepRow(r)); err != nil {
				return nil, err
			}
		}
	} else {
		attrs := (&models.DayTable{Rows: rows}).AttrNames()
		header := append([]string{datetimeColumn, metric.ValueColumn()}, attrs...)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		for _, r := range rows {
			rec := []string{formatTimestamp(r.Timestamp, r.HasTime), formatFloat(r.Value)}
			for _, a := range attrs {
				if v, ok := r.Attrs[a]; ok {
					rec = append(rec, formatFloat(v))
				} else {
					rec = append(rec, "")
				}
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRows parses a file written by encodeRows, stamping variant on every row.
func decodeRows(metric models.MetricType, data []byte, variant string) ([]models.Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []models.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		var row models.Record
		if metric == models.MetricSleep {
			row, err = parseSleepRow(header, rec)
		} else {
			row, err = parseValueRow(header, rec)
		}
		if err != nil {
			return nil, err
		}
		row.Variant = variant
		rows = append(rows, row)
	}
	return rows, nil
}

// hasRecords reports whether data holds anything past the header line.
// Malformed content counts, so Read can report it.
func hasRecords(data []byte) bool {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		return err != io.EOF
	}
	_, err := r.Read()
	return err != io.EOF
}

func parseValueRow(header, rec []string) (models.Record, error) {
	if len(header) < 2 || len(rec) != len(header) {
		return models.Record{}, fmt.Errorf("row has %d fields, header has %d", len(rec), len(header))
	}
	ts, hasTime, err := parseTimestamp(rec[0])
	if err != nil {
		return models.Record{}, err
	}
	v, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return models.Record{}, fmt.Errorf("parse value %q: %w", rec[1], err)
	}

	row := models.Record{Timestamp: ts, HasTime: hasTime, Value: v}
	for i := 2; i < len(header); i++ {
		if rec[i] == "" {
			continue
		}
		f, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return models.Record{}, fmt.Errorf("parse %s %q: %w", header[i], rec[i], err)
		}
		if row.Attrs == nil {
			row.Attrs = make(map[string]float64)
		}
		row.Attrs[header[i]] = f
	}
	return row, nil
}

func sleepRow(r models.Record) []string {
	s := r.Sleep
	if s == nil {
		s = &models.SleepSession{DateOfSleep: models.DayOf(r.Timestamp)}
	}
	return []string{
		formatTimestamp(r.Timestamp, r.HasTime),
		s.DateOfSleep.String(),
		formatOptTime(s.StartTime),
		formatOptTime(s.EndTime),
		formatOptInt64(s.DurationMs),
		formatOptInt(s.MinutesToFallAsleep),
		formatOptInt(s.MinutesAsleep),
		formatOptInt(s.MinutesAwake),
		formatOptInt(s.MinutesAfterWakeup),
		formatOptInt(s.TimeInBed),
		formatOptInt(s.Efficiency),
		formatOptInt(s.DeepMinutes),
		formatOptInt(s.LightMinutes),
		formatOptInt(s.RemMinutes),
		formatOptInt(s.WakeMinutes),
		s.Classification,
	}
}

func parseSleepRow(header, rec []string) (models.Record, error) {
	if len(rec) != len(sleepColumns) || len(header) != len(sleepColumns) {
		return models.Record{}, fmt.Errorf("sleep row has %d fields, want %d", len(rec), len(sleepColumns))
	}
	ts, hasTime, err := parseTimestamp(rec[0])
	if err != nil {
		return models.Record{}, err
	}
	day, err := models.ParseDay(rec[1])
	if err != nil {
		return models.Record{}, err
	}

	s := &models.SleepSession{DateOfSleep: day, Classification: rec[15]}
	if s.StartTime, err = parseOptTime(rec[2]); err != nil {
		return models.Record{}, err
	}
	if s.EndTime, err = parseOptTime(rec[3]); err != nil {
		return models.Record{}, err
	}
	if rec[4] != "" {
		ms, err := strconv.ParseInt(rec[4], 10, 64)
		if err != nil {
			return models.Record{}, fmt.Errorf("parse duration_ms %q: %w", rec[4], err)
		}
		s.DurationMs = &ms
	}
	ints := []**int{
		&s.MinutesToFallAsleep, &s.MinutesAsleep, &s.MinutesAwake, &s.MinutesAfterWakeup,
		&s.TimeInBed, &s.Efficiency, &s.DeepMinutes, &s.LightMinutes, &s.RemMinutes, &s.WakeMinutes,
	}
	for i, dst := range ints {
		if *dst, err = parseOptInt(rec[5+i]); err != nil {
			return models.Record{}, fmt.Errorf("parse %s: %w", sleepColumns[5+i], err)
		}
	}

	return models.Record{Timestamp: ts, HasTime: hasTime, Value: float64(s.Asleep()), Sleep: s}, nil
}

func formatTimestamp(t time.Time, hasTime bool) string {
	if !hasTime {
		return t.Format(models.DayLayout)
	}
	return t.Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, bool, error) {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(models.DayLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, false, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

func parseOptTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", s, err)
	}
	return &t, nil
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatOptInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
