// ABOUTME: Parser for flat {dateTime, value} archive JSON files.
// ABOUTME: Handles scalar values and the nested heart-rate {bpm, confidence} value.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

type archiveEntry struct {
	DateTime string          `json:"dateTime"`
	Value    json.RawMessage `json:"value"`
}

type heartRateValue struct {
	BPM        json.RawMessage `json:"bpm"`
	Confidence json.RawMessage `json:"confidence"`
}

func normalizeArchiveJSON(u Unit) (*Result, error) {
	var entries []archiveEntry
	if err := json.Unmarshal(u.Data, &entries); err != nil {
		return nil, malformed("decode archive json: %v", err)
	}

	res := newResult(u.Metric)
	for _, e := range entries {
		ts, hasTime, err := ParseTimestamp(e.DateTime)
		if err != nil {
			res.Malformed++
			continue
		}

		rec := models.Record{Timestamp: ts, HasTime: hasTime, Variant: u.Variant}
		if !coerceArchiveValue(u.Metric, e.Value, &rec) {
			res.Malformed++
			continue
		}
		res.add(models.DayOf(ts), rec)
	}
	return res, nil
}

// coerceArchiveValue fills rec.Value (and attrs) from a raw JSON value.
func coerceArchiveValue(metric models.MetricType, raw json.RawMessage, rec *models.Record) bool {
	raw = bytes.TrimSpace(raw)
	if metric == models.MetricHeartRate && len(raw) > 0 && raw[0] == '{' {
		var hr heartRateValue
		if err := json.Unmarshal(raw, &hr); err != nil {
			return false
		}
		bpm, ok := coerceNumber(hr.BPM)
		if !ok {
			return false
		}
		rec.Value = bpm
		if c, ok := coerceNumber(hr.Confidence); ok {
			rec.Attrs = map[string]float64{"confidence": c}
		}
		return true
	}

	v, ok := coerceNumber(raw)
	if !ok {
		return false
	}
	rec.Value = v
	return true
}

// coerceNumber accepts a JSON number or a numeric string. Null, empty and
// anything else is rejected.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return parseFloat(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
