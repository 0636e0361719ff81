// ABOUTME: Parser for single-day web API response pages.
// ABOUTME: Handles intraday datasets, sleep lists, and daily activity summaries.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

type intradayPoint struct {
	Time  string          `json:"time"`
	Value json.RawMessage `json:"value"`
}

type intradaySeries struct {
	Dataset []intradayPoint `json:"dataset"`
}

type activityDistance struct {
	Activity string          `json:"activity"`
	Distance json.RawMessage `json:"distance"`
}

type activitySummary struct {
	Steps                json.RawMessage    `json:"steps"`
	CaloriesOut          json.RawMessage    `json:"caloriesOut"`
	ActivityCalories     json.RawMessage    `json:"activityCalories"`
	CaloriesBMR          json.RawMessage    `json:"caloriesBMR"`
	Elevation            json.RawMessage    `json:"elevation"`
	Floors               json.RawMessage    `json:"floors"`
	SedentaryMinutes     json.RawMessage    `json:"sedentaryMinutes"`
	LightlyActiveMinutes json.RawMessage    `json:"lightlyActiveMinutes"`
	FairlyActiveMinutes  json.RawMessage    `json:"fairlyActiveMinutes"`
	VeryActiveMinutes    json.RawMessage    `json:"veryActiveMinutes"`
	RestingHeartRate     json.RawMessage    `json:"restingHeartRate"`
	Distances            []activityDistance `json:"distances"`
}

func normalizeAPIPage(u Unit) (*Result, error) {
	if !u.HasDay {
		return nil, malformed("api page without a day")
	}

	var page map[string]json.RawMessage
	if err := json.Unmarshal(u.Data, &page); err != nil {
		return nil, malformed("decode api page: %v", err)
	}

	switch u.Metric {
	case models.MetricSleep:
		raw, ok := page["sleep"]
		if !ok {
			return nil, malformed("api page has no sleep list")
		}
		var sessions []json.RawMessage
		if err := json.Unmarshal(raw, &sessions); err != nil {
			return nil, malformed("decode sleep list: %v", err)
		}
		return sleepResult(u, sessions), nil

	case models.MetricActivitySummary:
		raw, ok := page["summary"]
		if !ok {
			return nil, malformed("api page has no summary")
		}
		return activitySummaryResult(u, raw)

	case models.MetricHeartRate, models.MetricSteps, models.MetricCalories, models.MetricDistance:
		raw, ok := page[intradayKey(u.Metric)]
		if !ok {
			return nil, malformed("api page has no %s", intradayKey(u.Metric))
		}
		return intradayResult(u, raw)
	}
	return nil, malformed("metric %s is not served by the web API", u.Metric)
}

// intradayKey is the response key holding a metric's intraday dataset.
func intradayKey(m models.MetricType) string {
	resource := string(m)
	if m == models.MetricHeartRate {
		resource = "heart"
	}
	return "activities-" + resource + "-intraday"
}

func intradayResult(u Unit, raw json.RawMessage) (*Result, error) {
	var series intradaySeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, malformed("decode intraday dataset: %v", err)
	}

	res := newResult(u.Metric)
	for _, p := range series.Dataset {
		ts, err := atClock(u.Day, p.Time)
		if err != nil {
			res.Malformed++
			continue
		}
		v, ok := coerceNumber(p.Value)
		if !ok {
			res.Malformed++
			continue
		}
		res.add(u.Day, models.Record{Timestamp: ts, HasTime: true, Value: v, Variant: u.Variant})
	}
	return res, nil
}

func activitySummaryResult(u Unit, raw json.RawMessage) (*Result, error) {
	var s activitySummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, malformed("decode activity summary: %v", err)
	}

	res := newResult(u.Metric)
	steps, ok := coerceNumber(s.Steps)
	if !ok {
		res.Malformed++
		return res, nil
	}

	attrs := make(map[string]float64)
	for name, field := range map[string]json.RawMessage{
		"calories_out":           s.CaloriesOut,
		"activity_calories":      s.ActivityCalories,
		"calories_bmr":           s.CaloriesBMR,
		"elevation":              s.Elevation,
		"floors":                 s.Floors,
		"sedentary_minutes":      s.SedentaryMinutes,
		"lightly_active_minutes": s.LightlyActiveMinutes,
		"fairly_active_minutes":  s.FairlyActiveMinutes,
		"very_active_minutes":    s.VeryActiveMinutes,
		"resting_heart_rate":     s.RestingHeartRate,
	} {
		if v, ok := coerceNumber(field); ok {
			attrs[name] = v
		}
	}
	for _, d := range s.Distances {
		if strings.EqualFold(d.Activity, "total") {
			if v, ok := coerceNumber(d.Distance); ok {
				attrs["distance"] = v
			}
		}
	}

	rec := models.Record{Timestamp: u.Day.Time(), Value: steps, Variant: u.Variant}
	if len(attrs) > 0 {
		rec.Attrs = attrs
	}
	res.add(u.Day, rec)
	return res, nil
}
