// ABOUTME: Time-bucket aggregation of stored day tables into chart-ready series.
// ABOUTME: Sums activity totals, averages biometrics, and tracks main-sleep hours.
package view

import (
	"fmt"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
)

// Aggregation names how rows in a bucket are combined.
type Aggregation string

const (
	AggSum            Aggregation = "sum"
	AggMean           Aggregation = "mean"
	AggHeartRate      Aggregation = "heart_rate"
	AggMainSleepHours Aggregation = "main_sleep_hours"
)

// AggregationFor returns the aggregation used for a metric.
func AggregationFor(m models.MetricType) Aggregation {
	switch m {
	case models.MetricSteps, models.MetricCalories, models.MetricDistance, models.MetricActivitySummary:
		return AggSum
	case models.MetricHeartRate:
		return AggHeartRate
	case models.MetricSleep:
		return AggMainSleepHours
	}
	return AggMean
}

// Point is one bucket of a series.
type Point struct {
	Period string     `json:"period"`
	Start  models.Day `json:"start"`
	Days   int        `json:"days"`
	Count  int        `json:"count"`
	Value  float64    `json:"value"`
	Min    *float64   `json:"min,omitempty"`
	Max    *float64   `json:"max,omitempty"`
	// P10 is the 10th percentile, a rough resting heart rate.
	P10 *float64 `json:"p10,omitempty"`
}

// Series is an aggregated metric over a view range.
type Series struct {
	Metric      models.MetricType `json:"metric"`
	Unit        string            `json:"unit"`
	Bucket      Bucket            `json:"bucket"`
	Aggregation Aggregation       `json:"aggregation"`
	Points      []Point           `json:"points"`
	// SkippedDays are days whose stored partition could not be read.
	SkippedDays []models.Day `json:"skipped_days,omitempty"`
}

// BucketStart returns the first day of the bucket containing d.
// Weeks start on Monday.
func BucketStart(d models.Day, b Bucket) models.Day {
	switch b {
	case Weekly:
		return d.AddDays(-((int(d.Weekday()) + 6) % 7))
	case Monthly:
		t := d.Time()
		return models.NewDay(t.Year(), t.Month(), 1)
	}
	return d
}

func periodLabel(start models.Day, b Bucket) string {
	switch b {
	case Weekly:
		year, week := start.Time().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Monthly:
		return start.Time().Format("2006-01")
	}
	return start.String()
}

type bucketValues struct {
	start  models.Day
	days   int
	values []float64
}

// BuildSeries aggregates one metric over the view's range and bucket.
func BuildSeries(s storage.Store, metric models.MetricType, v ViewState) (*Series, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	bucket, _ := ParseBucket(string(v.Bucket))
	tables, skipped, err := storage.ReadRangeTolerant(s, metric, v.Start, v.End)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", metric, err)
	}

	agg := AggregationFor(metric)
	var buckets []*bucketValues
	for _, t := range tables {
		vals := dayValues(t, agg)
		if len(vals) == 0 {
			continue
		}
		start := BucketStart(t.Day, bucket)
		if len(buckets) == 0 || buckets[len(buckets)-1].start != start {
			buckets = append(buckets, &bucketValues{start: start})
		}
		b := buckets[len(buckets)-1]
		b.days++
		b.values = append(b.values, vals...)
	}

	series := &Series{
		Metric:      metric,
		Unit:        metric.Unit(),
		Bucket:      bucket,
		Aggregation: agg,
		Points:      make([]Point, 0, len(buckets)),
		SkippedDays: skipped,
	}
	if agg == AggMainSleepHours {
		series.Unit = "h"
	}
	for _, b := range buckets {
		p := Point{Period: periodLabel(b.start, bucket), Start: b.start, Days: b.days, Count: len(b.values)}
		switch agg {
		case AggSum:
			p.Value = sum(b.values)
		case AggHeartRate:
			lo, hi := minMax(b.values)
			p.Value = mean(b.values)
			p.Min, p.Max = ptr(lo), ptr(hi)
			p.P10 = ptr(quantile(b.values, 0.1))
		default:
			p.Value = mean(b.values)
		}
		series.Points = append(series.Points, p)
	}
	return series, nil
}

// dayValues extracts the values of one day used by the aggregation.
// Sleep contributes the main session's hours asleep.
func dayValues(t *models.DayTable, agg Aggregation) []float64 {
	if agg == AggMainSleepHours {
		for _, r := range t.Rows {
			if r.Sleep.IsMain() {
				return []float64{r.Sleep.HoursAsleep()}
			}
		}
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.Value)
	}
	return out
}
