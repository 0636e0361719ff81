// ABOUTME: Explicit view state for presentation layers: date range, bucket, metrics.
// ABOUTME: Computes the default range ending at the latest stored day.
package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
)

// DefaultRangeDays is the length of the default view range.
const DefaultRangeDays = 7

// ErrInvalidRange is returned when a range ends before it starts.
var ErrInvalidRange = errors.New("invalid date range")

// Bucket is the aggregation period of a series.
type Bucket string

const (
	Daily   Bucket = "daily"
	Weekly  Bucket = "weekly"
	Monthly Bucket = "monthly"
)

// ParseBucket accepts daily, weekly, or monthly in any case. Empty is daily.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(strings.ToLower(s)) {
	case "", Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown bucket %q (use daily, weekly, or monthly)", s)
}

// ViewState is everything a presentation layer needs to render a view.
// It is passed explicitly; nothing is kept between requests.
type ViewState struct {
	Start   models.Day          `json:"start"`
	End     models.Day          `json:"end"`
	Bucket  Bucket              `json:"bucket"`
	Metrics []models.MetricType `json:"metrics"`
}

// Validate checks the range and bucket.
func (v ViewState) Validate() error {
	if v.End < v.Start {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange, v.End, v.Start)
	}
	if _, err := ParseBucket(string(v.Bucket)); err != nil {
		return err
	}
	return nil
}

// DefaultRange returns the last seven days ending at the latest day stored
// for any of the metrics, or ending today when the store is empty.
func DefaultRange(s storage.Store, metrics []models.MetricType, today models.Day) (start, end models.Day, err error) {
	latest, found, err := storage.LatestDay(s, metrics)
	if err != nil {
		return 0, 0, err
	}
	end = today
	if found {
		end = latest
	}
	return end.AddDays(-(DefaultRangeDays - 1)), end, nil
}

// DefaultState builds a daily view over the default range for every stored metric.
func DefaultState(s storage.Store, today models.Day) (ViewState, error) {
	metrics, err := s.Metrics()
	if err != nil {
		return ViewState{}, err
	}
	start, end, err := DefaultRange(s, metrics, today)
	if err != nil {
		return ViewState{}, err
	}
	return ViewState{Start: start, End: end, Bucket: Daily, Metrics: metrics}, nil
}

// StateFrom builds a view from optional string parameters as they arrive from
// a query string or tool call. Empty start or end fall back to the default
// range over metrics; nil metrics means every stored metric.
func StateFrom(s storage.Store, metrics []models.MetricType, today models.Day, start, end, bucket string) (ViewState, error) {
	b, err := ParseBucket(bucket)
	if err != nil {
		return ViewState{}, err
	}
	if metrics == nil {
		if metrics, err = s.Metrics(); err != nil {
			return ViewState{}, err
		}
	}
	state := ViewState{Bucket: b, Metrics: metrics}
	if state.Start, state.End, err = DefaultRange(s, metrics, today); err != nil {
		return ViewState{}, err
	}
	if start != "" {
		if state.Start, err = models.ParseDay(start); err != nil {
			return ViewState{}, err
		}
	}
	if end != "" {
		if state.End, err = models.ParseDay(end); err != nil {
			return ViewState{}, err
		}
	}
	return state, state.Validate()
}
