// ABOUTME: Health summary over a date range across heart rate, sleep, steps, and calories.
// ABOUTME: Fields are nil when the range has no data for them.
package view

import (
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
)

// Summary holds headline numbers for a range.
type Summary struct {
	Start models.Day `json:"start"`
	End   models.Day `json:"end"`

	AvgHeartRate     *float64 `json:"avg_heart_rate,omitempty"`
	RestingHeartRate *float64 `json:"resting_heart_rate,omitempty"`
	MaxHeartRate     *float64 `json:"max_heart_rate,omitempty"`

	AvgSleepHours      *float64 `json:"avg_sleep_hours,omitempty"`
	AvgSleepEfficiency *float64 `json:"avg_sleep_efficiency,omitempty"`

	AvgDailySteps    *float64 `json:"avg_daily_steps,omitempty"`
	TotalSteps       *float64 `json:"total_steps,omitempty"`
	AvgDailyCalories *float64 `json:"avg_daily_calories,omitempty"`
	TotalCalories    *float64 `json:"total_calories,omitempty"`

	// Skipped counts unreadable partitions left out of the numbers above.
	Skipped int `json:"skipped_partitions,omitempty"`
}

// Summarize computes the summary for [start, end].
func Summarize(s storage.Store, start, end models.Day) (*Summary, error) {
	out := &Summary{Start: start, End: end}

	hr, skipped, err := storage.ReadRangeTolerant(s, models.MetricHeartRate, start, end)
	if err != nil {
		return nil, err
	}
	out.Skipped += len(skipped)
	var bpm []float64
	for _, t := range hr {
		for _, r := range t.Rows {
			bpm = append(bpm, r.Value)
		}
	}
	if len(bpm) > 0 {
		_, hi := minMax(bpm)
		out.AvgHeartRate = ptr(mean(bpm))
		out.RestingHeartRate = ptr(quantile(bpm, 0.1))
		out.MaxHeartRate = ptr(hi)
	}

	sleep, skipped, err := storage.ReadRangeTolerant(s, models.MetricSleep, start, end)
	if err != nil {
		return nil, err
	}
	out.Skipped += len(skipped)
	var hours, efficiency []float64
	for _, t := range sleep {
		for _, r := range t.Rows {
			if !r.Sleep.IsMain() {
				continue
			}
			hours = append(hours, r.Sleep.HoursAsleep())
			if r.Sleep.Efficiency != nil {
				efficiency = append(efficiency, float64(*r.Sleep.Efficiency))
			}
		}
	}
	if len(hours) > 0 {
		out.AvgSleepHours = ptr(mean(hours))
	}
	if len(efficiency) > 0 {
		out.AvgSleepEfficiency = ptr(mean(efficiency))
	}

	var n int
	out.AvgDailySteps, out.TotalSteps, n, err = dailyTotals(s, models.MetricSteps, start, end)
	if err != nil {
		return nil, err
	}
	out.Skipped += n
	out.AvgDailyCalories, out.TotalCalories, n, err = dailyTotals(s, models.MetricCalories, start, end)
	if err != nil {
		return nil, err
	}
	out.Skipped += n
	return out, nil
}

// dailyTotals sums each day and returns the mean daily total, the grand
// total, and how many partitions were unreadable.
func dailyTotals(s storage.Store, metric models.MetricType, start, end models.Day) (avg, total *float64, skipped int, err error) {
	tables, bad, err := storage.ReadRangeTolerant(s, metric, start, end)
	if err != nil {
		return nil, nil, 0, err
	}
	var perDay []float64
	for _, t := range tables {
		if t.Empty() {
			continue
		}
		var day float64
		for _, r := range t.Rows {
			day += r.Value
		}
		perDay = append(perDay, day)
	}
	if len(perDay) == 0 {
		return nil, nil, len(bad), nil
	}
	return ptr(mean(perDay)), ptr(sum(perDay)), len(bad), nil
}
