// ABOUTME: Tests for view state, default range, series aggregation, and summaries.
// ABOUTME: Fixtures are written to a temporary CSV store.
package view

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s storage.Store, metric models.MetricType, d models.Day, values ...float64) {
	t.Helper()
	table := models.NewDayTable(metric, d)
	for i, v := range values {
		table.Rows = append(table.Rows, models.Record{
			Timestamp: d.Time().Add(time.Duration(i) * time.Hour),
			HasTime:   true,
			Value:     v,
		})
	}
	require.NoError(t, s.Write(metric, d, table))
}

func putSleep(t *testing.T, s storage.Store, d models.Day, mainMinutes, efficiency int) {
	t.Helper()
	nap := 30
	table := models.NewDayTable(models.MetricSleep, d)
	table.Rows = []models.Record{
		{Timestamp: d.Time(), Value: float64(mainMinutes), Sleep: &models.SleepSession{
			DateOfSleep: d, MinutesAsleep: &mainMinutes, Efficiency: &efficiency, Classification: models.SleepMain,
		}},
		{Timestamp: d.Time().Add(14 * time.Hour), HasTime: true, Value: 30, Sleep: &models.SleepSession{
			DateOfSleep: d, MinutesAsleep: &nap, Classification: models.SleepNap,
		}},
	}
	require.NoError(t, s.Write(models.MetricSleep, d, table))
}

func TestParseBucket(t *testing.T) {
	tests := []struct {
		in      string
		want    Bucket
		wantErr bool
	}{
		{"", Daily, false},
		{"Weekly", Weekly, false},
		{"monthly", Monthly, false},
		{"hourly", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBucket(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBucket(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseBucket(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	d := models.MustParseDay("2024-08-29")
	err := ViewState{Start: d, End: d.AddDays(-1)}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidRange))
	assert.NoError(t, ViewState{Start: d, End: d, Bucket: Weekly}.Validate())
}

func TestDefaultRange(t *testing.T) {
	s := newStore(t)
	today := models.MustParseDay("2024-09-10")

	start, end, err := DefaultRange(s, models.AllMetricTypes, today)
	require.NoError(t, err)
	assert.Equal(t, today.AddDays(-6), start)
	assert.Equal(t, today, end)

	latest := models.MustParseDay("2024-08-29")
	put(t, s, models.MetricSteps, latest.AddDays(-20), 1)
	put(t, s, models.MetricHeartRate, latest, 60)

	state, err := DefaultState(s, today)
	require.NoError(t, err)
	assert.Equal(t, latest.AddDays(-6), state.Start)
	assert.Equal(t, latest, state.End)
	assert.Equal(t, Daily, state.Bucket)
	assert.ElementsMatch(t, []models.MetricType{models.MetricHeartRate, models.MetricSteps}, state.Metrics)
}

func TestBucketStart(t *testing.T) {
	// 2024-08-29 is a Thursday
	d := models.MustParseDay("2024-08-29")
	assert.Equal(t, models.MustParseDay("2024-08-26"), BucketStart(d, Weekly))
	assert.Equal(t, models.MustParseDay("2024-08-26"), BucketStart(models.MustParseDay("2024-08-26"), Weekly))
	assert.Equal(t, models.MustParseDay("2024-08-26"), BucketStart(models.MustParseDay("2024-09-01"), Weekly))
	assert.Equal(t, models.MustParseDay("2024-08-01"), BucketStart(d, Monthly))
	assert.Equal(t, d, BucketStart(d, Daily))
}

func TestBuildSeriesSum(t *testing.T) {
	s := newStore(t)
	mon := models.MustParseDay("2024-08-26")
	put(t, s, models.MetricSteps, mon, 100, 200)
	put(t, s, models.MetricSteps, mon.AddDays(2), 300)
	put(t, s, models.MetricSteps, mon.AddDays(7), 50)

	daily, err := BuildSeries(s, models.MetricSteps, ViewState{Start: mon, End: mon.AddDays(13), Bucket: Daily})
	require.NoError(t, err)
	require.Len(t, daily.Points, 3)
	assert.Equal(t, 300.0, daily.Points[0].Value)
	assert.Equal(t, "2024-08-26", daily.Points[0].Period)

	weekly, err := BuildSeries(s, models.MetricSteps, ViewState{Start: mon, End: mon.AddDays(13), Bucket: Weekly})
	require.NoError(t, err)
	require.Len(t, weekly.Points, 2)
	assert.Equal(t, 600.0, weekly.Points[0].Value)
	assert.Equal(t, 2, weekly.Points[0].Days)
	assert.Equal(t, "2024-W35", weekly.Points[0].Period)
	assert.Equal(t, 50.0, weekly.Points[1].Value)

	monthly, err := BuildSeries(s, models.MetricSteps, ViewState{Start: mon, End: mon.AddDays(13), Bucket: Monthly})
	require.NoError(t, err)
	require.Len(t, monthly.Points, 2)
	assert.Equal(t, "2024-08", monthly.Points[0].Period)
	assert.Equal(t, 600.0, monthly.Points[0].Value)
	assert.Equal(t, "2024-09", monthly.Points[1].Period)
}

func TestBuildSeriesHeartRate(t *testing.T) {
	s := newStore(t)
	d := models.MustParseDay("2024-08-29")
	put(t, s, models.MetricHeartRate, d, 50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150)

	series, err := BuildSeries(s, models.MetricHeartRate, ViewState{Start: d, End: d})
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	p := series.Points[0]
	assert.Equal(t, AggHeartRate, series.Aggregation)
	assert.Equal(t, 100.0, p.Value)
	assert.Equal(t, 50.0, *p.Min)
	assert.Equal(t, 150.0, *p.Max)
	assert.InDelta(t, 60.0, *p.P10, 1e-9)
	assert.Equal(t, 11, p.Count)
}

func TestBuildSeriesSleep(t *testing.T) {
	s := newStore(t)
	d := models.MustParseDay("2024-08-26")
	putSleep(t, s, d, 420, 90)
	putSleep(t, s, d.AddDays(1), 480, 94)

	series, err := BuildSeries(s, models.MetricSleep, ViewState{Start: d, End: d.AddDays(6), Bucket: Weekly})
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Equal(t, "h", series.Unit)
	assert.InDelta(t, 7.5, series.Points[0].Value, 1e-9)
	assert.Equal(t, 2, series.Points[0].Days)
}

func TestSummarize(t *testing.T) {
	s := newStore(t)
	d := models.MustParseDay("2024-08-26")
	put(t, s, models.MetricHeartRate, d, 50, 60, 70)
	put(t, s, models.MetricSteps, d, 1000, 2000)
	put(t, s, models.MetricSteps, d.AddDays(1), 5000)
	put(t, s, models.MetricCalories, d, 2000)
	putSleep(t, s, d, 420, 90)
	putSleep(t, s, d.AddDays(1), 480, 94)

	sum, err := Summarize(s, d, d.AddDays(6))
	require.NoError(t, err)

	assert.InDelta(t, 60.0, *sum.AvgHeartRate, 1e-9)
	assert.InDelta(t, 52.0, *sum.RestingHeartRate, 1e-9)
	assert.Equal(t, 70.0, *sum.MaxHeartRate)
	assert.InDelta(t, 7.5, *sum.AvgSleepHours, 1e-9)
	assert.InDelta(t, 92.0, *sum.AvgSleepEfficiency, 1e-9)
	assert.Equal(t, 4000.0, *sum.AvgDailySteps)
	assert.Equal(t, 8000.0, *sum.TotalSteps)
	assert.Equal(t, 2000.0, *sum.TotalCalories)

	empty, err := Summarize(s, d.AddDays(100), d.AddDays(106))
	require.NoError(t, err)
	assert.Nil(t, empty.AvgHeartRate)
	assert.Nil(t, empty.TotalSteps)
}

func TestViewsSkipUnreadablePartitions(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewCSVStore(dir)
	require.NoError(t, err)
	d := models.MustParseDay("2024-08-26")
	put(t, s, models.MetricSteps, d, 1000)
	put(t, s, models.MetricSteps, d.AddDays(2), 3000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "steps", "2024-08-27.csv"), []byte("datetime,steps\ngarbage,1\n"), 0600))

	series, err := BuildSeries(s, models.MetricSteps, ViewState{Start: d, End: d.AddDays(6), Bucket: Daily})
	require.NoError(t, err)
	assert.Len(t, series.Points, 2)
	assert.Equal(t, []models.Day{d.AddDays(1)}, series.SkippedDays)

	sum, err := Summarize(s, d, d.AddDays(6))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 4000.0, *sum.TotalSteps)
}

func TestStateFrom(t *testing.T) {
	s := newStore(t)
	today := models.MustParseDay("2024-09-10")
	put(t, s, models.MetricSteps, models.MustParseDay("2024-08-29"), 1)

	state, err := StateFrom(s, nil, today, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.MustParseDay("2024-08-23"), state.Start)
	assert.Equal(t, models.MustParseDay("2024-08-29"), state.End)
	assert.Equal(t, []models.MetricType{models.MetricSteps}, state.Metrics)

	state, err = StateFrom(s, []models.MetricType{models.MetricSleep}, today, "2024-08-01", "", "monthly")
	require.NoError(t, err)
	assert.Equal(t, models.MustParseDay("2024-08-01"), state.Start)
	assert.Equal(t, today, state.End)
	assert.Equal(t, Monthly, state.Bucket)

	_, err = StateFrom(s, nil, today, "08/01/2024", "", "")
	assert.Error(t, err)
	_, err = StateFrom(s, nil, today, "2024-09-01", "2024-08-01", "")
	assert.ErrorIs(t, err, ErrInvalidRange)
}
