// ABOUTME: Tests for merge decisions and merge passes over staged API pages.
// ABOUTME: Uses a temporary CSV store and staging folder.
package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(metric models.MetricType, day models.Day, values ...float64) *models.DayTable {
	t := models.NewDayTable(metric, day)
	for i, v := range values {
		t.Rows = append(t.Rows, models.Record{
			Timestamp: day.Time().Add(time.Duration(i) * time.Minute),
			HasTime:   true,
			Value:     v,
		})
	}
	return t
}

func TestResolve(t *testing.T) {
	day := models.MustParseDay("2024-08-29")

	tests := []struct {
		name    string
		metric  models.MetricType
		archive *models.DayTable
		want    Decision
	}{
		{"archive present keeps archive", models.MetricHeartRate, table(models.MetricHeartRate, day, 60), KeepArchive},
		{"archive absent takes fetched", models.MetricHeartRate, nil, TakeFetched},
		{"empty archive counts as absent", models.MetricSleep, models.NewDayTable(models.MetricSleep, day), TakeFetched},
		{"activity summary always takes fetched", models.MetricActivitySummary, table(models.MetricActivitySummary, day, 9000), TakeFetched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetched := table(tt.metric, day, 1)
			if got := Resolve(tt.metric, day, tt.archive, fetched); got != tt.want {
				t.Errorf("Resolve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolverOverrides(t *testing.T) {
	policies, err := ParsePolicies(map[string]string{"steps": "compose", "heart_rate": "FETCHED_WINS"})
	require.NoError(t, err)

	r := NewResolver(policies)
	day := models.MustParseDay("2024-08-29")
	archive := table(models.MetricSteps, day, 10)

	assert.Equal(t, Compose, r.Resolve(models.MetricSteps, day, archive, table(models.MetricSteps, day, 5)))
	assert.Equal(t, TakeFetched, r.Resolve(models.MetricHeartRate, day, archive, table(models.MetricHeartRate, day, 5)))
	assert.Equal(t, PolicyArchiveWins, r.PolicyFor(models.MetricSleep))
	assert.Equal(t, PolicyFetchedWins, r.PolicyFor(models.MetricActivitySummary))
	assert.Equal(t, []string{"activity_summary=fetched_wins", "heart_rate=fetched_wins", "steps=compose"}, r.Policies())

	_, err = ParsePolicies(map[string]string{"steps": "newest"})
	assert.Error(t, err)
	_, err = ParsePolicies(map[string]string{"weight": "compose"})
	var unknown *models.UnknownMetricError
	assert.True(t, errors.As(err, &unknown))
}

func newTestMerger(t *testing.T, overrides map[models.MetricType]Policy) (*Merger, storage.Store, string) {
	t.Helper()
	store, err := storage.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	staging := t.TempDir()
	return NewMerger(store, NewResolver(overrides), staging, nil), store, staging
}

func TestApply(t *testing.T) {
	m, store, _ := newTestMerger(t, map[models.MetricType]Policy{models.MetricSteps: PolicyCompose})
	day := models.MustParseDay("2024-08-29")

	require.NoError(t, store.Write(models.MetricHeartRate, day, table(models.MetricHeartRate, day, 60, 61)))

	outcome, err := m.Apply(models.MetricHeartRate, day, table(models.MetricHeartRate, day, 99), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	got, err := store.Read(models.MetricHeartRate, day)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len(), "archive day must not be replaced")

	outcome, err = m.Apply(models.MetricHeartRate, day.AddDays(1), table(models.MetricHeartRate, day.AddDays(1), 70), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)

	require.NoError(t, store.Write(models.MetricSteps, day, table(models.MetricSteps, day, 100)))
	outcome, err = m.Apply(models.MetricSteps, day, table(models.MetricSteps, day, 5, 6), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeComposed, outcome)
	got, _ = store.Read(models.MetricSteps, day)
	assert.Equal(t, 3, got.Len())

	outcome, err = m.Apply(models.MetricSteps, day, models.NewDayTable(models.MetricSteps, day), false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

const heartPage = `{"activities-heart-intraday":{"dataset":[{"time":"00:00:00","value":61},{"time":"00:01:00","value":63}]}}`

const summaryPage = `{"summary":{"steps":10432,"caloriesOut":2450,"restingHeartRate":58,"distances":[{"activity":"total","distance":7.8}]}}`

func TestMergeStaging(t *testing.T) {
	m, store, staging := newTestMerger(t, nil)
	d1 := models.MustParseDay("2024-08-29")
	d2 := d1.AddDays(1)

	// d1 already has archive data for heart rate and activity summary
	require.NoError(t, store.Write(models.MetricHeartRate, d1, table(models.MetricHeartRate, d1, 55)))
	require.NoError(t, store.Write(models.MetricActivitySummary, d1, table(models.MetricActivitySummary, d1, 1)))

	for _, p := range []struct {
		metric models.MetricType
		day    models.Day
		data   string
	}{
		{models.MetricHeartRate, d1, heartPage},
		{models.MetricHeartRate, d2, heartPage},
		{models.MetricActivitySummary, d1, summaryPage},
		{models.MetricSleep, d2, `{"nope": []}`},
	} {
		_, err := storage.StagePage(staging, p.metric, p.day, []byte(p.data))
		require.NoError(t, err)
	}

	summary, err := m.MergeStaging(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 4, summary.Pages)

	assert.Equal(t, Counts{Added: 1, Skipped: 1}, *summary.Metrics[models.MetricHeartRate])
	assert.Equal(t, Counts{Added: 1}, *summary.Metrics[models.MetricActivitySummary])
	assert.Equal(t, Counts{Failed: 1}, *summary.Metrics[models.MetricSleep])
	assert.Equal(t, Counts{Added: 2, Skipped: 1, Failed: 1}, summary.Totals())

	hr, err := store.Read(models.MetricHeartRate, d1)
	require.NoError(t, err)
	assert.Equal(t, 55.0, hr.Rows[0].Value)

	as, err := store.Read(models.MetricActivitySummary, d1)
	require.NoError(t, err)
	assert.Equal(t, 10432.0, as.Rows[0].Value)
	dist, ok := as.Rows[0].Attr("distance")
	assert.True(t, ok)
	assert.Equal(t, 7.8, dist)
}

func TestMergeStagingDryRun(t *testing.T) {
	m, store, staging := newTestMerger(t, nil)
	day := models.MustParseDay("2024-08-30")
	_, err := storage.StagePage(staging, models.MetricHeartRate, day, []byte(heartPage))
	require.NoError(t, err)

	summary, err := m.MergeStaging(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Metrics[models.MetricHeartRate].Added)

	_, err = store.Read(models.MetricHeartRate, day)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMergeStagingMissingFolder(t *testing.T) {
	store, err := storage.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	m := NewMerger(store, nil, t.TempDir()+"/absent", nil)

	summary, err := m.MergeStaging(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, summary.Pages)
}

func TestMergeStagingCancelled(t *testing.T) {
	m, _, staging := newTestMerger(t, nil)
	_, err := storage.StagePage(staging, models.MetricHeartRate, models.MustParseDay("2024-08-30"), []byte(heartPage))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.MergeStaging(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}
