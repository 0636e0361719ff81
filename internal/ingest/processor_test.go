// ABOUTME: Tests for archive ingestion from folders and zip files.
// ABOUTME: Checks counts, cross-file merging within a run, and rerun idempotence.
package ingest

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var archiveFiles = map[string]string{
	"Global Export Data/heart_rate-2024-08-29.json": `[
		{"dateTime":"08/29/24 23:59:50","value":{"bpm":62,"confidence":3}},
		{"dateTime":"08/30/24 00:00:05","value":{"bpm":60,"confidence":2}},
		{"dateTime":"08/30/24 00:00:10","value":null}
	]`,
	"Temperature/Wrist Temperature - 2024-08-29.csv":  "recorded_time,temperature\n2024-08-29T01:00:00,33.2\n2024-08-29T02:00:00,33.4\n",
	"Temperature/Device Temperature - 2024-08-29.csv": "recorded_time,temperature\n2024-08-29T01:30:00,35.1\n",
	"Global Export Data/sleep-2024-08-29.json": `[
		{"dateOfSleep":"2024-08-29","startTime":"2024-08-28T23:10:00.000","endTime":"2024-08-29T06:30:00.000","minutesAsleep":420,"efficiency":91},
		{"dateOfSleep":"2024-08-29","startTime":"2024-08-29T14:00:00.000","endTime":"2024-08-29T14:40:00.000","minutesAsleep":30}
	]`,
	"Global Export Data/sleep-2024-08-30.json": `[
		{"dateOfSleep":"2024-08-29","startTime":"2024-08-29T20:00:00.000","endTime":"2024-08-30T05:00:00.000","minutesAsleep":500}
	]`,
	"Profile.csv": "name\nsomeone\n",
	"notes.txt":   "not data",
}

func writeArchive(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range archiveFiles {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	zf, err := os.Create(filepath.Join(root, "takeout-001.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	w, err := zw.Create("Takeout/Fitbit/Global Export Data/steps-2024-08-29.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`[{"dateTime":"08/29/24 08:00:00","value":"12"},{"dateTime":"08/29/24 08:01:00","value":"30"}]`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())
	return root
}

func newStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestRunFolder(t *testing.T) {
	root := writeArchive(t)
	store := newStore(t)

	summary, err := NewProcessor(store, nil).Run(context.Background(), root)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 6, summary.FilesProcessed)
	assert.Equal(t, 2, summary.FilesSkipped)
	assert.Equal(t, 0, summary.FilesFailed)
	assert.Equal(t, 1, summary.Malformed)
	assert.Equal(t, 0, summary.WriteFailures)
	assert.Equal(t, map[models.MetricType]int{
		models.MetricHeartRate:   2,
		models.MetricTemperature: 1,
		models.MetricSleep:       1,
		models.MetricSteps:       1,
	}, summary.Days)

	d29 := models.MustParseDay("2024-08-29")

	hr, err := store.Read(models.MetricHeartRate, d29)
	require.NoError(t, err)
	require.Equal(t, 1, hr.Len())
	assert.Equal(t, 62.0, hr.Rows[0].Value)
	conf, _ := hr.Rows[0].Attr("confidence")
	assert.Equal(t, 3.0, conf)

	temp, err := store.Read(models.MetricTemperature, d29)
	require.NoError(t, err)
	assert.Equal(t, 3, temp.Len())
	assert.ElementsMatch(t, []string{"device", "wrist"}, temp.Variants())

	sleep, err := store.Read(models.MetricSleep, d29)
	require.NoError(t, err)
	require.Equal(t, 3, sleep.Len())
	for _, row := range sleep.Rows {
		want := models.SleepNap
		if row.Sleep.Asleep() == 500 {
			want = models.SleepMain
		}
		assert.Equal(t, want, row.Sleep.Classification, "session with %d minutes", row.Sleep.Asleep())
	}

	steps, err := store.Read(models.MetricSteps, d29)
	require.NoError(t, err)
	assert.Equal(t, 2, steps.Len())
}

func TestRunIsIdempotent(t *testing.T) {
	root := writeArchive(t)
	store := newStore(t)
	p := NewProcessor(store, nil)

	_, err := p.Run(context.Background(), root)
	require.NoError(t, err)
	first := snapshot(t, store)

	_, err = p.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(t, store))
}

// snapshot captures row counts and values of every partition.
func snapshot(t *testing.T, s storage.Store) map[string][]float64 {
	t.Helper()
	out := make(map[string][]float64)
	metrics, err := s.Metrics()
	require.NoError(t, err)
	for _, m := range metrics {
		days, err := s.ListDays(m)
		require.NoError(t, err)
		for _, d := range days {
			table, err := s.Read(m, d)
			require.NoError(t, err)
			key := string(m) + "/" + d.String()
			for _, r := range table.Rows {
				out[key] = append(out[key], r.Value)
			}
		}
	}
	return out
}

func TestRunSingleZip(t *testing.T) {
	root := writeArchive(t)
	store := newStore(t)

	summary, err := NewProcessor(store, nil).Run(context.Background(), filepath.Join(root, "takeout-001.zip"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Equal(t, []models.MetricType{models.MetricSteps}, summary.SortedDays())
}

func TestRunMissingRoot(t *testing.T) {
	_, err := NewProcessor(newStore(t), nil).Run(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	root := writeArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor(newStore(t), nil).Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
