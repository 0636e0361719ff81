// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines the day_rows table holding one row per record of a partition.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS day_rows (
		metric TEXT NOT NULL,
		day TEXT NOT NULL,
		seq INTEGER NOT NULL,
		recorded_at TEXT NOT NULL,
		has_time INTEGER NOT NULL DEFAULT 0,
		value REAL NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		attrs TEXT,
		sleep TEXT,
		PRIMARY KEY (metric, day, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_day_rows_metric_day ON day_rows(metric, day);
	`

	_, err := d.db.Exec(schema)
	return err
}
