// ABOUTME: SQLite-backed Store with whole-partition replacement in one transaction.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO required).
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/fitlog/internal/models"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Compile-time check that DB implements Store.
var _ Store = (*DB)(nil)

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Set file permissions
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	d := &DB{db: db, dbPath: dbPath}

	if err := d.configurePragmas(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}

	if err := d.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// configurePragmas sets up SQLite for optimal performance.
func (d *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := d.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Write deletes the partition's rows and inserts the new table in one transaction.
func (d *DB) Write(metric models.MetricType, day models.Day, table *models.DayTable) error {
	t := prepare(metric, day, table)

	tx, err := d.db.Begin()
	if err != nil {
		return ioErr("begin", metric, day, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM day_rows WHERE metric = ? AND day = ?`, string(metric), day.String()); err != nil {
		return ioErr("delete", metric, day, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO day_rows (metric, day, seq, recorded_at, has_time, value, variant, attrs, sleep)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return ioErr("prepare", metric, day, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range t.Rows {
		attrs, err := nullableJSON(len(r.Attrs) > 0, r.Attrs)
		if err != nil {
			return ioErr("encode attrs", metric, day, err)
		}
		sleep, err := nullableJSON(r.Sleep != nil, r.Sleep)
		if err != nil {
			return ioErr("encode sleep", metric, day, err)
		}
		if _, err := stmt.Exec(
			string(metric),
			day.String(),
			i,
			r.Timestamp.Format(time.RFC3339Nano),
			r.HasTime,
			r.Value,
			r.Variant,
			attrs,
			sleep,
		); err != nil {
			return ioErr("insert", metric, day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ioErr("commit", metric, day, err)
	}
	return nil
}

// Read returns the partition's rows in stored order.
func (d *DB) Read(metric models.MetricType, day models.Day) (*models.DayTable, error) {
	rows, err := d.db.Query(`
		SELECT recorded_at, has_time, value, variant, attrs, sleep
		FROM day_rows
		WHERE metric = ? AND day = ?
		ORDER BY seq
	`, string(metric), day.String())
	if err != nil {
		return nil, ioErr("query", metric, day, err)
	}
	defer func() { _ = rows.Close() }()

	t := models.NewDayTable(metric, day)
	for rows.Next() {
		var (
			recordedAt   string
			rec          models.Record
			attrs, sleep sql.NullString
		)
		if err := rows.Scan(&recordedAt, &rec.HasTime, &rec.Value, &rec.Variant, &attrs, &sleep); err != nil {
			return nil, ioErr("scan", metric, day, err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, ioErr("parse timestamp", metric, day, err)
		}
		if attrs.Valid {
			if err := json.Unmarshal([]byte(attrs.String), &rec.Attrs); err != nil {
				return nil, ioErr("decode attrs", metric, day, err)
			}
		}
		if sleep.Valid {
			rec.Sleep = &models.SleepSession{}
			if err := json.Unmarshal([]byte(sleep.String), rec.Sleep); err != nil {
				return nil, ioErr("decode sleep", metric, day, err)
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate", metric, day, err)
	}
	if t.Empty() {
		return nil, ErrNotFound
	}
	return t, nil
}

// ReadRange returns existing partitions between start and end inclusive.
func (d *DB) ReadRange(metric models.MetricType, start, end models.Day) ([]*models.DayTable, error) {
	return readRange(d, metric, start, end)
}

// ListDays returns the days with stored rows for a metric.
func (d *DB) ListDays(metric models.MetricType) ([]models.Day, error) {
	rows, err := d.db.Query(`SELECT DISTINCT day FROM day_rows WHERE metric = ? ORDER BY day`, string(metric))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorageIO, metric, err)
	}
	defer func() { _ = rows.Close() }()

	var days []models.Day
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: scan day: %v", ErrStorageIO, err)
		}
		day, err := models.ParseDay(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// Metrics returns the metric types with stored rows.
func (d *DB) Metrics() ([]models.MetricType, error) {
	rows, err := d.db.Query(`SELECT DISTINCT metric FROM day_rows ORDER BY metric`)
	if err != nil {
		return nil, fmt.Errorf("%w: list metrics: %v", ErrStorageIO, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MetricType
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: scan metric: %v", ErrStorageIO, err)
		}
		out = append(out, models.MetricType(s))
	}
	return out, rows.Err()
}

func nullableJSON(present bool, v any) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
