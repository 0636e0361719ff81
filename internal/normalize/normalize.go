// ABOUTME: Record normalizer turning raw export payloads into per-day tables.
// ABOUTME: Dispatches on the payload shape and groups rows by calendar date.
package normalize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/harperreed/fitlog/internal/models"
)

// ErrMalformedRecord marks input that could not be coerced into a record.
// Row-level occurrences are counted in Result.Malformed; a unit that cannot be
// parsed at all returns an error wrapping it.
var ErrMalformedRecord = errors.New("malformed record")

// Kind tags the shape of a raw payload.
type Kind int

const (
	// KindArchiveJSON is a JSON array of flat {dateTime, value} records.
	KindArchiveJSON Kind = iota + 1
	// KindSleepJSON is a JSON array of sleep sessions.
	KindSleepJSON
	// KindCSV is a CSV file with a timestamp-like column.
	KindCSV
	// KindAPIPage is one web API response for a single known day.
	KindAPIPage
)

func (k Kind) String() string {
	switch k {
	case KindArchiveJSON:
		return "archive_json"
	case KindSleepJSON:
		return "sleep_json"
	case KindCSV:
		return "csv"
	case KindAPIPage:
		return "api_page"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Unit is one raw input handed to the normalizer.
type Unit struct {
	Kind   Kind
	Metric models.MetricType
	// Name is the source file name or URL, used for messages and date fallback.
	Name string
	Data []byte
	// Day is the known date of the payload. Required for KindAPIPage,
	// used as a fallback for CSV files without a timestamp column.
	Day    models.Day
	HasDay bool
	// Variant is stamped on every produced row.
	Variant string
}

// Result holds the tables produced from one unit.
type Result struct {
	Metric    models.MetricType
	Tables    map[models.Day]*models.DayTable
	Rows      int
	Malformed int
}

func newResult(metric models.MetricType) *Result {
	return &Result{Metric: metric, Tables: make(map[models.Day]*models.DayTable)}
}

// add places a record in the table of the given day.
func (r *Result) add(day models.Day, rec models.Record) {
	t, ok := r.Tables[day]
	if !ok {
		t = models.NewDayTable(r.Metric, day)
		r.Tables[day] = t
	}
	t.Rows = append(t.Rows, rec)
	r.Rows++
}

// Days returns the days present in the result, sorted ascending.
func (r *Result) Days() []models.Day {
	days := make([]models.Day, 0, len(r.Tables))
	for d := range r.Tables {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Normalize parses a unit into day tables. Rows that cannot be coerced are
// skipped and counted; only an unreadable unit returns an error.
func Normalize(u Unit) (*Result, error) {
	if !models.IsValidMetricType(string(u.Metric)) {
		return nil, fmt.Errorf("normalize %s: unknown metric type %q", u.Name, u.Metric)
	}

	var (
		res *Result
		err error
	)
	switch u.Kind {
	case KindArchiveJSON:
		res, err = normalizeArchiveJSON(u)
	case KindSleepJSON:
		res, err = normalizeSleepJSON(u)
	case KindCSV:
		res, err = normalizeCSV(u)
	case KindAPIPage:
		res, err = normalizeAPIPage(u)
	default:
		return nil, fmt.Errorf("normalize %s: unsupported payload kind %s", u.Name, u.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", u.Name, err)
	}

	for _, t := range res.Tables {
		t.Sort()
		if t.Metric == models.MetricSleep {
			ClassifySleep(t)
		}
	}
	return res, nil
}

// Merge combines tables of the same partition into a new, sorted table.
// Sleep tables are re-classified over the complete set.
func Merge(tables ...*models.DayTable) *models.DayTable {
	var out *models.DayTable
	for _, t := range tables {
		if t == nil {
			continue
		}
		if out == nil {
			out = models.NewDayTable(t.Metric, t.Day)
		}
		out.Append(t)
	}
	if out == nil {
		return nil
	}
	out.Sort()
	if out.Metric == models.MetricSleep {
		ClassifySleep(out)
	}
	return out
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}
