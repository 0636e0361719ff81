// ABOUTME: Timestamp and date parsing for heterogeneous export formats.
// ABOUTME: All results are naive wall-clock times with the zone discarded.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/harperreed/fitlog/internal/models"
)

// archiveLayout is the dateTime format of the bulk archive JSON files.
const archiveLayout = "01/02/06 15:04:05"

var timestampLayouts = []string{
	archiveLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"01/02/2006 15:04:05",
}

var dateLayouts = []string{
	models.DayLayout,
	"01/02/06",
	"01/02/2006",
}

// ParseTimestamp parses a timestamp string into a naive wall-clock time.
// hasTime is false when the input carried only a date.
func ParseTimestamp(s string) (ts time.Time, hasTime bool, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return wallClock(t), true, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return wallClock(t), false, nil
		}
	}
	return time.Time{}, false, malformed("unrecognised timestamp %q", s)
}

// wallClock drops the zone, keeping the clock reading as written.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// atClock combines a day with an HH:MM[:SS] clock reading.
func atClock(day models.Day, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if c, err := time.Parse(layout, clock); err == nil {
			d := day.Time()
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, malformed("unrecognised time of day %q", clock)
}

var nameDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})(?:-(\d{2}))?`)

// DateFromName extracts the last YYYY-MM-DD (or YYYY-MM, meaning the first of
// the month) embedded in a file name.
func DateFromName(name string) (models.Day, bool) {
	matches := nameDatePattern.FindAllStringSubmatch(name, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		s := m[1] + "-" + m[2] + "-01"
		if m[3] != "" {
			s = m[0]
		}
		if d, err := models.ParseDay(s); err == nil {
			return d, true
		}
	}
	return 0, false
}
