// ABOUTME: Record, SleepSession, and DayTable models for normalized data.
// ABOUTME: A DayTable holds every row of one metric for one calendar day.
package models

import (
	"sort"
	"time"
)

// Sleep classifications.
const (
	SleepMain = "main_sleep"
	SleepNap  = "nap"
)

// Record is one normalized measurement.
// Timestamp is a naive wall-clock time; its location is always UTC and carries no meaning.
type Record struct {
	Timestamp time.Time          `json:"timestamp"`
	HasTime   bool               `json:"has_time,omitempty"`
	Value     float64            `json:"value"`
	Attrs     map[string]float64 `json:"attrs,omitempty"`
	Variant   string             `json:"variant,omitempty"`
	Sleep     *SleepSession      `json:"sleep,omitempty"`
}

// Attr returns a named attribute and whether it is present.
func (r Record) Attr(name string) (float64, bool) {
	v, ok := r.Attrs[name]
	return v, ok
}

// SleepSession is one sleep log. Absent numeric fields stay nil.
type SleepSession struct {
	DateOfSleep         Day        `json:"date_of_sleep"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	DurationMs          *int64     `json:"duration_ms,omitempty"`
	MinutesToFallAsleep *int       `json:"minutes_to_fall_asleep,omitempty"`
	MinutesAsleep       *int       `json:"minutes_asleep,omitempty"`
	MinutesAwake        *int       `json:"minutes_awake,omitempty"`
	MinutesAfterWakeup  *int       `json:"minutes_after_wakeup,omitempty"`
	TimeInBed           *int       `json:"time_in_bed,omitempty"`
	Efficiency          *int       `json:"efficiency,omitempty"`
	DeepMinutes         *int       `json:"deep_minutes,omitempty"`
	LightMinutes        *int       `json:"light_minutes,omitempty"`
	RemMinutes          *int       `json:"rem_minutes,omitempty"`
	WakeMinutes         *int       `json:"wake_minutes,omitempty"`
	Classification      string     `json:"classification,omitempty"`
}

// Asleep returns minutes asleep, or 0 when unknown.
func (s *SleepSession) Asleep() int {
	if s == nil || s.MinutesAsleep == nil {
		return 0
	}
	return *s.MinutesAsleep
}

// HoursAsleep returns minutes asleep expressed in hours.
func (s *SleepSession) HoursAsleep() float64 {
	return float64(s.Asleep()) / 60
}

// IsMain reports whether the session is the main sleep of its day.
func (s *SleepSession) IsMain() bool {
	return s != nil && s.Classification == SleepMain
}

// DayTable is the complete set of rows for one (metric, day) partition.
type DayTable struct {
	Metric MetricType `json:"metric"`
	Day    Day        `json:"day"`
	Rows   []Record   `json:"rows"`
}

// NewDayTable creates an empty table for a partition.
func NewDayTable(metric MetricType, day Day) *DayTable {
	return &DayTable{Metric: metric, Day: day}
}

// Len returns the number of rows.
func (t *DayTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *DayTable) Empty() bool {
	return t.Len() == 0
}

// Sort orders rows by timestamp, breaking ties by variant.
// The sort is stable so duplicate timestamps keep their source order.
func (t *DayTable) Sort() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Variant < b.Variant
	})
}

// Variants returns the distinct variants present, sorted. The empty variant is included when present.
func (t *DayTable) Variants() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Variant] {
			seen[r.Variant] = true
			out = append(out, r.Variant)
		}
	}
	sort.Strings(out)
	return out
}

// AttrNames returns the sorted union of attribute names across rows.
func (t *DayTable) AttrNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.Rows {
		for k := range r.Attrs {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the table.
func (t *DayTable) Clone() *DayTable {
	if t == nil {
		return nil
	}
	out := &DayTable{Metric: t.Metric, Day: t.Day, Rows: make([]Record, len(t.Rows))}
	for i, r := range t.Rows {
		c := r
		if r.Attrs != nil {
			c.Attrs = make(map[string]float64, len(r.Attrs))
			for k, v := range r.Attrs {
				c.Attrs[k] = v
			}
		}
		if r.Sleep != nil {
			s := *r.Sleep
			c.Sleep = &s
		}
		out.Rows[i] = c
	}
	return out
}

// Append adds rows from other, which must be the same partition.
func (t *DayTable) Append(other *DayTable) {
	if other == nil {
		return
	}
	t.Rows = append(t.Rows, other.Clone().Rows...)
}
