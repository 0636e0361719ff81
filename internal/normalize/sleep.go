// ABOUTME: Sleep session parsing and main-sleep/nap classification.
// ABOUTME: Sessions are grouped by dateOfSleep; the longest asleep session is the main sleep.
package normalize

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/harperreed/fitlog/internal/models"
)

type sleepStage struct {
	Minutes json.RawMessage `json:"minutes"`
}

type sleepLevels struct {
	Summary map[string]sleepStage `json:"summary"`
}

type rawSleepSession struct {
	DateOfSleep         string          `json:"dateOfSleep"`
	StartTime           string          `json:"startTime"`
	EndTime             string          `json:"endTime"`
	Duration            json.RawMessage `json:"duration"`
	MinutesToFallAsleep json.RawMessage `json:"minutesToFallAsleep"`
	MinutesAsleep       json.RawMessage `json:"minutesAsleep"`
	MinutesAwake        json.RawMessage `json:"minutesAwake"`
	MinutesAfterWakeup  json.RawMessage `json:"minutesAfterWakeup"`
	TimeInBed           json.RawMessage `json:"timeInBed"`
	Efficiency          json.RawMessage `json:"efficiency"`
	Levels              *sleepLevels    `json:"levels"`
}

func normalizeSleepJSON(u Unit) (*Result, error) {
	sessions, err := decodeSleepList(u.Data)
	if err != nil {
		return nil, err
	}
	return sleepResult(u, sessions), nil
}

// decodeSleepList accepts an array of sessions, an object with a "sleep"
// array, or a single session object.
func decodeSleepList(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, malformed("empty sleep payload")
	}

	if data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, malformed("decode sleep json: %v", err)
		}
		return list, nil
	}

	var wrapped struct {
		Sleep []json.RawMessage `json:"sleep"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, malformed("decode sleep json: %v", err)
	}
	if wrapped.Sleep != nil {
		return wrapped.Sleep, nil
	}
	return []json.RawMessage{data}, nil
}

func sleepResult(u Unit, sessions []json.RawMessage) *Result {
	res := newResult(models.MetricSleep)
	for _, raw := range sessions {
		rec, err := parseSleepSession(raw)
		if err != nil {
			res.Malformed++
			continue
		}
		rec.Variant = u.Variant
		res.add(rec.Sleep.DateOfSleep, rec)
	}
	return res
}

func parseSleepSession(raw json.RawMessage) (models.Record, error) {
	var s rawSleepSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Record{}, malformed("decode sleep session: %v", err)
	}
	if s.DateOfSleep == "" {
		return models.Record{}, malformed("sleep session without dateOfSleep")
	}
	day, err := models.ParseDay(s.DateOfSleep)
	if err != nil {
		return models.Record{}, malformed("sleep session date %q", s.DateOfSleep)
	}

	session := &models.SleepSession{
		DateOfSleep:         day,
		StartTime:           optTime(s.StartTime),
		EndTime:             optTime(s.EndTime),
		MinutesToFallAsleep: optInt(s.MinutesToFallAsleep),
		MinutesAsleep:       optInt(s.MinutesAsleep),
		MinutesAwake:        optInt(s.MinutesAwake),
		MinutesAfterWakeup:  optInt(s.MinutesAfterWakeup),
		TimeInBed:           optInt(s.TimeInBed),
		Efficiency:          optInt(s.Efficiency),
	}
	if d, ok := coerceNumber(s.Duration); ok {
		ms := int64(d)
		session.DurationMs = &ms
	}
	if s.Levels != nil {
		session.DeepMinutes = stageMinutes(s.Levels, "deep")
		session.LightMinutes = stageMinutes(s.Levels, "light")
		session.RemMinutes = stageMinutes(s.Levels, "rem")
		session.WakeMinutes = stageMinutes(s.Levels, "wake")
	}

	rec := models.Record{
		Timestamp: day.Time(),
		Value:     float64(session.Asleep()),
		Sleep:     session,
	}
	if session.StartTime != nil {
		rec.Timestamp = *session.StartTime
		rec.HasTime = true
	}
	return rec, nil
}

func stageMinutes(l *sleepLevels, stage string) *int {
	st, ok := l.Summary[stage]
	if !ok {
		return nil
	}
	return optInt(st.Minutes)
}

func optInt(raw json.RawMessage) *int {
	f, ok := coerceNumber(raw)
	if !ok {
		return nil
	}
	v := int(f)
	return &v
}

func optTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, hasTime, err := ParseTimestamp(s)
	if err != nil || !hasTime {
		return nil
	}
	return &t
}

// ClassifySleep marks the session with the most minutes asleep as the main
// sleep and every other session as a nap. Ties go to the earliest start.
// The whole table is reclassified so merged tables stay consistent.
func ClassifySleep(t *models.DayTable) {
	main := -1
	for i := range t.Rows {
		s := t.Rows[i].Sleep
		if s == nil {
			continue
		}
		if main < 0 || betterMainSleep(s, t.Rows[main].Sleep) {
			main = i
		}
	}
	for i := range t.Rows {
		s := t.Rows[i].Sleep
		if s == nil {
			continue
		}
		if i == main {
			s.Classification = models.SleepMain
		} else {
			s.Classification = models.SleepNap
		}
	}
}

func betterMainSleep(a, b *models.SleepSession) bool {
	if a.Asleep() != b.Asleep() {
		return a.Asleep() > b.Asleep()
	}
	switch {
	case a.StartTime == nil:
		return false
	case b.StartTime == nil:
		return true
	}
	return a.StartTime.Before(*b.StartTime)
}
