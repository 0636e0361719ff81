// ABOUTME: MetricType enum for normalized fitness-tracker data.
// ABOUTME: Defines the ten metric types, their units, and canonical value columns.
package models

// MetricType identifies one kind of measurement and names its storage partition.
type MetricType string

const (
	// Intraday activity
	MetricHeartRate MetricType = "heart_rate"
	MetricSteps     MetricType = "steps"
	MetricDistance  MetricType = "distance"
	MetricCalories  MetricType = "calories"

	// Sleep
	MetricSleep      MetricType = "sleep"
	MetricSleepScore MetricType = "sleep_score"

	// Biometrics
	MetricSpO2        MetricType = "spo2"
	MetricTemperature MetricType = "temperature"
	MetricHRV         MetricType = "hrv"

	// Daily totals, only available from the web API
	MetricActivitySummary MetricType = "activity_summary"
)

// MetricUnits maps metric types to their display units.
var MetricUnits = map[MetricType]string{
	MetricHeartRate:       "bpm",
	MetricSteps:           "steps",
	MetricDistance:        "m",
	MetricCalories:        "kcal",
	MetricSleep:           "min",
	MetricSleepScore:      "score",
	MetricSpO2:            "ratio",
	MetricTemperature:     "°C",
	MetricHRV:             "ms",
	MetricActivitySummary: "steps",
}

// valueColumns is the column name a metric's primary value is stored under.
var valueColumns = map[MetricType]string{
	MetricHeartRate:       "heart_rate",
	MetricSteps:           "steps",
	MetricDistance:        "distance",
	MetricCalories:        "calories",
	MetricSleep:           "minutes_asleep",
	MetricSleepScore:      "overall_score",
	MetricSpO2:            "spo2",
	MetricTemperature:     "temperature",
	MetricHRV:             "rmssd",
	MetricActivitySummary: "steps",
}

// AllMetricTypes returns all valid metric types.
var AllMetricTypes = []MetricType{
	MetricHeartRate, MetricSteps, MetricDistance, MetricCalories,
	MetricSleep, MetricSleepScore,
	MetricSpO2, MetricTemperature, MetricHRV,
	MetricActivitySummary,
}

// FetchableMetricTypes are the metric types the web API serves day by day.
var FetchableMetricTypes = []MetricType{
	MetricActivitySummary, MetricHeartRate, MetricSleep, MetricSteps,
}

// IsValidMetricType checks if a string is a valid metric type.
func IsValidMetricType(s string) bool {
	for _, mt := range AllMetricTypes {
		if string(mt) == s {
			return true
		}
	}
	return false
}

// ParseMetricTypes converts names to metric types, rejecting unknown names.
func ParseMetricTypes(names []string) ([]MetricType, error) {
	out := make([]MetricType, 0, len(names))
	for _, n := range names {
		if !IsValidMetricType(n) {
			return nil, &UnknownMetricError{Name: n}
		}
		out = append(out, MetricType(n))
	}
	return out, nil
}

// UnknownMetricError reports a metric type name that is not recognised.
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return "unknown metric type: " + e.Name
}

// ValueColumn returns the canonical column name for the metric's primary value.
func (m MetricType) ValueColumn() string {
	if c, ok := valueColumns[m]; ok {
		return c
	}
	return "value"
}

// Unit returns the display unit for the metric.
func (m MetricType) Unit() string {
	return MetricUnits[m]
}

// Intraday reports whether rows of this metric carry a time of day.
func (m MetricType) Intraday() bool {
	switch m {
	case MetricHeartRate, MetricSteps, MetricDistance, MetricCalories,
		MetricSpO2, MetricTemperature, MetricHRV:
		return true
	}
	return false
}
