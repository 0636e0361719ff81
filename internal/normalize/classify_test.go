// ABOUTME: Tests for archive path recognition and timestamp helpers.
// ABOUTME: Covers every known file family plus date extraction from names.
package normalize

import (
	"testing"

	"github.com/harperreed/fitlog/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path    string
		ok      bool
		metric  models.MetricType
		kind    Kind
		variant string
		day     string
	}{
		{"Takeout/Fitbit/Global Export Data/steps-2024-08-29.json", true, models.MetricSteps, KindArchiveJSON, "", "2024-08-29"},
		{"Fitbit/Global Export Data/heart_rate-2024-08-29.json", true, models.MetricHeartRate, KindArchiveJSON, "", "2024-08-29"},
		{"Fitbit/Global Export Data/sleep-2024-08-01.json", true, models.MetricSleep, KindSleepJSON, "", "2024-08-01"},
		{"Fitbit/Global Export Data/calories-2024-08-01.json", true, models.MetricCalories, KindArchiveJSON, "", "2024-08-01"},
		{"Fitbit/Global Export Data/distance-2024-08-01.json", true, models.MetricDistance, KindArchiveJSON, "", "2024-08-01"},
		{"Fitbit/Global Export Data/estimated_oxygen_variation-2024-08-29.csv", true, models.MetricSpO2, KindCSV, "", "2024-08-29"},
		{"Fitbit/Temperature/Wrist Temperature - 2024-08-29.csv", true, models.MetricTemperature, KindCSV, "wrist", "2024-08-29"},
		{"Fitbit/Temperature/Device Temperature - 2024-08-29.csv", true, models.MetricTemperature, KindCSV, "device", "2024-08-29"},
		{"Fitbit/Heart Rate Variability/Daily Heart Rate Variability Summary - 2024-08(1).csv", true, models.MetricHRV, KindCSV, "", "2024-08-01"},
		{"Fitbit/Sleep Score/sleep_score.csv", true, models.MetricSleepScore, KindCSV, "", ""},
		{"Fitbit/Global Export Data/altitude-2024-08-29.json", false, "", 0, "", ""},
		{"Fitbit/Global Export Data/steps-2024-08-29.txt", false, "", 0, "", ""},
		{"Fitbit/Sleep Score/other.csv", false, "", 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, ok := Classify(tt.path)
			if ok != tt.ok {
				t.Fatalf("Classify ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if src.Metric != tt.metric {
				t.Errorf("metric = %s, want %s", src.Metric, tt.metric)
			}
			if src.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", src.Kind, tt.kind)
			}
			if src.Variant != tt.variant {
				t.Errorf("variant = %q, want %q", src.Variant, tt.variant)
			}
			if tt.day == "" {
				if src.HasDay {
					t.Errorf("expected no day, got %s", src.Day)
				}
				return
			}
			if !src.HasDay || src.Day.String() != tt.day {
				t.Errorf("day = %s (has=%v), want %s", src.Day, src.HasDay, tt.day)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		hasTime bool
	}{
		{"08/29/24 13:05:00", "2024-08-29 13:05:00", true},
		{"2024-08-29T23:12:30.000", "2024-08-29 23:12:30", true},
		{"2024-08-29T23:12:30", "2024-08-29 23:12:30", true},
		{"2024-08-29 23:12:30", "2024-08-29 23:12:30", true},
		{"2024-08-29T23:12:30-07:00", "2024-08-29 23:12:30", true},
		{"2024-08-29T06:40:00Z", "2024-08-29 06:40:00", true},
		{"2024-08-29", "2024-08-29 00:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts, hasTime, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) failed: %v", tt.in, err)
			}
			if got := ts.Format("2006-01-02 15:04:05"); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if hasTime != tt.hasTime {
				t.Errorf("hasTime = %v, want %v", hasTime, tt.hasTime)
			}
		})
	}

	if _, _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Infrared to Red Signal Ratio": "infrared_to_red_signal_ratio",
		"recorded_time":                "recorded_time",
		"dateTime":                     "date_time",
		"RMSSD":                        "rmssd",
		" overall_score ":              "overall_score",
	}
	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
