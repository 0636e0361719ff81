// ABOUTME: Recognizes archive file paths and maps them to metric, payload kind, and variant.
// ABOUTME: Unrecognized files are reported as not ok so callers can skip them.
package normalize

import (
	"path"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

// Source describes what an archive file contains.
type Source struct {
	Metric  models.MetricType
	Kind    Kind
	Variant string
	Day     models.Day
	HasDay  bool
}

var jsonPrefixes = []struct {
	prefix string
	metric models.MetricType
	kind   Kind
}{
	{"calories-", models.MetricCalories, KindArchiveJSON},
	{"steps-", models.MetricSteps, KindArchiveJSON},
	{"distance-", models.MetricDistance, KindArchiveJSON},
	{"heart_rate-", models.MetricHeartRate, KindArchiveJSON},
	{"sleep-", models.MetricSleep, KindSleepJSON},
}

// Classify maps a slash-separated archive path to its Source.
func Classify(p string) (Source, bool) {
	p = strings.ReplaceAll(p, "\\", "/")
	name := path.Base(p)
	dir := path.Base(path.Dir(p))
	ext := strings.ToLower(path.Ext(name))

	var src Source
	switch {
	case ext == ".json":
		matched := false
		for _, jp := range jsonPrefixes {
			if strings.HasPrefix(name, jp.prefix) {
				src.Metric, src.Kind = jp.metric, jp.kind
				matched = true
				break
			}
		}
		if !matched {
			return Source{}, false
		}

	case ext != ".csv":
		return Source{}, false

	case strings.HasPrefix(name, "estimated_oxygen_variation-"):
		src.Metric, src.Kind = models.MetricSpO2, KindCSV

	case dir == "Temperature" || strings.Contains(name, "Temperature"):
		src.Metric, src.Kind = models.MetricTemperature, KindCSV
		src.Variant = "device"
		if strings.HasPrefix(name, "Wrist") {
			src.Variant = "wrist"
		}

	case dir == "Heart Rate Variability":
		src.Metric, src.Kind = models.MetricHRV, KindCSV

	case dir == "Sleep Score" && name == "sleep_score.csv":
		src.Metric, src.Kind = models.MetricSleepScore, KindCSV

	default:
		return Source{}, false
	}

	src.Day, src.HasDay = DateFromName(name)
	return src, true
}

// Unit builds a normalizer unit for the classified file.
func (s Source) Unit(name string, data []byte) Unit {
	return Unit{
		Kind:    s.Kind,
		Metric:  s.Metric,
		Name:    name,
		Data:    data,
		Day:     s.Day,
		HasDay:  s.HasDay,
		Variant: s.Variant,
	}
}
