// ABOUTME: Gap report export in CSV, JSON, and YAML.
// ABOUTME: The CSV layout is data_type,gap_start,gap_end,days_missing.
package coverage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Formats lists the supported gap export formats.
var Formats = []string{"csv", "json", "yaml"}

// ExportGaps encodes gaps in the named format.
func ExportGaps(gaps []Gap, format string) ([]byte, error) {
	if gaps == nil {
		gaps = []Gap{}
	}
	switch format {
	case "csv":
		return gapsCSV(gaps)
	case "json":
		return json.MarshalIndent(gaps, "", "  ")
	case "yaml":
		rows := make([]yamlGap, len(gaps))
		for i, g := range gaps {
			rows[i] = yamlGap{
				DataType:    string(g.Metric),
				GapStart:    g.First.String(),
				GapEnd:      g.Last.String(),
				DaysMissing: g.Length,
			}
		}
		return yaml.Marshal(rows)
	default:
		return nil, fmt.Errorf("unknown format: %s (use csv, json, or yaml)", format)
	}
}

type yamlGap struct {
	DataType    string `yaml:"data_type"`
	GapStart    string `yaml:"gap_start"`
	GapEnd      string `yaml:"gap_end"`
	DaysMissing int    `yaml:"days_missing"`
}

func gapsCSV(gaps []Gap) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"data_type", "gap_start", "gap_end", "days_missing"}); err != nil {
		return nil, err
	}
	for _, g := range gaps {
		if err := w.Write([]string{string(g.Metric), g.First.String(), g.Last.String(), strconv.Itoa(g.Length)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
