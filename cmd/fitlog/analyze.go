// ABOUTME: CLI command for coverage analysis and gap export.
// ABOUTME: Prints per-metric spans and gaps; optionally writes the gaps report to a file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/spf13/cobra"
)

const maxGapsShown = 20

var (
	analyzeTypes      []string
	analyzeExportGaps string
	analyzeFormat     string
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze",
	Aliases: []string{"coverage"},
	Short:   "Show data coverage and gaps",
	Long: `Analyze which days are stored for each metric.

For every metric this shows the first and last covered day, the number of
covered days, and the gaps: runs of missing days inside the covered span.
Days before the first or after the last covered day are not gaps.

EXPORT:

  --export-gaps FILE writes every gap as data_type, gap_start, gap_end,
  days_missing. The format follows --format, or the file extension
  (.csv, .json, .yaml) when --format is not given.

EXAMPLES:

  fitlog analyze
  fitlog analyze --type heart_rate --type sleep
  fitlog analyze --export-gaps gaps.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics, err := selectedMetrics(analyzeTypes)
		if err != nil {
			return err
		}
		reports, err := coverage.NewAnalyzer(store).AnalyzeAll(metrics)
		if err != nil {
			return fmt.Errorf("failed to analyze coverage: %w", err)
		}
		if len(reports) == 0 {
			fmt.Println("No data stored yet. Run 'fitlog ingest' first.")
			return nil
		}

		printCoverage(reports)

		if analyzeExportGaps != "" {
			format := analyzeFormat
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(analyzeExportGaps), ".")
			}
			gaps := coverage.AllGaps(reports)
			data, err := coverage.ExportGaps(gaps, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(analyzeExportGaps, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported %d gaps to %s", len(gaps), analyzeExportGaps)
		}
		return nil
	},
}

// selectedMetrics parses --type values, or lists every stored metric.
func selectedMetrics(names []string) ([]models.MetricType, error) {
	if len(names) > 0 {
		return models.ParseMetricTypes(names)
	}
	return store.Metrics()
}

func printCoverage(reports map[models.MetricType]coverage.Report) {
	metrics := make([]models.MetricType, 0, len(reports))
	for m := range reports {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	fmt.Printf("%s %s %s %s %s %s\n",
		padRight("METRIC", 18), padRight("DAYS", 6), padRight("FIRST", 11), padRight("LAST", 11), padRight("GAPS", 5), "MISSING")
	for _, m := range metrics {
		r := reports[m]
		first, last := "-", "-"
		if r.Span != nil {
			first, last = r.Span.First.String(), r.Span.Last.String()
		}
		fmt.Printf("%s %s %s %s %s %d\n",
			padRight(string(m), 18),
			padRight(fmt.Sprint(r.Days()), 6),
			padRight(first, 11),
			padRight(last, 11),
			padRight(fmt.Sprint(len(r.Gaps)), 5),
			r.MissingDays())
	}

	if span := coverage.OverallSpan(reports); span != nil {
		fmt.Printf("\nOverall: %s to %s (%d days)\n", span.First, span.Last, span.Days())
	}

	gaps := coverage.AllGaps(reports)
	if len(gaps) == 0 {
		color.Green("✓ No gaps")
		return
	}
	fmt.Println("\nGaps:")
	for i, g := range gaps {
		if i == maxGapsShown {
			fmt.Printf("  ... and %d more (use --export-gaps for the full list)\n", len(gaps)-maxGapsShown)
			break
		}
		fmt.Printf("  %s %s to %s (%d days)\n", padRight(string(g.Metric), 18), g.First, g.Last, g.Length)
	}
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeTypes, "type", "t", nil, "metric types to analyze (default: all stored)")
	analyzeCmd.Flags().StringVar(&analyzeExportGaps, "export-gaps", "", "write the gaps report to FILE")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "gaps report format: csv, json, or yaml")
	rootCmd.AddCommand(analyzeCmd)
}
