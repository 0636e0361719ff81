// ABOUTME: CLI command for viewing one metric as day rows or an aggregated series.
// ABOUTME: Wraps the view layer used by the HTTP API and MCP tools.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/harperreed/fitlog/internal/view"
	"github.com/spf13/cobra"
)

var (
	showStart  string
	showEnd    string
	showBucket string
)

var showCmd = &cobra.Command{
	Use:   "show <metric> [day]",
	Short: "Show a day table or a series for one metric",
	Long: `Show stored data for one metric.

With a day, every row of that day is printed. Without one, the metric is
aggregated into daily, weekly, or monthly buckets over a range. The range
defaults to the last seven days of stored data.

Steps, distance, and calories are summed per day. Sleep uses hours of the
main sleep session. Everything else is averaged.

EXAMPLES:

  fitlog show heart_rate 2024-08-29
  fitlog show steps --bucket weekly --start 2024-06-01 --end 2024-08-31
  fitlog show sleep`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		metric := models.MetricType(args[0])
		if !models.IsValidMetricType(args[0]) {
			return &models.UnknownMetricError{Name: args[0]}
		}

		if len(args) == 2 {
			day, err := models.ParseDay(args[1])
			if err != nil {
				return fmt.Errorf("invalid day: %s (use YYYY-MM-DD)", args[1])
			}
			table, err := store.Read(metric, day)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Printf("No %s data for %s\n", metric, day)
				return nil
			}
			if err != nil {
				return err
			}
			printTable(table)
			return nil
		}

		state, err := view.StateFrom(store, []models.MetricType{metric}, models.Today(), showStart, showEnd, showBucket)
		if err != nil {
			return err
		}
		series, err := view.BuildSeries(store, metric, state)
		if err != nil {
			return err
		}
		printSeries(series, state)
		if len(series.SkippedDays) > 0 {
			color.Yellow("⚠ Unreadable partitions skipped: %v", series.SkippedDays)
		}
		return nil
	},
}

func printTable(t *models.DayTable) {
	fmt.Printf("%s %s (%d rows, %s)\n\n", t.Metric, t.Day, t.Len(), t.Metric.Unit())
	attrs := t.AttrNames()
	variants := false
	for _, v := range t.Variants() {
		if v != "" {
			variants = true
		}
	}

	header := padRight("TIME", 20) + " " + padRight("VALUE", 10)
	if variants {
		header += " " + padRight("VARIANT", 10)
	}
	for _, a := range attrs {
		header += " " + padRight(strings.ToUpper(a), 12)
	}
	fmt.Println(header)

	for _, r := range t.Rows {
		ts := "-"
		if r.HasTime {
			ts = r.Timestamp.Format("2006-01-02 15:04:05")
		}
		line := padRight(ts, 20) + " " + padRight(fmt.Sprintf("%g", r.Value), 10)
		if variants {
			line += " " + padRight(truncate(r.Variant, 10), 10)
		}
		for _, a := range attrs {
			v := "-"
			if x, ok := r.Attr(a); ok {
				v = fmt.Sprintf("%g", x)
			}
			line += " " + padRight(v, 12)
		}
		if r.Sleep != nil {
			line += fmt.Sprintf(" %s %.1fh", r.Sleep.Classification, r.Sleep.HoursAsleep())
		}
		fmt.Println(line)
	}
}

func printSeries(s *view.Series, state view.ViewState) {
	fmt.Printf("%s %s to %s, %s %s (%s)\n\n", s.Metric, state.Start, state.End, s.Bucket, s.Aggregation, s.Unit)
	if len(s.Points) == 0 {
		fmt.Println("No data in range.")
		return
	}
	fmt.Printf("%s %s %s %s %s\n", padRight("PERIOD", 12), padRight("DAYS", 5), padRight("VALUE", 10), padRight("MIN", 8), "MAX")
	for _, p := range s.Points {
		fmt.Printf("%s %s %s %s %s\n",
			padRight(p.Period, 12),
			padRight(fmt.Sprint(p.Days), 5),
			padRight(fmt.Sprintf("%.1f", p.Value), 10),
			padRight(formatOptional(p.Min, "%.0f"), 8),
			formatOptional(p.Max, "%.0f"))
	}
}

func init() {
	showCmd.Flags().StringVar(&showStart, "start", "", "first day (YYYY-MM-DD)")
	showCmd.Flags().StringVar(&showEnd, "end", "", "last day (YYYY-MM-DD)")
	showCmd.Flags().StringVar(&showBucket, "bucket", "daily", "daily, weekly, or monthly")
	rootCmd.AddCommand(showCmd)
}
