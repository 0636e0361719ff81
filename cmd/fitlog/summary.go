// ABOUTME: CLI command for the health summary over a day range.
// ABOUTME: Prints heart rate, sleep, steps, and calories figures from stored data.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/view"
	"github.com/spf13/cobra"
)

var (
	summaryStart string
	summaryEnd   string
	summaryJSON  bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a health summary",
	Long: `Summarize heart rate, sleep, steps, and calories over a day range.

The range defaults to the last seven days of stored data. Resting heart
rate is the 10th percentile of all heart rate readings in the range. Sleep
figures use the main sleep session of each night.

EXAMPLES:

  fitlog summary
  fitlog summary --start 2024-08-01 --end 2024-08-31
  fitlog summary --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := view.StateFrom(store, nil, models.Today(), summaryStart, summaryEnd, "")
		if err != nil {
			return err
		}
		s, err := view.Summarize(store, state.Start, state.End)
		if err != nil {
			return err
		}

		if summaryJSON {
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Summary %s to %s\n\n", s.Start, s.End)
		fmt.Printf("  Heart rate     avg %s  resting %s  max %s bpm\n",
			formatOptional(s.AvgHeartRate, "%.0f"), formatOptional(s.RestingHeartRate, "%.0f"), formatOptional(s.MaxHeartRate, "%.0f"))
		fmt.Printf("  Sleep          %s h/night  efficiency %s%%\n",
			formatOptional(s.AvgSleepHours, "%.1f"), formatOptional(s.AvgSleepEfficiency, "%.0f"))
		fmt.Printf("  Steps          %s/day  total %s\n",
			formatOptional(s.AvgDailySteps, "%.0f"), formatOptional(s.TotalSteps, "%.0f"))
		fmt.Printf("  Calories       %s/day  total %s\n",
			formatOptional(s.AvgDailyCalories, "%.0f"), formatOptional(s.TotalCalories, "%.0f"))
		if s.Skipped > 0 {
			color.Yellow("\n⚠ %d unreadable partitions were left out", s.Skipped)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryStart, "start", "", "first day (YYYY-MM-DD)")
	summaryCmd.Flags().StringVar(&summaryEnd, "end", "", "last day (YYYY-MM-DD)")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print JSON")
	rootCmd.AddCommand(summaryCmd)
}
