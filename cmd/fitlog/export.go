// ABOUTME: CLI commands for exporting and importing stored day tables.
// ABOUTME: Supports JSON, YAML, and Markdown export formats and JSON restore.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportTypes  []string
	exportStart  string
	exportEnd    string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export stored data",
	Long: `Export stored day tables in various formats.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export (human-readable)
  markdown   One table per metric with daily row counts and value ranges

OPTIONS:

  --output, -o   Write to file instead of stdout
  --type, -t     Only these metric types (repeatable)
  --start        First day to include (YYYY-MM-DD)
  --end          Last day to include (YYYY-MM-DD)

EXAMPLES:

  fitlog export json -o backup.json
  fitlog export yaml --type sleep
  fitlog export markdown --start 2024-08-01`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := exportFilter()
		if err != nil {
			return err
		}

		var data []byte
		switch args[0] {
		case "json":
			data, err = storage.ExportJSON(store, filter)
		case "yaml":
			data, err = storage.ExportYAML(store, filter)
		case "markdown":
			var md string
			md, err = storage.ExportMarkdown(store, filter)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}
		return nil
	},
}

func exportFilter() (storage.ExportFilter, error) {
	var f storage.ExportFilter
	var err error
	if len(exportTypes) > 0 {
		if f.Metrics, err = models.ParseMetricTypes(exportTypes); err != nil {
			return f, err
		}
	}
	if f.Start, err = parseDayFlag("start", exportStart); err != nil {
		return f, err
	}
	if f.End, err = parseDayFlag("end", exportEnd); err != nil {
		return f, err
	}
	return f, nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import day tables from a JSON export",
	Long: `Import day tables from a previously exported JSON file.

Each imported table replaces the stored table for the same metric and day,
so importing the same file twice leaves the store unchanged.

EXAMPLES:

  fitlog import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if err := storage.ImportJSON(store, data); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported from %s", filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringSliceVarP(&exportTypes, "type", "t", nil, "only these metric types")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "first day to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last day to include (YYYY-MM-DD)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
