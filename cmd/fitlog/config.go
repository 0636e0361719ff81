// ABOUTME: CLI commands for inspecting and creating the config file.
// ABOUTME: Secrets are masked when the config is printed.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/config"
	"github.com/spf13/cobra"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the config file",
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective config",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.ClientSecret != "" {
			shown.ClientSecret = "********"
		}
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println("# " + activeConfigPath())
		fmt.Println(string(data))
		fmt.Println()
		fmt.Printf("backend:     %s\n", cfg.GetBackend())
		fmt.Printf("data dir:    %s\n", cfg.GetDataDir())
		fmt.Printf("staging dir: %s\n", cfg.GetStagingDir())
		fmt.Printf("token file:  %s\n", cfg.GetTokenFile())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default filled in",
	Annotations: map[string]string{
		skipStore:  "true",
		skipConfig: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := activeConfigPath()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.Default().SaveTo(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		color.Green("✓ Wrote %s", path)
		fmt.Println("Set client_id, client_secret, and token_file before running 'fitlog update'.")
		return nil
	},
}

func activeConfigPath() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.GetConfigPath()
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
