// ABOUTME: CLI commands for Charm-based sync of the charm storage backend.
// ABOUTME: Supports link, unlink, status, repair, reset, and wipe operations.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/charm"
	"github.com/spf13/cobra"
)

// charmClient returns the shared Charm client for the configured host.
func charmClient() (*charm.Client, error) {
	client, err := charm.InitClient(cfg.CharmHost)
	if err != nil {
		return nil, fmt.Errorf("init charm client: %w", err)
	}
	return client, nil
}

func charmHost() string {
	if cfg.CharmHost != "" {
		return cfg.CharmHost
	}
	return charm.DefaultHost
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync stored data across devices",
	Long: `Sync stored data across devices using Charm Cloud.

Sync applies to the charm backend (backend: "charm" in the config). Data
is E2E encrypted with your SSH key before upload.

GETTING STARTED:

  1. Link your device (creates/uses SSH key automatically):
     fitlog sync link

  2. Switch the backend, or copy existing data over:
     fitlog migrate --to charm

  3. Check sync status:
     fitlog sync status

COMMANDS:

  link        Link this device to your Charm account
  unlink      Disconnect this device from Charm
  status      Show sync status and stored partitions
  repair      Repair database corruption (checkpoints WAL, removes SHM, vacuums)
  reset       Reset local data and restore from cloud (destructive)
  wipe        Delete cloud and local data (destructive)

Data syncs after each write, and once at the end of an ingest.`,
}

var syncLinkCmd = &cobra.Command{
	Use:         "link",
	Short:       "Link this device to Charm",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCmd := exec.Command("charm", "link")
		charmCmd.Env = append(os.Environ(), "CHARM_HOST="+charmHost())
		charmCmd.Stdin = os.Stdin
		charmCmd.Stdout = os.Stdout
		charmCmd.Stderr = os.Stderr

		if err := charmCmd.Run(); err != nil {
			return fmt.Errorf("failed to link: %w\n\nMake sure 'charm' CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}
		color.Green("\n✓ Device linked to Charm")

		if cfg.GetBackend() != "charm" {
			fmt.Println("Set backend to \"charm\" or run 'fitlog migrate --to charm' to start syncing.")
			return nil
		}
		client, err := charmClient()
		if err != nil {
			return err
		}
		if err := client.Sync(); err != nil {
			color.Yellow("⚠ Initial sync failed: %v", err)
		} else {
			color.Green("✓ Initial sync complete")
		}
		return nil
	},
}

var syncUnlinkCmd = &cobra.Command{
	Use:         "unlink",
	Short:       "Disconnect from Charm",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCmd := exec.Command("charm", "unlink")
		charmCmd.Env = append(os.Environ(), "CHARM_HOST="+charmHost())
		charmCmd.Stdin = os.Stdin
		charmCmd.Stdout = os.Stdout
		charmCmd.Stderr = os.Stderr

		if err := charmCmd.Run(); err != nil {
			return fmt.Errorf("failed to unlink: %w", err)
		}

		color.Green("✓ Device unlinked from Charm")
		fmt.Println("Your local data is preserved.")
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Backend:", cfg.GetBackend())
		if cfg.GetBackend() != "charm" {
			fmt.Println("Data dir:", cfg.GetDataDir())
		} else {
			client, err := charmClient()
			if err != nil {
				return err
			}
			fmt.Println("Server:", charmHost())
			id, err := client.ID()
			if err != nil {
				color.Yellow("Not linked to Charm")
				fmt.Println("\nRun 'fitlog sync link' to connect to Charm.")
			} else {
				fmt.Println("Charm ID:", id)
				color.Green("✓ Connected to Charm")
			}
			if client.IsReadOnly() {
				color.Yellow("⚠ Database is read-only (locked by another process)")
			}
		}
		fmt.Println()

		metrics, err := store.Metrics()
		if err != nil {
			return err
		}
		total := 0
		for _, m := range metrics {
			days, err := store.ListDays(m)
			if err != nil {
				return err
			}
			total += len(days)
		}
		fmt.Printf("  Metrics:    %d\n", len(metrics))
		fmt.Printf("  Partitions: %d\n", total)
		return nil
	},
}

var syncWipeCmd = &cobra.Command{
	Use:         "wipe",
	Short:       "Delete all cloud and local data",
	Annotations: map[string]string{skipStore: "true"},
	Long: `Delete all cloud backups and local data of the charm backend.

This is a DESTRUCTIVE operation. ALL synced data will be permanently deleted.
Archives and other backends are not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will PERMANENTLY DELETE all cloud backups and local synced data.")
		fmt.Print("Type 'wipe' to confirm: ")
		var answer string
		_, _ = fmt.Fscanln(stdin, &answer)
		if strings.TrimSpace(answer) != "wipe" {
			fmt.Println("Canceled.")
			return nil
		}

		result, err := kv.Wipe(charm.DBName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		color.Green("✓ Data wiped successfully")
		fmt.Printf("  Cloud backups deleted: %d\n", result.CloudBackupsDeleted)
		fmt.Printf("  Local files deleted: %d\n", result.LocalFilesDeleted)
		return nil
	},
}

var syncRepairCmd = &cobra.Command{
	Use:         "repair",
	Short:       "Repair database corruption",
	Annotations: map[string]string{skipStore: "true"},
	Long: `Repair database corruption by checkpointing WAL, removing SHM files, checking integrity, and vacuuming.

Use this when you encounter database lock errors or corruption.
Run with --force to attempt recovery even if integrity checks fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		fmt.Println("Repairing fitlog database...")
		result, err := kv.Repair(charm.DBName, force)

		if result.WalCheckpointed {
			color.Green("  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			color.Green("  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			color.Green("  ✓ Integrity check passed")
		} else {
			color.Red("  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			color.Green("  ✓ Database vacuumed")
		}

		if err != nil {
			if !force {
				color.Yellow("\nRun with --force to attempt recovery.")
			}
			return fmt.Errorf("repair failed: %w", err)
		}

		color.Green("\n✓ Repair complete")
		return nil
	},
}

var syncResetCmd = &cobra.Command{
	Use:         "reset",
	Short:       "Reset local data and restore from cloud",
	Annotations: map[string]string{skipStore: "true"},
	Long: `Delete all local synced data and restore it from Charm Cloud.

Use this to fix sync conflicts or to reset a device to the cloud state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will DELETE all local synced data and restore from cloud.")
		if !confirm("Continue?") {
			fmt.Println("Canceled.")
			return nil
		}

		client, err := charmClient()
		if err != nil {
			return err
		}
		if err := client.Reset(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.Green("✓ Local data reset and restored from cloud")
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncLinkCmd)
	syncCmd.AddCommand(syncUnlinkCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncRepairCmd)
	syncCmd.AddCommand(syncResetCmd)
	syncCmd.AddCommand(syncWipeCmd)

	syncRepairCmd.Flags().Bool("force", false, "Attempt recovery even if integrity checks fail")

	rootCmd.AddCommand(syncCmd)
}
