// ABOUTME: Sync subcommand for Charm cloud integration.
// ABOUTME: Provides status, now, link, unlink, repair, reset and wipe.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	charmkv "github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harper/eureka/internal/charm"
	"github.com/harper/eureka/internal/config"
	"github.com/spf13/cobra"
)

var errLocalBackend = errors.New("the local backend does not sync; set backend to \"charm\" in " + config.ConfigPath())

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage Charm cloud sync",
	Long: `Sync your notes to the Charm cloud.

Charm uses SSH key authentication - no passwords needed.
Data syncs automatically after each change.

Commands:
  status  - Show sync configuration and connection status
  now     - Sync immediately
  link    - Connect this device to Charm cloud
  unlink  - Disconnect from Charm cloud
  repair  - Repair database corruption issues
  reset   - Reset local sync data (keeps cloud data)
  wipe    - Delete all synced data and start fresh`,
	Annotations: map[string]string{annotationNoStore: "true"},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Eureka Sync Status")
		fmt.Println(strings.Repeat("-", 40))

		fmt.Printf("Config:    %s\n", config.ConfigPath())
		fmt.Printf("Backend:   %s\n", cfg.Backend)
		if cfg.Backend == config.BackendLocal {
			fmt.Printf("Database:  %s\n", cfg.LocalDBPath())
			fmt.Printf("Status:    %s\n", color.YellowString("local only"))
			return nil
		}

		if cfg.CharmHost != "" {
			fmt.Printf("Host:      %s\n", cfg.CharmHost)
		} else {
			fmt.Printf("Host:      %s\n", color.New(color.Faint).Sprint("(default: cloud.charm.sh)"))
		}
		if cfg.AutoSync {
			fmt.Printf("Auto-sync: %s\n", color.GreenString("enabled"))
		} else {
			fmt.Printf("Auto-sync: %s\n", color.YellowString("disabled"))
		}
		if last := charmClient.LastSyncTime(); !last.IsZero() {
			fmt.Printf("Last sync: %s\n", last.Local().Format("2006-01-02 15:04:05"))
		}

		user, err := charmClient.User()
		fmt.Println()
		if err == nil && user != nil {
			fmt.Printf("User ID:   %s\n", user.CharmID)
			fmt.Printf("Name:      %s\n", valueOrNone(user.Name))
			fmt.Printf("Status:    %s\n", color.GreenString("connected"))
		} else {
			fmt.Printf("Status:    %s\n", color.YellowString("not linked"))
			fmt.Println("\nRun 'eureka sync link' to connect to Charm cloud.")
		}
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Sync with Charm cloud immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		if charmClient == nil {
			return errLocalBackend
		}
		if err := charmClient.Sync(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		color.Green("✓ Synced")
		return nil
	},
}

var syncLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Connect to Charm cloud",
	Long: `Link this device to Charm cloud for sync.

Charm uses SSH key authentication. On first link, you'll see
a code to verify on another device, or you can create a new account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")

		if host != "" {
			cfg.CharmHost = host
		}
		cfg.Backend = config.BackendCharm

		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		client, err := charm.NewClient(cfg, charm.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("init charm client: %w", err)
		}
		if err := client.Link(); err != nil {
			return fmt.Errorf("link failed: %w", err)
		}

		user, err := client.User()
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		color.Green("\n✓ Linked to Charm cloud")
		fmt.Printf("  User ID: %s\n", user.CharmID)
		if user.Name != "" {
			fmt.Printf("  Name:    %s\n", user.Name)
		}
		fmt.Println("\nYour notes will now sync automatically.")
		return nil
	},
}

var syncUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Disconnect from Charm cloud",
	Long: `Unlink this device from Charm cloud.

This clears the local copy of synced notes. Cloud data is kept and comes
back when you link again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if charmClient == nil {
			fmt.Println("Not linked to Charm cloud.")
			return nil
		}

		fmt.Println("This will disconnect this device from Charm cloud.")
		if !confirmWord("unlink") {
			fmt.Println("Aborted.")
			return nil
		}

		if err := charmClient.Unlink(); err != nil {
			return fmt.Errorf("unlink failed: %w", err)
		}

		color.Green("\n✓ Unlinked from Charm cloud")
		fmt.Println("Run 'eureka sync link' to reconnect.")
		return nil
	},
}

var syncRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair database corruption issues",
	Long: `Repair the local KV database if it's corrupted.

Use --force to attempt repair even if integrity check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		fmt.Println("Repairing database...")
		result, err := charmkv.Repair(charm.DBName, force)
		if err != nil {
			return fmt.Errorf("repair failed: %w", err)
		}

		fmt.Println("\nRepair Results:")
		if result.WalCheckpointed {
			fmt.Println("  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			fmt.Println("  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			color.Green("  ✓ Integrity check passed")
		} else {
			color.Red("  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			fmt.Println("  ✓ Database vacuumed")
		}

		if !result.IntegrityOK {
			color.Yellow("\n⚠ Repair completed but integrity issues remain")
			fmt.Println("Consider running 'eureka sync reset' or 'eureka sync wipe'")
		}
		return nil
	},
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset local sync data",
	Long: `Reset the local KV database while keeping cloud data intact.

Your cloud data is preserved and re-synced on the next command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will reset local sync data.")
		if !confirm("\nContinue? [y/N]: ") {
			fmt.Println("Aborted.")
			return nil
		}

		if err := charmkv.Reset(charm.DBName); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.Green("✓ Local sync data reset")
		return nil
	},
}

var syncWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Wipe all sync data and start fresh",
	Long:  `Delete all synced notes from Charm cloud and the local KV store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will DELETE all sync data:")
		fmt.Println("  - All notes in Charm cloud")
		fmt.Println("  - Local KV database")
		fmt.Println()
		color.Yellow("This cannot be undone!")
		if !confirmWord("wipe") {
			fmt.Println("Aborted.")
			return nil
		}

		result, err := charmkv.Wipe(charm.DBName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		fmt.Println("\nWipe Results:")
		if result.CloudBackupsDeleted > 0 {
			fmt.Printf("  ✓ Deleted %d cloud backups\n", result.CloudBackupsDeleted)
		}
		if result.LocalFilesDeleted > 0 {
			fmt.Printf("  ✓ Deleted %d local files\n", result.LocalFilesDeleted)
		}
		color.Green("\n✓ All sync data wiped")
		return nil
	},
}

func init() {
	syncLinkCmd.Flags().String("host", "", "Charm server host (default: cloud.charm.sh)")
	syncRepairCmd.Flags().Bool("force", false, "Force repair even if integrity check fails")

	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncLinkCmd)
	syncCmd.AddCommand(syncUnlinkCmd)
	syncCmd.AddCommand(syncRepairCmd)
	syncCmd.AddCommand(syncResetCmd)
	syncCmd.AddCommand(syncWipeCmd)

	rootCmd.AddCommand(syncCmd)
}

// confirmWord asks the user to type word to continue.
func confirmWord(word string) bool {
	fmt.Printf("\nType '%s' to confirm: ", word)
	reader := bufio.NewReader(os.Stdin)
	confirmation, _ := reader.ReadString('\n')
	return strings.TrimSpace(confirmation) == word
}

// valueOrNone returns "(not set)" if the string is empty.
func valueOrNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
