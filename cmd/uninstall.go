package cmd

import (
	"fmt"
	"os"

	"github.com/jfmyers9/mpvremote/internal/daemon"
	"github.com/spf13/cobra"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the mpvremote systemd user service",
	Long: `Uninstall the mpvremote daemon and stop it from running automatically.

This command will:
  - Stop and disable the running daemon (if any)
  - Remove the unit file from ~/.config/systemd/user/

The playback history is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		unitPath, err := daemon.GetUnitPath()
		if err != nil {
			return fmt.Errorf("failed to get unit path: %w", err)
		}

		if _, err := os.Stat(unitPath); os.IsNotExist(err) {
			fmt.Println("Daemon is not installed (unit file not found)")
			return nil
		}

		fmt.Println("Stopping daemon...")
		if err := systemctl("disable", "--now", daemon.UnitName); err != nil {
			fmt.Printf("Warning: failed to stop daemon: %v\n", err)
			fmt.Println("Continuing with unit removal...")
		} else {
			fmt.Println("✓ Daemon stopped")
		}

		if err := os.Remove(unitPath); err != nil {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}

		if err := systemctl("daemon-reload"); err != nil {
			fmt.Printf("Warning: failed to reload systemd: %v\n", err)
		}

		fmt.Printf("✓ Removed unit from %s\n", unitPath)
		fmt.Println("\nThe mpvremote daemon has been uninstalled successfully.")
		fmt.Println("It will no longer run automatically on login.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  mpvremote install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
