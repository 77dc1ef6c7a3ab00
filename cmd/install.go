package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jfmyers9/mpvremote/internal/daemon"
	"github.com/spf13/cobra"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the mpvremote daemon as a systemd user service",
	Long: `Install the mpvremote daemon as a systemd user service that runs automatically on login.

This command will:
  - Generate a systemd unit for the mpvremote daemon
  - Install it to ~/.config/systemd/user/
  - Enable and start it with systemctl --user

The daemon waits for mpv's socket, records playback history and
reconnects whenever mpv is restarted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		logPath, err := daemon.GetDefaultLogPath()
		if err != nil {
			return fmt.Errorf("failed to get log path: %w", err)
		}

		if err := os.MkdirAll(logPath, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Carry a --socket override into the service
		env := map[string]string{}
		if socketPath != "" {
			env["MPVREMOTE_SOCKET_PATH"] = socketPath
		}

		unitContent, err := daemon.GenerateUnit(daemon.UnitConfig{
			BinaryPath:       binaryPath,
			LogPath:          logPath,
			WorkingDirectory: home,
			Environment:      env,
		})
		if err != nil {
			return fmt.Errorf("failed to generate unit: %w", err)
		}

		unitPath, err := daemon.GetUnitPath()
		if err != nil {
			return fmt.Errorf("failed to get unit path: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
			return fmt.Errorf("failed to create systemd user directory: %w", err)
		}

		if _, err := os.Stat(unitPath); err == nil {
			fmt.Println("Daemon is already installed. Stopping it first...")
			if err := systemctl("stop", daemon.UnitName); err != nil {
				fmt.Printf("Warning: failed to stop existing daemon: %v\n", err)
			}
		}

		if err := os.WriteFile(unitPath, []byte(unitContent), 0644); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}

		fmt.Printf("✓ Installed unit to %s\n", unitPath)

		if err := systemctl("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}
		if err := systemctl("enable", "--now", daemon.UnitName); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}

		fmt.Println("✓ Daemon enabled and started successfully")
		fmt.Printf("✓ Logs will be written to %s\n", logPath)
		fmt.Println("\nThe mpvremote daemon is now running and will start automatically on login.")
		fmt.Println("\nYou can check the daemon status with:")
		fmt.Printf("  systemctl --user status %s\n", daemon.UnitName)
		fmt.Println("\nTo uninstall, run:")
		fmt.Println("  mpvremote uninstall")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

// systemctl runs systemctl against the user service manager
func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("systemctl %s failed: %s", strings.Join(args, " "), msg)
		}
		return fmt.Errorf("failed to run systemctl: %w", err)
	}
	return nil
}
