package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jfmyers9/mpvremote/internal/config"
	"github.com/spf13/cobra"
)

var configWrite bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, config file, environment
(MPVREMOTE_*) and flags are applied.

With --write the effective configuration is saved to
~/.config/mpvremote/config.yaml as a starting point for editing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("socket_path:            %s\n", cfg.SocketPath)
		fmt.Printf("connect_retries:        %d\n", cfg.ConnectRetries)
		fmt.Printf("retry_interval_ms:      %d\n", cfg.RetryIntervalMs)
		fmt.Printf("poll_interval_ms:       %d\n", cfg.PollIntervalMs)
		fmt.Printf("poll_timeout_ms:        %d\n", cfg.PollTimeoutMs)
		fmt.Printf("output_format:          %s\n", cfg.OutputFormat)
		fmt.Printf("output_width:           %d\n", cfg.OutputWidth)
		fmt.Printf("observe:                %v\n", cfg.Observe)
		fmt.Printf("listen_addr:            %s\n", cfg.ListenAddr)
		fmt.Printf("history_db:             %s\n", cfg.HistoryDB)
		fmt.Printf("history_retention_days: %d\n", cfg.HistoryRetentionDays)
		fmt.Printf("state_file:             %s\n", cfg.StateFile)
		fmt.Printf("reconnect_delay_ms:     %d\n", cfg.ReconnectDelayMs)

		if !configWrite {
			return nil
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("\n✓ Saved to %s\n", filepath.Join(config.GetConfigDir(), "config.yaml"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().BoolVar(&configWrite, "write", false, "Save the effective configuration to the config file")
}
