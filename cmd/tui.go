package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jfmyers9/mpvremote/internal/history"
	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/jfmyers9/mpvremote/internal/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Display a terminal UI remote control",
	Long: `Display a terminal-based remote control for mpv with real-time updates.

The TUI includes:
- Now playing display with title, artist and album
- Progress bar showing playback position
- Connection status, including connection problems
- Recently played files

Keys:
  space  play/pause        n/p  next/previous
  +/-    volume            ←/→  seek 5 seconds
  c      connect/disconnect
  q      quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tuiCfg := tui.DefaultConfig()
	tuiCfg.Observe = cfg.Observe

	app := tui.NewWithConfig(tuiCfg)

	// Logs would corrupt the screen; problems go to the connection panel.
	client := ipc.New(cfg.IPC(), zerolog.Nop(), ipc.WithNotifier(app))
	app.Attach(client)
	defer client.Disconnect(nil)

	if store, err := history.Open(cfg.HistoryDB); err == nil {
		seedCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = app.SeedRecent(seedCtx, store)
		cancel()
		_ = store.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed first connect is shown in the UI; 'c' retries.
	go func() {
		_ = app.Connect(ctx)
	}()

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
