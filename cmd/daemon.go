package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jfmyers9/mpvremote/internal/config"
	"github.com/jfmyers9/mpvremote/internal/daemon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	daemonLogFile    string
	daemonListenAddr string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the bridge daemon",
	Long: `Run the daemon that stays connected to mpv's IPC socket.

The daemon will:
- Wait for the socket to appear and connect as soon as mpv starts
- Observe playback properties and record every played file in the history
- Keep the now-playing state in a file for fast status line queries
- Serve a websocket bridge to the socket when --listen is set
- Reconnect whenever mpv exits and comes back
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for systemd).`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonListenAddr, "listen", "", "Websocket bridge address, e.g. 127.0.0.1:7700 (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := logLevel
	if !cmd.Flags().Changed("log-level") {
		level = "info"
	}
	logger := setupLogger(daemonLogFile, level)

	logger.Info().
		Str("version", version).
		Msg("Starting mpvremote daemon")

	for _, path := range []string{cfg.HistoryDB, cfg.StateFile} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	listenAddr := cfg.ListenAddr
	if daemonListenAddr != "" {
		listenAddr = daemonListenAddr
	}

	observe := cfg.Observe
	if len(observe) == 0 {
		observe = config.DefaultObserved
	}

	daemonCfg := daemon.Config{
		IPC:              cfg.IPC(),
		Observe:          observe,
		ReconnectDelay:   time.Duration(cfg.ReconnectDelayMs) * time.Millisecond,
		StateFile:        cfg.StateFile,
		HistoryDB:        cfg.HistoryDB,
		HistoryRetention: time.Duration(cfg.HistoryRetentionDays) * 24 * time.Hour,
		ListenAddr:       listenAddr,
	}

	d, err := daemon.New(daemonCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
