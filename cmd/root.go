/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	socketPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mpvremote",
	Short: "Remote control and bridge for mpv's JSON IPC socket",
	Long: `mpvremote talks to a running mpv through its JSON IPC socket
(mpv --input-ipc-server=/path/to/socket).

It can control playback from the command line, show what is playing
(useful for tmux status lines or other status bars), run an interactive
command shell or a terminal UI, and run as a background daemon that keeps
a playback history and bridges the socket to websocket clients.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "", "mpv IPC socket path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
