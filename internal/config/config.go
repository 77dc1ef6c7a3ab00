package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Path of mpv's --input-ipc-server socket
	SocketPath string

	// Connection tuning
	ConnectRetries  int
	RetryIntervalMs int
	PollIntervalMs  int
	PollTimeoutMs   int

	// Output format template for the now command
	// Default: "{{.Title}}"
	OutputFormat string

	// Fixed output width for the now command (0 = disabled)
	OutputWidth int

	// Properties the daemon observes
	Observe []string

	// Address of the websocket bridge (empty = disabled)
	ListenAddr string

	// Path of the playback history database
	HistoryDB string

	// Days of history the daemon keeps (0 = forever)
	HistoryRetentionDays int

	// Path of the daemon's now-playing state file
	StateFile string

	// Pause between the daemon's reconnect attempts
	ReconnectDelayMs int
}

// DefaultObserved lists the properties observed when none are configured
var DefaultObserved = []string{
	"pause",
	"time-pos",
	"duration",
	"media-title",
	"path",
	"volume",
	"idle-active",
	"metadata",
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetDefault("socket_path", filepath.Join(os.TempDir(), "mpvsocket"))
	v.SetDefault("connect_retries", 10)
	v.SetDefault("retry_interval_ms", 50)
	v.SetDefault("poll_interval_ms", 50)
	v.SetDefault("poll_timeout_ms", 10)
	v.SetDefault("output_format", "{{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("observe", DefaultObserved)
	v.SetDefault("listen_addr", "")
	v.SetDefault("history_db", filepath.Join(dataDir(), "history.db"))
	v.SetDefault("history_retention_days", 90)
	v.SetDefault("state_file", filepath.Join(dataDir(), "state.json"))
	v.SetDefault("reconnect_delay_ms", 2000)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	v.SetEnvPrefix("MPVREMOTE")
	v.AutomaticEnv()

	cfg := &Config{
		SocketPath:      v.GetString("socket_path"),
		ConnectRetries:  v.GetInt("connect_retries"),
		RetryIntervalMs: v.GetInt("retry_interval_ms"),
		PollIntervalMs:  v.GetInt("poll_interval_ms"),
		PollTimeoutMs:   v.GetInt("poll_timeout_ms"),
		OutputFormat:    v.GetString("output_format"),
		OutputWidth:     v.GetInt("output_width"),
		Observe:         v.GetStringSlice("observe"),
		ListenAddr:      v.GetString("listen_addr"),
		HistoryDB:       v.GetString("history_db"),

		HistoryRetentionDays: v.GetInt("history_retention_days"),
		StateFile:            v.GetString("state_file"),
		ReconnectDelayMs:     v.GetInt("reconnect_delay_ms"),
	}

	return cfg, nil
}

// IPC converts the connection settings into an ipc.Config
func (c *Config) IPC() ipc.Config {
	return ipc.Config{
		SocketPath:    c.SocketPath,
		Retries:       c.ConnectRetries,
		RetryInterval: time.Duration(c.RetryIntervalMs) * time.Millisecond,
		PollInterval:  time.Duration(c.PollIntervalMs) * time.Millisecond,
		PollTimeout:   time.Duration(c.PollTimeoutMs) * time.Millisecond,
		DialTimeout:   time.Second,
	}
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "mpvremote")
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// dataDir returns the directory for state and history
func dataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "mpvremote")
}

// GetDataDir returns the data directory path (public helper)
func GetDataDir() string {
	return dataDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configFile := filepath.Join(getConfigDir(), "config.yaml")

	v.Set("socket_path", c.SocketPath)
	v.Set("connect_retries", c.ConnectRetries)
	v.Set("retry_interval_ms", c.RetryIntervalMs)
	v.Set("poll_interval_ms", c.PollIntervalMs)
	v.Set("poll_timeout_ms", c.PollTimeoutMs)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("observe", c.Observe)
	v.Set("listen_addr", c.ListenAddr)
	v.Set("history_db", c.HistoryDB)
	v.Set("history_retention_days", c.HistoryRetentionDays)
	v.Set("state_file", c.StateFile)
	v.Set("reconnect_delay_ms", c.ReconnectDelayMs)

	return v.WriteConfigAs(configFile)
}
