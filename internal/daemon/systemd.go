package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// UnitName is the systemd user unit the daemon is installed as
const UnitName = "mpvremote.service"

const unitTemplate = `[Unit]
Description=mpvremote bridge for the mpv IPC socket
After=default.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} daemon
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=5
StandardOutput=append:{{.LogPath}}/mpvremote.log
StandardError=append:{{.LogPath}}/mpvremote.err
{{- range $key, $value := .Environment}}
Environment={{$key}}={{$value}}
{{- end}}

[Install]
WantedBy=default.target
`

// UnitConfig holds the configuration for generating a systemd user unit
type UnitConfig struct {
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
	Environment      map[string]string
}

// GenerateUnit generates a systemd unit file from the template
func GenerateUnit(config UnitConfig) (string, error) {
	if config.BinaryPath == "" {
		return "", fmt.Errorf("binary path is required")
	}

	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

// GetUnitPath returns the path where the unit should be installed
func GetUnitPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "systemd", "user", UnitName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".config", "systemd", "user", UnitName), nil
}

// GetDefaultLogPath returns the default path for daemon logs
func GetDefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "mpvremote", "logs"), nil
}
