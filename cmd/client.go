package cmd

import (
	"context"
	"fmt"

	"github.com/jfmyers9/mpvremote/internal/config"
	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/jfmyers9/mpvremote/internal/player"
)

// loadConfig loads the configuration and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	return cfg, nil
}

// connectPlayer loads configuration and connects to mpv. The caller must
// disconnect the returned client.
func connectPlayer(ctx context.Context, opts ...ipc.Option) (*ipc.Client, *player.IPCController, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := setupLogger("", logLevel)
	client := ipc.New(cfg.IPC(), logger, opts...)
	if err := client.Connect(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mpv at %s: %w", cfg.SocketPath, err)
	}

	return client, player.NewIPCController(client), nil
}

// quietNotifier drops notices; commands report the returned error instead
type quietNotifier struct{}

func (quietNotifier) Notify(string) {}

// withPlayer connects, runs fn and disconnects
func withPlayer(ctx context.Context, fn func(ctx context.Context, c *player.IPCController) error) error {
	client, controller, err := connectPlayer(ctx, ipc.WithNotifier(quietNotifier{}))
	if err != nil {
		return err
	}
	defer client.Disconnect(nil)

	return fn(ctx, controller)
}
