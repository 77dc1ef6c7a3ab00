package ipc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForSocket blocks until a socket exists at path or ctx is done. mpv
// creates the socket when it starts, so this is how a caller waits for a
// player that has not been launched yet.
func WaitForSocket(ctx context.Context, path string) error {
	if path == "" {
		return ErrNotConfigured
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Check after the watch is in place so a socket created in between is not missed.
	if err := checkEndpoint(path); err == nil {
		return nil
	} else if !errors.Is(err, ErrEndpointMissing) {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) || !ev.Has(fsnotify.Create) {
				continue
			}
			if checkEndpoint(path) == nil {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}
