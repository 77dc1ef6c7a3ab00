package player

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfmyers9/mpvremote/internal/ipc"
)

// MaxVolume is the highest volume accepted by SetVolume
const MaxVolume = 130

// IPCController implements the Controller interface over mpv's JSON IPC socket
type IPCController struct {
	client *ipc.Client
}

// NewIPCController creates a Controller that sends commands through client.
// The client must be connected for commands to succeed.
func NewIPCController(client *ipc.Client) *IPCController {
	return &IPCController{client: client}
}

// IsRunning checks if the mpv socket is connected and answering
func (c *IPCController) IsRunning(ctx context.Context) (bool, error) {
	if !c.client.IsConnected() {
		return false, nil
	}
	if _, err := c.client.Call(ctx, "get_property", "mpv-version"); err != nil {
		if errors.Is(err, ipc.ErrNotConnected) || ipc.IsLost(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query mpv: %w", err)
	}
	return true, nil
}

// GetCurrentTrack queries the loaded file's properties
func (c *IPCController) GetCurrentTrack(ctx context.Context) (*Track, error) {
	idle, err := c.getProperty(ctx, "idle-active")
	if err != nil {
		return nil, err
	}
	if b, _ := idle.(bool); b {
		return nil, nil
	}

	var t Track
	apply := func(name string) error {
		v, err := c.getProperty(ctx, name)
		if err != nil {
			var cmdErr *ipc.CommandError
			// Unavailable properties (duration of a stream) are left empty.
			if errors.As(err, &cmdErr) {
				return nil
			}
			return err
		}
		applyProperty(&t, name, v)
		return nil
	}

	for _, name := range []string{"pause", "path", "media-title", "metadata", "duration", "time-pos", "volume"} {
		if err := apply(name); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// GetProperty returns the raw value of a property
func (c *IPCController) GetProperty(ctx context.Context, name string) (any, error) {
	return c.getProperty(ctx, name)
}

func (c *IPCController) getProperty(ctx context.Context, name string) (any, error) {
	resp, err := c.client.Call(ctx, "get_property", name)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	return resp.Data, nil
}

// command sends a command and waits for mpv to acknowledge it
func (c *IPCController) command(ctx context.Context, parts ...any) error {
	if _, err := c.client.Call(ctx, parts...); err != nil {
		return fmt.Errorf("%s: %w", parts[0], err)
	}
	return nil
}

// Play resumes playback
func (c *IPCController) Play(ctx context.Context) error {
	return c.command(ctx, "set_property", "pause", false)
}

// Pause pauses playback
func (c *IPCController) Pause(ctx context.Context) error {
	return c.command(ctx, "set_property", "pause", true)
}

// PlayPause toggles between play and pause
func (c *IPCController) PlayPause(ctx context.Context) error {
	return c.command(ctx, "cycle", "pause")
}

// NextTrack skips to the next playlist entry
func (c *IPCController) NextTrack(ctx context.Context) error {
	return c.command(ctx, "playlist-next")
}

// PreviousTrack goes to the previous playlist entry
func (c *IPCController) PreviousTrack(ctx context.Context) error {
	return c.command(ctx, "playlist-prev")
}

// Stop stops playback and clears the playlist
func (c *IPCController) Stop(ctx context.Context) error {
	return c.command(ctx, "stop")
}

// SetVolume sets the volume in percent
func (c *IPCController) SetVolume(ctx context.Context, level int) error {
	if level < 0 || level > MaxVolume {
		return fmt.Errorf("volume must be between 0 and %d, got %d", MaxVolume, level)
	}
	return c.command(ctx, "set_property", "volume", level)
}

// SetProperty sets any property to value
func (c *IPCController) SetProperty(ctx context.Context, name string, value any) error {
	return c.command(ctx, "set_property", name, value)
}

// Seek moves the playback position
func (c *IPCController) Seek(ctx context.Context, seconds float64, absolute bool) error {
	mode := "relative"
	if absolute {
		mode = "absolute"
	}
	return c.command(ctx, "seek", seconds, mode)
}

// LoadFile loads a file or URL
func (c *IPCController) LoadFile(ctx context.Context, path string, appendToPlaylist bool) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	mode := "replace"
	if appendToPlaylist {
		mode = "append-play"
	}
	return c.command(ctx, "loadfile", path, mode)
}

// SetShuffle enables or disables playlist shuffling
func (c *IPCController) SetShuffle(ctx context.Context, enabled bool) error {
	return c.command(ctx, "set_property", "shuffle", enabled)
}

// applyProperty stores one property value on t
func applyProperty(t *Track, name string, v any) {
	switch name {
	case "pause":
		if paused, ok := v.(bool); ok {
			if paused {
				t.State = StatePaused
			} else {
				t.State = StatePlaying
			}
		}
	case "idle-active":
		if idle, ok := v.(bool); ok && idle {
			t.State = StateStopped
		}
	case "path":
		t.Path, _ = v.(string)
		if t.Title == "" && t.Path != "" {
			t.Title = filepath.Base(t.Path)
		}
	case "media-title":
		if title, ok := v.(string); ok && title != "" {
			t.Title = title
		}
	case "metadata":
		if md, ok := v.(map[string]any); ok {
			t.Artist = metadataValue(md, "artist")
			t.Album = metadataValue(md, "album")
		}
	case "duration":
		t.Duration = seconds(v)
	case "time-pos":
		t.Position = seconds(v)
	case "volume":
		if f, ok := v.(float64); ok {
			t.Volume = f
		}
	}
}

// metadataValue looks a tag up case-insensitively; tag case depends on the container
func metadataValue(md map[string]any, key string) string {
	for k, v := range md {
		if strings.EqualFold(k, key) {
			s, _ := v.(string)
			return s
		}
	}
	return ""
}

func seconds(v any) time.Duration {
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
