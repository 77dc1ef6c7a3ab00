package player

import (
	"context"
	"time"
)

// Track represents the file mpv is playing with its metadata and current state
type Track struct {
	Title    string        `json:"title"`            // media-title, falls back to the file name
	Artist   string        `json:"artist,omitempty"` // From file metadata, may be empty
	Album    string        `json:"album,omitempty"`  // From file metadata, may be empty
	Path     string        `json:"path"`             // Path or URL of the loaded file
	Duration time.Duration `json:"duration"`         // Total duration
	Position time.Duration `json:"position"`         // Current playback position
	Volume   float64       `json:"volume"`           // Volume in percent
	State    PlayState     `json:"state"`            // Current playback state
}

// PlayState represents the current playback state of the player
type PlayState int

const (
	StateStopped PlayState = iota // Nothing loaded (mpv is idle)
	StatePlaying                  // File is playing
	StatePaused                   // File is paused
)

// String returns a human-readable representation of the PlayState
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Controller defines the remote-control operations on a media player
type Controller interface {
	// GetCurrentTrack returns the loaded track, or nil if the player is idle
	GetCurrentTrack(ctx context.Context) (*Track, error)

	// IsRunning checks if the player is reachable
	IsRunning(ctx context.Context) (bool, error)

	// Play resumes playback
	Play(ctx context.Context) error

	// Pause pauses playback
	Pause(ctx context.Context) error

	// PlayPause toggles between play and pause
	PlayPause(ctx context.Context) error

	// NextTrack skips to the next playlist entry
	NextTrack(ctx context.Context) error

	// PreviousTrack goes to the previous playlist entry
	PreviousTrack(ctx context.Context) error

	// Stop stops playback and clears the playlist
	Stop(ctx context.Context) error

	// SetVolume sets the volume in percent
	SetVolume(ctx context.Context, level int) error

	// Seek moves the playback position by seconds, or to seconds when absolute is set
	Seek(ctx context.Context, seconds float64, absolute bool) error

	// LoadFile loads a file or URL, replacing the playlist or appending to it
	LoadFile(ctx context.Context, path string, appendToPlaylist bool) error

	// SetShuffle enables or disables playlist shuffling
	SetShuffle(ctx context.Context, enabled bool) error
}
