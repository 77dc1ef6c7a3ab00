package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfmyers9/mpvremote/internal/player"
)

// defaultPersistInterval bounds how often position-only updates hit disk.
// mpv reports time-pos many times per second.
const defaultPersistInterval = 5 * time.Second

// TrackState represents the daemon's tracking state for the loaded file
type TrackState struct {
	Track         *player.Track // Loaded file (nil if idle)
	HistoryID     int64         // Row of this play in the history store (0 if not recorded)
	StartTime     time.Time     // When playback started (or resumed)
	PausedAt      time.Time     // When the file was paused (zero if not paused)
	TotalPlayTime time.Duration // Accumulated play time (excludes pauses)
}

// State manages the daemon's state with thread-safe access and persistence
type State struct {
	mu              sync.RWMutex
	current         TrackState
	filePath        string // Path to state file for persistence
	persistInterval time.Duration
	lastPersist     time.Time
	dirty           bool // Changes not yet written to disk
}

// persistedState is the JSON representation of state for disk storage
type persistedState struct {
	Track         *player.Track `json:"track,omitempty"`
	HistoryID     int64         `json:"history_id,omitempty"`
	StartTime     time.Time     `json:"start_time"`
	PausedAt      time.Time     `json:"paused_at,omitempty"`
	TotalPlayTime time.Duration `json:"total_play_time"`
}

// NewState creates a new State instance
// If filePath is provided, attempts to restore state from disk
func NewState(filePath string) (*State, error) {
	s := &State{
		filePath:        filePath,
		persistInterval: defaultPersistInterval,
	}

	if filePath != "" {
		if err := s.restore(); err != nil && !os.IsNotExist(err) {
			// Not fatal, the daemon can start fresh
			return s, err
		}
	}

	return s, nil
}

// SetTrack records a newly loaded file and resets play time
func (s *State) SetTrack(track *player.Track, historyID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = TrackState{
		Track:     copyTrack(track),
		HistoryID: historyID,
		StartTime: time.Now(),
	}
	if track != nil && track.State == player.StatePaused {
		s.current.PausedAt = s.current.StartTime
	}

	return s.persist()
}

// UpdatePosition updates the loaded file's details and play time
// Handles pause/resume by accumulating play time
func (s *State) UpdatePosition(track *player.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Track == nil || !isSameTrack(s.current.Track, track) {
		s.current = TrackState{
			Track:     copyTrack(track),
			StartTime: time.Now(),
		}
		return s.persist()
	}

	switch track.State {
	case player.StatePlaying:
		if !s.current.PausedAt.IsZero() {
			s.current.TotalPlayTime += s.current.PausedAt.Sub(s.current.StartTime)
			s.current.StartTime = time.Now()
			s.current.PausedAt = time.Time{}
		}
	case player.StatePaused:
		if s.current.PausedAt.IsZero() {
			s.current.PausedAt = time.Now()
		}
	case player.StateStopped:
		s.current = TrackState{}
		return s.persist()
	}

	s.current.Track = copyTrack(track)
	return s.throttledPersist()
}

// GetState returns a copy of the current state
func (s *State) GetState() TrackState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.current
	state.Track = copyTrack(s.current.Track)
	return state
}

// GetPlayedDuration returns the total time the loaded file has been played
// This accounts for pauses and resumes
func (s *State) GetPlayedDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.current.PausedAt.IsZero() {
		return s.current.TotalPlayTime + s.current.PausedAt.Sub(s.current.StartTime)
	}

	if s.current.Track != nil && s.current.Track.State == player.StatePlaying {
		return s.current.TotalPlayTime + time.Since(s.current.StartTime)
	}

	return s.current.TotalPlayTime
}

// Reset clears the current state
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = TrackState{}
	return s.persist()
}

// Flush writes pending changes to disk
func (s *State) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.persist()
}

// throttledPersist writes at most once per persistInterval and otherwise
// marks the state dirty. Must be called with lock held.
func (s *State) throttledPersist() error {
	if time.Since(s.lastPersist) < s.persistInterval {
		s.dirty = true
		return nil
	}
	return s.persist()
}

// persist saves the current state to disk
// Must be called with lock held
func (s *State) persist() error {
	if s.filePath == "" {
		s.dirty = false
		return nil
	}

	ps := persistedState{
		Track:         s.current.Track,
		HistoryID:     s.current.HistoryID,
		StartTime:     s.current.StartTime,
		PausedAt:      s.current.PausedAt,
		TotalPlayTime: s.current.TotalPlayTime,
	}

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return err
	}

	s.lastPersist = time.Now()
	s.dirty = false
	return nil
}

// restore loads state from disk
func (s *State) restore() error {
	if s.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = TrackState(ps)

	return nil
}

// ReadState loads the state file written by a running daemon
func ReadState(filePath string) (TrackState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return TrackState{}, err
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return TrackState{}, err
	}
	return TrackState(ps), nil
}

// isSameTrack reports whether two tracks refer to the same loaded file
func isSameTrack(t1, t2 *player.Track) bool {
	if t1 == nil || t2 == nil {
		return false
	}
	return t1.Path == t2.Path
}

func copyTrack(t *player.Track) *player.Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
