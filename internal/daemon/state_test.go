package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfmyers9/mpvremote/internal/player"
)

func newTestState(t *testing.T, interval time.Duration) *State {
	t.Helper()
	dir := t.TempDir()
	fp := filepath.Join(dir, "state.json")
	s, err := NewState(fp)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	s.persistInterval = interval
	return s
}

func testTrack(path string, state player.PlayState) *player.Track {
	return &player.Track{
		Title:    filepath.Base(path),
		Path:     path,
		Duration: 3 * time.Minute,
		State:    state,
	}
}

func TestThrottledPersist_SkipsWhenIntervalNotElapsed(t *testing.T) {
	s := newTestState(t, 1*time.Hour)

	if err := s.SetTrack(testTrack("/music/a.flac", player.StatePlaying), 1); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}

	info1, err := os.Stat(s.filePath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	s.mu.Lock()
	err = s.throttledPersist()
	s.mu.Unlock()
	if err != nil {
		t.Fatalf("throttledPersist: %v", err)
	}

	info2, err := os.Stat(s.filePath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if info2.ModTime() != info1.ModTime() {
		t.Error("throttledPersist wrote to disk when interval had not elapsed")
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if !dirty {
		t.Error("expected dirty flag to be true after throttledPersist skip")
	}
}

func TestThrottledPersist_WritesWhenIntervalElapsed(t *testing.T) {
	s := newTestState(t, 10*time.Millisecond)

	if err := s.SetTrack(testTrack("/music/b.flac", player.StatePlaying), 2); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	s.dirty = true
	err := s.throttledPersist()
	s.mu.Unlock()
	if err != nil {
		t.Fatalf("throttledPersist: %v", err)
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if dirty {
		t.Error("expected dirty flag to be false after throttledPersist write")
	}
}

func TestFlush_WritesWhenDirty(t *testing.T) {
	s := newTestState(t, 1*time.Hour)

	if err := s.SetTrack(testTrack("/music/c.flac", player.StatePlaying), 3); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}

	before, err := os.ReadFile(s.filePath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Position-only update is throttled
	moved := testTrack("/music/c.flac", player.StatePlaying)
	moved.Position = 42 * time.Second
	if err := s.UpdatePosition(moved); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	after, err := os.ReadFile(s.filePath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(before) == string(after) {
		t.Error("Flush did not write updated state to disk")
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if dirty {
		t.Error("expected dirty flag to be false after Flush")
	}
}

func TestFlush_NoOpWhenClean(t *testing.T) {
	s := newTestState(t, 1*time.Hour)

	if err := s.SetTrack(testTrack("/music/d.flac", player.StatePlaying), 4); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if dirty {
		t.Fatal("expected dirty=false after SetTrack persist")
	}

	info1, err := os.Stat(s.filePath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	info2, err := os.Stat(s.filePath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if info2.ModTime() != info1.ModTime() {
		t.Error("Flush wrote to disk when state was clean")
	}
}

func TestUpdatePosition_PauseAccounting(t *testing.T) {
	s := newTestState(t, 1*time.Hour)

	if err := s.SetTrack(testTrack("/music/e.flac", player.StatePlaying), 5); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := s.UpdatePosition(testTrack("/music/e.flac", player.StatePaused)); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	paused := s.GetPlayedDuration()
	if paused < 20*time.Millisecond {
		t.Errorf("played = %s, want at least 20ms", paused)
	}

	time.Sleep(20 * time.Millisecond)
	if got := s.GetPlayedDuration(); got != paused {
		t.Errorf("played time advanced while paused: %s -> %s", paused, got)
	}

	if err := s.UpdatePosition(testTrack("/music/e.flac", player.StatePlaying)); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if got := s.GetState(); !got.PausedAt.IsZero() || got.TotalPlayTime != paused {
		t.Errorf("after resume: paused_at=%s total=%s", got.PausedAt, got.TotalPlayTime)
	}
	if got := s.GetState().HistoryID; got != 5 {
		t.Errorf("HistoryID = %d, want it kept across updates", got)
	}
}

func TestUpdatePosition_NewFileResets(t *testing.T) {
	s := newTestState(t, 1*time.Hour)

	if err := s.SetTrack(testTrack("/music/f.flac", player.StatePlaying), 6); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}
	if err := s.UpdatePosition(testTrack("/music/g.flac", player.StatePlaying)); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}

	got := s.GetState()
	if got.Track.Path != "/music/g.flac" || got.HistoryID != 0 {
		t.Errorf("state = %+v", got)
	}
}

func TestStateRestore(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "state.json")

	s, err := NewState(fp)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := s.SetTrack(testTrack("/music/h.flac", player.StatePaused), 8); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}

	restored, err := NewState(fp)
	if err != nil {
		t.Fatalf("NewState (restore): %v", err)
	}
	got := restored.GetState()
	if got.Track == nil || got.Track.Path != "/music/h.flac" || got.HistoryID != 8 {
		t.Errorf("restored = %+v", got)
	}

	read, err := ReadState(fp)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if read.Track == nil || read.Track.State != player.StatePaused {
		t.Errorf("ReadState = %+v", read)
	}

	if err := restored.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	read, _ = ReadState(fp)
	if read.Track != nil {
		t.Error("Reset did not clear the persisted track")
	}
}
