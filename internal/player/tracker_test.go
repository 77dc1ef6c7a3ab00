package player

import (
	"testing"
	"time"

	"github.com/jfmyers9/mpvremote/internal/ipc"
)

func change(name string, data any) ipc.Event {
	return ipc.Event{Name: "property-change", Property: name, Data: data}
}

func TestTrackerBuildsTrack(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot() != nil {
		t.Fatal("expected nil snapshot before any event")
	}

	var changes int
	tr.OnChange(func(Track) { changes++ })

	tr.Apply(change("idle-active", false))
	tr.Apply(change("path", "/music/Artist/01 Song.flac"))
	tr.Apply(change("pause", false))
	tr.Apply(change("duration", 200.5))
	tr.Apply(change("time-pos", 12.0))
	tr.Apply(change("volume", 70.0))
	tr.Apply(change("metadata", map[string]any{"ARTIST": "Artist", "album": "Album"}))

	got := tr.Snapshot()
	if got == nil {
		t.Fatal("snapshot is nil")
	}
	if got.Title != "01 Song.flac" {
		t.Errorf("Title = %q, want file name fallback", got.Title)
	}
	if got.Artist != "Artist" || got.Album != "Album" {
		t.Errorf("Artist/Album = %q/%q", got.Artist, got.Album)
	}
	if got.Duration != 200500*time.Millisecond || got.Position != 12*time.Second {
		t.Errorf("Duration/Position = %s/%s", got.Duration, got.Position)
	}
	if got.State != StatePlaying || got.Volume != 70 {
		t.Errorf("State/Volume = %s/%v", got.State, got.Volume)
	}
	if changes != 7 {
		t.Errorf("changes = %d, want 7", changes)
	}

	tr.Apply(change("media-title", "Song"))
	tr.Apply(change("pause", true))
	got = tr.Snapshot()
	if got.Title != "Song" || got.State != StatePaused {
		t.Errorf("Title/State = %q/%s", got.Title, got.State)
	}
}

func TestTrackerNewFileClearsTags(t *testing.T) {
	tr := NewTracker()
	tr.Apply(change("path", "/a.mp3"))
	tr.Apply(change("media-title", "A"))
	tr.Apply(change("metadata", map[string]any{"artist": "X"}))

	tr.Apply(change("path", "/b.mp3"))
	got := tr.Snapshot()
	if got.Title != "b.mp3" || got.Artist != "" {
		t.Errorf("after new file: Title=%q Artist=%q", got.Title, got.Artist)
	}
}

func TestTrackerIdle(t *testing.T) {
	tr := NewTracker()
	tr.Apply(change("path", "/a.mp3"))
	tr.Apply(change("volume", 40.0))
	tr.Apply(change("idle-active", true))

	if tr.Snapshot() != nil {
		t.Error("snapshot should be nil while idle")
	}
	if tr.Volume() != 40 {
		t.Errorf("Volume = %v, want it kept across idle", tr.Volume())
	}

	tr.Reset()
	if tr.Volume() != 0 {
		t.Errorf("Volume after Reset = %v", tr.Volume())
	}
}

func TestPlayStateString(t *testing.T) {
	tests := map[PlayState]string{
		StateStopped:  "stopped",
		StatePlaying:  "playing",
		StatePaused:   "paused",
		PlayState(42): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("PlayState(%d).String() = %q, want %q", state, got, want)
		}
	}
}
