package player

import (
	"fmt"
	"sync"

	"github.com/jfmyers9/mpvremote/internal/ipc"
)

// Tracker keeps a live Track up to date from property-change events
type Tracker struct {
	mu       sync.RWMutex
	track    Track
	idle     bool
	onChange func(Track)
}

// NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{idle: true}
}

// OnChange registers fn to run after every applied change
func (t *Tracker) OnChange(fn func(Track)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Attach observes each named property on client. It must be called after
// every connect, since observers do not survive a reconnect.
func (t *Tracker) Attach(client *ipc.Client, names []string) error {
	for _, name := range names {
		if err := client.ObserveProperty(name, t.Apply); err != nil {
			return fmt.Errorf("failed to observe %s: %w", name, err)
		}
	}
	return nil
}

// Apply updates the track from a property-change event
func (t *Tracker) Apply(ev ipc.Event) {
	t.mu.Lock()
	switch ev.Property {
	case "idle-active":
		idle, _ := ev.Data.(bool)
		t.idle = idle
		if idle {
			t.track = Track{Volume: t.track.Volume}
		}
	case "path":
		// A new file: drop the previous file's title and tags.
		path, _ := ev.Data.(string)
		if path != t.track.Path {
			t.track.Title = ""
			t.track.Artist = ""
			t.track.Album = ""
			t.track.Position = 0
		}
		if path != "" {
			t.idle = false
		}
		applyProperty(&t.track, ev.Property, ev.Data)
	default:
		applyProperty(&t.track, ev.Property, ev.Data)
	}
	if t.idle {
		t.track.State = StateStopped
	} else if t.track.State == StateStopped {
		t.track.State = StatePlaying
	}
	track := t.track
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(track)
	}
}

// Snapshot returns a copy of the current track, or nil if nothing is loaded
func (t *Tracker) Snapshot() *Track {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.idle {
		return nil
	}
	track := t.track
	return &track
}

// Volume returns the last observed volume
func (t *Tracker) Volume() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.track.Volume
}

// Reset forgets everything, as after a disconnect
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.track = Track{}
	t.idle = true
}
