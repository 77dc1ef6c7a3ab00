package cmd

import (
	"testing"
	"time"

	"github.com/jfmyers9/mpvremote/internal/player"
	"github.com/mattn/go-runewidth"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "handle emoji correctly",
			input:    "🎵 Music",
			width:    15,
			expected: "🎵 Music       ", // emoji is 2 columns wide, so 8 total + 7 spaces
		},
		{
			name:     "truncate emoji text",
			input:    "🎵 This is a very long song title",
			width:    15,
			expected: "🎵 This is a...",
		},
		{
			name:     "handle unicode characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate unicode text",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ", // 日本語 is 6 columns, ... is 3, need 1 space
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	track := &player.Track{
		Title:    "Song",
		Artist:   "Band",
		Path:     "/music/song.flac",
		Duration: 3*time.Minute + 5*time.Second,
		Position: 65 * time.Second,
		State:    player.StatePlaying,
	}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "{{.Title}}", want: "Song"},
		{format: "{{.Artist}} - {{.Title}}", want: "Band - Song"},
		{format: "{{clock .Position}}/{{clock .Duration}}", want: "01:05/03:05"},
		{format: "{{.State}}", want: "playing"},
		{format: "{{.Missing}}", wantErr: true},
		{format: "{{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := formatTrack(track, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("formatTrack(%q) expected error", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("formatTrack(%q): %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("formatTrack(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestShouldShow(t *testing.T) {
	playing := &player.Track{State: player.StatePlaying}
	paused := &player.Track{State: player.StatePaused}

	if shouldShow(nil, true) {
		t.Error("nil track shown")
	}
	if !shouldShow(playing, false) {
		t.Error("playing track hidden")
	}
	if shouldShow(paused, false) {
		t.Error("paused track shown without --paused")
	}
	if !shouldShow(paused, true) {
		t.Error("paused track hidden with --paused")
	}
}

func TestClock(t *testing.T) {
	if got := clock(time.Hour + 5*time.Second); got != "1:00:05" {
		t.Errorf("clock = %q", got)
	}
	if got := clock(-time.Second); got != "00:00" {
		t.Errorf("clock = %q", got)
	}
}
