package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/mpvremote/internal/history"
	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/jfmyers9/mpvremote/internal/player"
	"github.com/rivo/tview"
)

const (
	maxRecentTracks = 5
	volumeStep      = 5
	seekStep        = 5.0
	commandTimeout  = 2 * time.Second
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
	Observe     []string      // Properties observed after every connect
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 250 * time.Millisecond,
	}
}

// RecentTrack stores info about a recently played track
type RecentTrack struct {
	Title    string
	Path     string
	PlayedAt time.Time
}

// App is the TUI remote control for mpv
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	status     *tview.TextView
	connection *tview.TextView
	recent     *tview.TextView

	config Config

	client     *ipc.Client
	controller player.Controller
	tracker    *player.Tracker

	// exec runs key actions off the UI goroutine
	exec func(func())

	// Guarded by mu
	mu           sync.Mutex
	currentTrack *player.Track
	connState    ipc.State
	pending      int
	notice       string
	sessionStart time.Time

	// Ring buffer for recent tracks (avoids allocation on every track change)
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int // total tracks added (recentCount % maxRecentTracks = next write index)

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastConnection string
	lastRecent     string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New() *App {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:          tview.NewApplication(),
		config:       cfg,
		tracker:      player.NewTracker(),
		exec:         func(fn func()) { go fn() },
		sessionStart: time.Now(),
	}
	a.setupUI()
	return a
}

// Notify shows a connection problem in the connection panel
func (a *App) Notify(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notice = msg
}

// Attach binds the App to a client. The client should be created with
// ipc.WithNotifier(app) so its problems show up in the UI.
func (a *App) Attach(client *ipc.Client) {
	a.client = client
	a.controller = player.NewIPCController(client)
	client.OnDisconnect(func(error) {
		a.tracker.Reset()
	})
}

// SeedRecent fills the recent panel from the history store
func (a *App) SeedRecent(ctx context.Context, store *history.Store) error {
	entries, err := store.Recent(ctx, maxRecentTracks)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Oldest first so the newest ends up on top
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		a.addToRecentTracks(RecentTrack{Title: e.Title, Path: e.Path, PlayedAt: e.PlayedAt})
	}
	return nil
}

// Connect connects the attached client and observes the configured properties
func (a *App) Connect(ctx context.Context) error {
	return a.client.Connect(ctx, a.onConnect)
}

func (a *App) onConnect() {
	a.Notify("")
	if err := a.tracker.Attach(a.client, a.config.Observe); err != nil {
		a.Notify(err.Error())
	}
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.connection = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.connection.SetBorder(true).
		SetTitle(" Connection ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  space:play/pause  n:next  p:prev  +/-:volume  ←/→:seek  c:connect[-]")

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.connection, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 7, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		a.control(func(ctx context.Context, c player.Controller) error {
			return c.Seek(ctx, -seekStep, false)
		})
		return nil
	case tcell.KeyRight:
		a.control(func(ctx context.Context, c player.Controller) error {
			return c.Seek(ctx, seekStep, false)
		})
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case ' ':
		a.control(func(ctx context.Context, c player.Controller) error {
			return c.PlayPause(ctx)
		})
		return nil
	case 'n', 'N':
		a.control(func(ctx context.Context, c player.Controller) error {
			return c.NextTrack(ctx)
		})
		return nil
	case 'p', 'P':
		a.control(func(ctx context.Context, c player.Controller) error {
			return c.PreviousTrack(ctx)
		})
		return nil
	case '+', '=':
		a.changeVolume(volumeStep)
		return nil
	case '-', '_':
		a.changeVolume(-volumeStep)
		return nil
	case 'c', 'C':
		a.toggleConnection()
		return nil
	}
	return event
}

// control runs fn against the controller when connected
func (a *App) control(fn func(ctx context.Context, c player.Controller) error) {
	if a.controller == nil {
		return
	}
	a.exec(func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx, a.controller); err != nil {
			a.Notify(err.Error())
		}
	})
}

func (a *App) changeVolume(delta int) {
	a.control(func(ctx context.Context, c player.Controller) error {
		level := int(a.tracker.Volume()) + delta
		if level < 0 {
			level = 0
		}
		if level > player.MaxVolume {
			level = player.MaxVolume
		}
		return c.SetVolume(ctx, level)
	})
}

func (a *App) toggleConnection() {
	if a.client == nil {
		return
	}
	a.exec(func() {
		err := a.client.ToggleConnection(context.Background(), a.onConnect, func() {
			a.tracker.Reset()
		})
		if err != nil {
			a.Notify(err.Error())
		}
	})
}

// Run starts the TUI and blocks until it exits
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates samples the tracker and connection on a ticker, the only
// source of redraws.
func (a *App) handleUpdates(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 250 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.sample()
			a.refresh()
		}
	}
}

// sample copies the tracker and connection state for the next redraw
func (a *App) sample() {
	track := a.tracker.Snapshot()

	a.mu.Lock()
	defer a.mu.Unlock()

	// A new file pushes the previous one onto the recent list
	if a.currentTrack != nil && (track == nil || track.Path != a.currentTrack.Path) {
		a.addToRecentTracks(RecentTrack{
			Title:    a.currentTrack.Title,
			Path:     a.currentTrack.Path,
			PlayedAt: time.Now(),
		})
	}
	a.currentTrack = track

	if a.client != nil {
		a.connState = a.client.State()
		a.pending = a.client.Pending()
	}
}

// addToRecentTracks adds a track to the ring buffer of recent tracks.
// Must be called with a.mu held.
func (a *App) addToRecentTracks(track RecentTrack) {
	if track.Path == "" {
		return
	}

	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = track
	a.recentCount++
}

// getRecentTracks returns recent tracks in most-recent-first order.
// Must be called with a.mu held.
func (a *App) getRecentTracks() []RecentTrack {
	n := a.recentCount
	if n > maxRecentTracks {
		n = maxRecentTracks
	}
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateConnection()
		a.updateRecentTracks()
	})
}

// updateNowPlaying updates the now playing panel
func (a *App) updateNowPlaying() {
	text := nowPlayingText(a.currentTrack)
	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

func nowPlayingText(track *player.Track) string {
	if track == nil || track.State == player.StateStopped {
		return "\n\n[gray]Nothing playing[-]"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(displayTitle(track))))
	if track.Artist != "" {
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(track.Artist)))
	}
	if track.Album != "" {
		sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(track.Album)))
	}

	stateIcon := "[green]▶[-]" // Play triangle
	if track.State == player.StatePaused {
		stateIcon = "[yellow]⏸[-]" // Pause icon
	}
	sb.WriteString(fmt.Sprintf("\n\n%s  [gray]vol %.0f%%[-]", stateIcon, track.Volume))
	return sb.String()
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	var text string

	if a.currentTrack != nil && a.currentTrack.State != player.StateStopped {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		progressBar := buildProgressBar(a.currentTrack.Position, a.currentTrack.Duration, a.lastBarWidth)
		posStr := formatDuration(a.currentTrack.Position)
		durStr := formatDuration(a.currentTrack.Duration)
		text = fmt.Sprintf("%s %s %s", posStr, progressBar, durStr)
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updateConnection updates the connection panel
func (a *App) updateConnection() {
	text := connectionText(a.connState, a.pending, a.notice, time.Since(a.sessionStart))
	if text != a.lastConnection {
		a.lastConnection = text
		a.connection.SetText(text)
	}
}

func connectionText(state ipc.State, pending int, notice string, uptime time.Duration) string {
	var sb strings.Builder

	switch state {
	case ipc.StateConnected:
		sb.WriteString("[green]● connected[-]\n")
	case ipc.StateConnecting:
		sb.WriteString("[yellow]● connecting[-]\n")
	default:
		sb.WriteString("[red]● disconnected[-]\n")
	}
	sb.WriteString(fmt.Sprintf("Pending: %d\n", pending))
	sb.WriteString(fmt.Sprintf("Session: %s", formatDuration(uptime)))
	if notice != "" {
		sb.WriteString(fmt.Sprintf("\n[red]%s[-]", tview.Escape(notice)))
	}
	return sb.String()
}

// updateRecentTracks updates the recent tracks panel
func (a *App) updateRecentTracks() {
	var sb strings.Builder

	tracks := a.getRecentTracks()
	if len(tracks) == 0 {
		sb.WriteString("[gray]No recent tracks[-]")
	} else {
		for i, track := range tracks {
			if i > 0 {
				sb.WriteString("\n")
			}

			name := track.Title
			if name == "" {
				name = filepath.Base(track.Path)
			}
			if len([]rune(name)) > 20 {
				name = string([]rune(name)[:17]) + "..."
			}
			sb.WriteString(fmt.Sprintf("[gray]%s[-] [white]%s[-]", track.PlayedAt.Format("15:04"), tview.Escape(name)))
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

func displayTitle(t *player.Track) string {
	if t.Title != "" {
		return t.Title
	}
	return filepath.Base(t.Path)
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", max(width, 0))
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
