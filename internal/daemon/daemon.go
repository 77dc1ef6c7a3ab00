package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jfmyers9/mpvremote/internal/history"
	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/jfmyers9/mpvremote/internal/player"
	"github.com/jfmyers9/mpvremote/internal/remote"
	"github.com/rs/zerolog"
)

// Config holds daemon configuration
type Config struct {
	IPC              ipc.Config    // Connection to mpv
	Observe          []string      // Properties to observe on every connection
	ReconnectDelay   time.Duration // Pause between reconnect attempts
	StateFile        string        // Path to state persistence file
	HistoryDB        string        // Path to playback history database
	HistoryRetention time.Duration // Age after which history is pruned (0 = keep forever)
	ListenAddr       string        // Websocket bridge address (empty = disabled)
}

// Daemon bridges mpv to the history store, the state file and remote clients
type Daemon struct {
	config     Config
	client     *ipc.Client
	tracker    *player.Tracker
	history    *history.Store
	state      *State
	remote     *remote.Server
	supervisor *Supervisor
	changed    chan struct{}
	logger     zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg Config, logger zerolog.Logger) (*Daemon, error) {
	if cfg.IPC.SocketPath == "" {
		return nil, ipc.ErrNotConfigured
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}

	state, err := NewState(cfg.StateFile)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to restore state, starting fresh")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	d := &Daemon{
		config:  cfg,
		client:  ipc.New(cfg.IPC, logger),
		tracker: player.NewTracker(),
		history: store,
		state:   state,
		changed: make(chan struct{}, 1),
		logger:  logger.With().Str("component", "daemon").Logger(),
	}
	if cfg.ListenAddr != "" {
		d.remote = remote.New(d.client, logger)
	}
	d.supervisor = NewSupervisor(d.client, cfg.ReconnectDelay, d.onConnect, logger)

	d.tracker.OnChange(func(player.Track) {
		// Coalesce: the handler reads the latest snapshot.
		select {
		case d.changed <- struct{}{}:
		default:
		}
	})

	return d, nil
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		<-sigChan
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Str("socket", d.config.IPC.SocketPath).Msg("Starting daemon")

	var wg sync.WaitGroup
	updates := make(chan ConnUpdate, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.supervisor.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Supervisor error")
		}
	}()

	if d.remote != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.remote.ListenAndServe(ctx, d.config.ListenAddr); err != nil {
				d.logger.Error().Err(err).Msg("Remote bridge error")
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.flushState(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.handleUpdates(ctx, updates)
	}()

	wg.Wait()

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// onConnect registers observers and listeners for a new session
func (d *Daemon) onConnect() {
	d.tracker.Reset()

	for _, name := range d.config.Observe {
		if err := d.client.ObserveProperty(name, d.onProperty); err != nil {
			d.logger.Warn().Err(err).Str("property", name).Msg("Failed to observe property")
		}
	}

	listeners := map[string]ipc.EventFunc{
		"end-file": d.onEndFile,
		"shutdown": d.onShutdown,
	}
	for name, cb := range listeners {
		if err := d.client.Listen(name, cb); err != nil {
			d.logger.Warn().Err(err).Str("event", name).Msg("Failed to listen for event")
		}
	}
}

// onProperty runs on the poll goroutine for every observed property change
func (d *Daemon) onProperty(ev ipc.Event) {
	d.tracker.Apply(ev)
	if d.remote != nil {
		d.remote.Broadcast(ev)
	}
}

func (d *Daemon) onEndFile(ev ipc.Event) {
	var reason string
	ev.Field("reason", &reason)
	d.logger.Debug().Str("reason", reason).Msg("File ended")
	if d.remote != nil {
		d.remote.Broadcast(ev)
	}
}

func (d *Daemon) onShutdown(ev ipc.Event) {
	d.logger.Info().Msg("mpv is shutting down")
	if d.remote != nil {
		d.remote.Broadcast(ev)
	}
}

// handleUpdates processes connection changes and track changes
func (d *Daemon) handleUpdates(ctx context.Context, updates <-chan ConnUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.Err != nil {
				d.logger.Debug().Err(update.Err).Msg("Connection update")
				d.handleTrack(ctx, nil)
				continue
			}
			d.logger.Info().Msg("Bridge connected")
		case <-d.changed:
			d.handleTrack(ctx, d.tracker.Snapshot())
		}
	}
}

// handleTrack records a track snapshot in the state file and history
func (d *Daemon) handleTrack(ctx context.Context, track *player.Track) {
	if err := d.handleTrackUpdate(ctx, track); err != nil {
		d.logger.Error().Err(err).Msg("Failed to handle track update")
	}
}

// handleTrackUpdate processes a single track snapshot
func (d *Daemon) handleTrackUpdate(ctx context.Context, track *player.Track) error {
	current := d.state.GetState()

	if track == nil || track.State == player.StateStopped {
		if current.Track != nil {
			d.logger.Info().Msg("Playback stopped")
			return d.state.Reset()
		}
		return nil
	}

	// Nothing to record until mpv reports which file is loaded
	if track.Path == "" {
		return nil
	}

	if !isSameTrack(current.Track, track) {
		d.logger.Info().
			Str("title", track.Title).
			Str("path", track.Path).
			Msg("Track changed")

		id, err := d.history.Add(ctx, historyEntry(track))
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to record history")
		}
		return d.state.SetTrack(track, id)
	}

	// Title and tags usually arrive after the path
	if current.HistoryID != 0 && detailsChanged(current.Track, track) {
		if err := d.history.UpdateDetails(ctx, current.HistoryID, historyEntry(track)); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to update history")
		}
	}

	return d.state.UpdatePosition(track)
}

// flushState periodically writes throttled state changes to disk
func (d *Daemon) flushState(ctx context.Context) {
	ticker := time.NewTicker(d.state.persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := d.state.Flush(); err != nil {
				d.logger.Error().Err(err).Msg("Failed to flush state")
			}
			return
		case <-ticker.C:
			if err := d.state.Flush(); err != nil {
				d.logger.Error().Err(err).Msg("Failed to flush state")
			}
		}
	}
}

// Shutdown gracefully shuts down the daemon
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	d.client.Disconnect(nil)

	if d.config.HistoryRetention > 0 {
		ctx := context.Background()
		if n, err := d.history.Cleanup(ctx, d.config.HistoryRetention); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to cleanup history")
		} else if n > 0 {
			d.logger.Info().Int64("deleted", n).Msg("Pruned history")
		}
	}

	if err := d.history.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}

	return nil
}

func historyEntry(t *player.Track) history.Entry {
	return history.Entry{
		Path:     t.Path,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: t.Duration,
	}
}

func detailsChanged(old, cur *player.Track) bool {
	if old == nil {
		return true
	}
	return old.Title != cur.Title ||
		old.Artist != cur.Artist ||
		old.Album != cur.Album ||
		old.Duration != cur.Duration
}
