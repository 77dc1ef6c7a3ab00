package daemon

import (
	"context"
	"time"

	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/rs/zerolog"
)

// ConnUpdate reports a change in the mpv connection
type ConnUpdate struct {
	Connected bool  // A session was established
	Err       error // Why a connect failed or a session ended (nil on success)
}

// Supervisor keeps the client connected, reconnecting whenever mpv goes away
type Supervisor struct {
	client   *ipc.Client
	interval time.Duration
	onReady  func()
	logger   zerolog.Logger
}

// NewSupervisor creates a new Supervisor. onReady runs after every connect,
// which is where observers and listeners must be registered again.
func NewSupervisor(client *ipc.Client, interval time.Duration, onReady func(), logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		client:   client,
		interval: interval,
		onReady:  onReady,
		logger:   logger.With().Str("component", "supervisor").Logger(),
	}
}

// Run connects and reconnects until ctx is cancelled, reporting each change
// on updates. The connection is closed before Run returns.
func (s *Supervisor) Run(ctx context.Context, updates chan<- ConnUpdate) error {
	s.logger.Info().
		Str("socket", s.client.SocketPath()).
		Dur("retry_interval", s.interval).
		Msg("Starting supervisor")

	lost := make(chan error, 1)
	s.client.OnDisconnect(func(cause error) {
		select {
		case lost <- cause:
		default:
		}
	})
	defer s.client.OnDisconnect(nil)

	for {
		if !s.client.IsConnected() {
			if err := s.connect(ctx); err != nil {
				if ctx.Err() != nil {
					s.logger.Info().Msg("Supervisor stopped")
					return ctx.Err()
				}
				s.logger.Debug().Err(err).Msg("Connect failed")
				s.send(ctx, updates, ConnUpdate{Err: err})

				select {
				case <-ctx.Done():
					s.logger.Info().Msg("Supervisor stopped")
					return ctx.Err()
				case <-time.After(s.interval):
				}
				continue
			}
			s.send(ctx, updates, ConnUpdate{Connected: true})
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(nil)
			s.logger.Info().Msg("Supervisor stopped")
			return ctx.Err()
		case cause := <-lost:
			s.logger.Info().Err(cause).Msg("Connection ended, waiting for mpv")
			s.send(ctx, updates, ConnUpdate{Err: cause})
		}
	}
}

// connect waits for the socket to appear and then connects
func (s *Supervisor) connect(ctx context.Context) error {
	if err := ipc.WaitForSocket(ctx, s.client.SocketPath()); err != nil {
		return err
	}
	return s.client.Connect(ctx, s.onReady)
}

// send delivers an update unless ctx is done first
func (s *Supervisor) send(ctx context.Context, updates chan<- ConnUpdate, update ConnUpdate) {
	select {
	case updates <- update:
	case <-ctx.Done():
	}
}
