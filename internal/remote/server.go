package remote

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/rs/zerolog"
)

const (
	outboxSize   = 64
	writeTimeout = 5 * time.Second
)

// Request is a command sent by a websocket client
type Request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id,omitempty"`
}

// Reply answers a Request. RequestID is the client's own id.
type Reply struct {
	RequestID int64  `json:"request_id"`
	Error     string `json:"error"`
	Data      any    `json:"data,omitempty"`
}

// Notice carries an mpv event to every connected client
type Notice struct {
	Event string `json:"event"`
	Name  string `json:"name,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Sender forwards a command to mpv and reports the response through cb
type Sender interface {
	SendWithCallback(cb ipc.ResponseFunc, parts ...any) error
}

// Server bridges websocket clients to an mpv connection
type Server struct {
	sender Sender
	logger zerolog.Logger

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	ctx    context.Context
	conn   *websocket.Conn
	outbox chan any
}

// enqueue never blocks: it runs on the mpv poll goroutine.
func (p *peer) enqueue(msg any) bool {
	select {
	case p.outbox <- msg:
		return true
	case <-p.ctx.Done():
		return false
	default:
		return false
	}
}

// New creates a Server forwarding commands to sender
func New(sender Sender, logger zerolog.Logger) *Server {
	return &Server{
		sender: sender,
		logger: logger.With().Str("component", "remote").Logger(),
		peers:  make(map[*peer]struct{}),
	}
}

// Clients returns the number of connected websocket clients
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Broadcast sends ev to every connected client. Slow clients miss events.
func (s *Server) Broadcast(ev ipc.Event) {
	notice := Notice{Event: ev.Name, Name: ev.Property, Data: ev.Data}

	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		if !p.enqueue(notice) {
			s.logger.Debug().Str("event", ev.Name).Msg("Dropped event for slow client")
		}
	}
}

// ServeHTTP upgrades the request and serves one websocket client
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	p := &peer{ctx: ctx, conn: conn, outbox: make(chan any, outboxSize)}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
	}()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Client connected")

	go s.writePump(p)
	s.readPump(p)

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Client disconnected")
}

func (s *Server) readPump(p *peer) {
	for {
		var req Request
		if err := wsjson.Read(p.ctx, p.conn, &req); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				s.logger.Debug().Err(err).Msg("Websocket read failed")
			}
			return
		}

		if len(req.Command) == 0 {
			p.enqueue(Reply{RequestID: req.RequestID, Error: "invalid command"})
			continue
		}

		id := req.RequestID
		err := s.sender.SendWithCallback(func(resp ipc.Response) {
			p.enqueue(Reply{RequestID: id, Error: resp.Error, Data: resp.Data})
		}, req.Command...)
		if err != nil {
			p.enqueue(Reply{RequestID: id, Error: err.Error()})
		}
	}
}

func (s *Server) writePump(p *peer) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case msg := <-p.outbox:
			ctx, cancel := context.WithTimeout(p.ctx, writeTimeout)
			err := wsjson.Write(ctx, p.conn, msg)
			cancel()
			if err != nil {
				s.logger.Debug().Err(err).Msg("Websocket write failed")
				p.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// ListenAndServe serves the bridge on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves the bridge on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked connections outlive Shutdown; their contexts end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Remote bridge listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
