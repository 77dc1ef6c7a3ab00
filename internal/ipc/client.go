package ipc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the connection state of a Client.
type State int32

const (
	StateDisconnected State = iota // No socket
	StateConnecting                // Inside the connect retry loop
	StateConnected                 // Socket open and poll loop running
)

// String returns a human-readable representation of the State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config holds connection settings
type Config struct {
	SocketPath    string        // Path of mpv's --input-ipc-server socket
	Retries       int           // Connect attempts made by Connect
	RetryInterval time.Duration // Delay between connect attempts
	PollInterval  time.Duration // Interval of the poll tick
	PollTimeout   time.Duration // How long one tick waits for data
	DialTimeout   time.Duration // Timeout of a single connect attempt
}

// DefaultConfig returns the default connection settings for socketPath.
func DefaultConfig(socketPath string) Config {
	return Config{
		SocketPath:    socketPath,
		Retries:       1,
		RetryInterval: 50 * time.Millisecond,
		PollInterval:  50 * time.Millisecond,
		PollTimeout:   10 * time.Millisecond,
		DialTimeout:   time.Second,
	}
}

// Notifier shows connection problems to the user.
type Notifier interface {
	Notify(msg string)
}

type logNotifier struct {
	logger zerolog.Logger
}

func (n logNotifier) Notify(msg string) {
	n.logger.Warn().Msg(msg)
}

// Option configures a Client.
type Option func(*Client)

// WithNotifier sets the Notifier used for configuration and transport errors.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// session is everything that lives exactly as long as one connection.
type session struct {
	id         string
	transport  *Transport
	registry   *Registry
	dispatcher *Dispatcher
	decoder    *Decoder
	observeIDs map[string]int64
	lastObsID  int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// busy is set while the poll goroutine runs a user callback.
	busy atomic.Bool
}

// Client connects to mpv's JSON IPC socket, correlates responses with
// the commands that asked for them, and dispatches events.
//
// Callbacks run on the connection's poll goroutine, one at a time, in the
// order messages arrived. They may call any Client method except Call,
// whose reply could only be delivered by the goroutine it would block.
type Client struct {
	cfg      Config
	logger   zerolog.Logger
	notifier Notifier

	// connectMu serializes connect attempts.
	connectMu sync.Mutex

	mu           sync.Mutex
	state        State
	sess         *session
	onDisconnect func(error)
}

// New creates a disconnected Client.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Client {
	defaults := DefaultConfig(cfg.SocketPath)
	if cfg.Retries < 1 {
		cfg.Retries = defaults.Retries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaults.PollTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}

	logger = logger.With().Str("component", "ipc").Logger()
	c := &Client{
		cfg:      cfg,
		logger:   logger,
		notifier: logNotifier{logger: logger},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SocketPath returns the configured socket path.
func (c *Client) SocketPath() string {
	return c.cfg.SocketPath
}

// OnDisconnect registers fn to run after every teardown. cause is nil for
// an explicit Disconnect.
func (c *Client) OnDisconnect(fn func(cause error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the client holds an open connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Pending returns the number of commands still waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0
	}
	return c.sess.registry.Len()
}

// Connect connects using the configured retry settings.
func (c *Client) Connect(ctx context.Context, onReady func()) error {
	return c.ConnectWithRetry(ctx, onReady, c.cfg.Retries, c.cfg.RetryInterval)
}

// ConnectWithRetry makes up to retries connection attempts, sleeping
// interval between them. On success it starts the poll loop and then
// calls onReady. It returns nil immediately if already connected.
func (c *Client) ConnectWithRetry(ctx context.Context, onReady func(), retries int, interval time.Duration) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.IsConnected() {
		return nil
	}

	path := c.cfg.SocketPath
	if path == "" {
		c.notifier.Notify("mpv socket path is not configured")
		return ErrNotConfigured
	}
	if retries < 1 {
		retries = 1
	}

	c.setState(StateConnecting)

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		transport, err := Dial(path, c.cfg.DialTimeout)
		if err == nil {
			sess := c.start(transport)
			c.logger.Info().
				Str("socket", path).
				Str("session", sess.id).
				Int("attempt", attempt).
				Msg("Connected to mpv")
			if onReady != nil {
				onReady()
			}
			return nil
		}

		lastErr = err
		c.logger.Debug().Err(err).Int("attempt", attempt).Int("retries", retries).Msg("Connect attempt failed")

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	c.setState(StateDisconnected)
	c.notifier.Notify(fmt.Sprintf("Could not connect to mpv at %s", path))
	return fmt.Errorf("failed to connect after %d attempts: %w", retries, lastErr)
}

// start creates a fresh session around transport and starts its poll loop.
func (c *Client) start(transport *Transport) *session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	sess := &session{
		id:         id,
		transport:  transport,
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(),
		decoder:    NewDecoder(c.logger.With().Str("session", id).Logger()),
		observeIDs: make(map[string]int64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = sess
	c.state = StateConnected
	c.mu.Unlock()

	go c.pollLoop(sess)
	return sess
}

// Disconnect tears down the connection, drops all pending requests,
// observers and listeners, and then calls onDone. It is safe to call when
// already disconnected.
func (c *Client) Disconnect(onDone func()) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess != nil {
		c.teardown(sess, nil, true)
	}
	if onDone != nil {
		onDone()
	}
}

// ToggleConnection disconnects when connected and connects otherwise.
func (c *Client) ToggleConnection(ctx context.Context, onConnect, onDisconnect func()) error {
	if c.IsConnected() {
		c.Disconnect(onDisconnect)
		return nil
	}
	return c.Connect(ctx, onConnect)
}

// teardown ends sess if it is still the current session. The state is
// Disconnected before the socket closes and before any hook runs. When
// wait is set it also waits for the poll goroutine, unless that goroutine
// is running the callback that asked for the teardown.
func (c *Client) teardown(sess *session, cause error, wait bool) bool {
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return false
	}
	c.sess = nil
	c.state = StateDisconnected
	busy := sess.busy.Load()
	dropped := sess.registry.Len()
	sess.registry = NewRegistry()
	sess.dispatcher = NewDispatcher()
	sess.observeIDs = nil
	hook := c.onDisconnect
	c.mu.Unlock()

	sess.cancel()
	if err := sess.transport.Close(); err != nil {
		c.logger.Debug().Err(err).Str("session", sess.id).Msg("Error closing socket")
	}
	if wait && !busy {
		<-sess.done
	}

	event := c.logger.Info()
	if cause != nil {
		event = c.logger.Warn().Err(cause)
		c.notifier.Notify("Lost connection to mpv")
	}
	event.Str("session", sess.id).Int("dropped_requests", dropped).Msg("Disconnected from mpv")

	if hook != nil {
		hook(cause)
	}
	return true
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// current reports whether sess is still the live session.
func (c *Client) current(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess == sess
}

// pollLoop runs one tick per PollInterval until the session ends.
func (c *Client) pollLoop(sess *session) {
	defer close(sess.done)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(sess) {
				return
			}
		}
	}
}

// tick drains the socket and dispatches every complete message. It
// returns false once the session is over.
func (c *Client) tick(sess *session) bool {
	data, readErr := sess.transport.PollAndDrain(c.cfg.PollTimeout)
	if sess.ctx.Err() != nil {
		return false
	}

	for _, msg := range sess.decoder.Decode(data) {
		if !c.deliver(sess, msg) {
			return false
		}
	}

	if readErr != nil {
		c.teardown(sess, readErr, false)
		return false
	}
	return true
}

// deliver routes one message. Callbacks are looked up under the lock and
// run outside it.
func (c *Client) deliver(sess *session, msg Message) bool {
	switch m := msg.(type) {
	case Response:
		if !m.OK() {
			c.logger.Warn().
				Int64("request_id", m.ID).
				Str("error", m.Error).
				Str("session", sess.id).
				Msg("mpv command failed")
		}
		c.mu.Lock()
		if c.sess != sess {
			c.mu.Unlock()
			return false
		}
		cb, ok := sess.registry.Take(m.ID)
		if !ok || cb == nil {
			c.mu.Unlock()
			return true
		}
		sess.busy.Store(true)
		c.mu.Unlock()

		c.run(sess, func() { cb(m) })

	case Event:
		c.mu.Lock()
		if c.sess != sess {
			c.mu.Unlock()
			return false
		}
		observer, _ := sess.dispatcher.Targets(m)
		if observer != nil {
			sess.busy.Store(true)
		}
		c.mu.Unlock()

		if observer != nil {
			c.run(sess, func() { observer(m) })
		}

		// The observer may have replaced the listener or ended the session.
		c.mu.Lock()
		if c.sess != sess {
			c.mu.Unlock()
			return false
		}
		_, listener := sess.dispatcher.Targets(m)
		if listener == nil {
			c.mu.Unlock()
			return true
		}
		sess.busy.Store(true)
		c.mu.Unlock()

		c.run(sess, func() { listener(m) })
	}

	return c.current(sess)
}

func (c *Client) run(sess *session, fn func()) {
	defer sess.busy.Store(false)
	fn()
}

// Send writes a fire-and-forget command.
func (c *Client) Send(parts ...any) error {
	_, _, err := c.send(nil, parts)
	return err
}

// SendWithCallback writes a command with a fresh request_id and calls cb
// with its response on a later tick. cb is dropped without being called
// if the connection ends first.
func (c *Client) SendWithCallback(cb ResponseFunc, parts ...any) error {
	_, _, err := c.send(cb, parts)
	return err
}

// send writes one command and returns the session it went out on and the
// request_id it was given (0 without a callback).
func (c *Client) send(cb ResponseFunc, parts []any) (*session, int64, error) {
	c.mu.Lock()
	sess := c.sess
	if sess == nil {
		c.mu.Unlock()
		return nil, 0, ErrNotConnected
	}

	var id int64
	if cb != nil {
		id = sess.registry.Register(cb)
	}
	line, err := Encode(parts, id)
	if err != nil {
		if id != 0 {
			sess.registry.Cancel(id)
		}
		c.mu.Unlock()
		return nil, 0, err
	}

	// Writing under the lock keeps concurrent commands from interleaving.
	n, err := sess.transport.Write(line)
	c.mu.Unlock()

	if err == nil && n < len(line) {
		err = fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(line))
	}
	if err != nil {
		c.teardown(sess, err, true)
		return nil, 0, err
	}

	c.logger.Debug().Int64("request_id", id).Bytes("command", line[:len(line)-1]).Msg("Sent command")
	return sess, id, nil
}

// Call sends a command and waits for its response. It must not be called
// from a callback. If ctx ends first the request is forgotten and a late
// response is ignored.
func (c *Client) Call(ctx context.Context, parts ...any) (Response, error) {
	ch := make(chan Response, 1)
	sess, id, err := c.send(func(r Response) { ch <- r }, parts)
	if err != nil {
		return Response{}, err
	}

	select {
	case resp := <-ch:
		return resp, resp.Err()
	case <-sess.ctx.Done():
		return Response{}, ErrConnectionLost
	case <-ctx.Done():
		c.mu.Lock()
		if c.sess == sess {
			sess.registry.Cancel(id)
		}
		c.mu.Unlock()
		return Response{}, ctx.Err()
	}
}

// ObserveProperty binds cb to changes of the named property and asks mpv
// to report them. Observing the same name again replaces cb without a
// second observe_property, so mpv keeps a single observer per name.
func (c *Client) ObserveProperty(name string, cb PropertyFunc) error {
	c.mu.Lock()
	sess := c.sess
	if sess == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	sess.dispatcher.Observe(name, cb)
	id, seen := sess.observeIDs[name]
	if !seen {
		sess.lastObsID++
		id = sess.lastObsID
		sess.observeIDs[name] = id
	}
	c.mu.Unlock()

	if seen {
		return nil
	}
	return c.Send("observe_property", id, name)
}

// UnobserveProperty stops observing the named property.
func (c *Client) UnobserveProperty(name string) error {
	c.mu.Lock()
	sess := c.sess
	if sess == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id, seen := sess.observeIDs[name]
	delete(sess.observeIDs, name)
	sess.dispatcher.Unobserve(name)
	c.mu.Unlock()

	if !seen {
		return nil
	}
	return c.Send("unobserve_property", id)
}

// Listen binds cb to events with the given name, replacing any earlier
// listener for it.
func (c *Client) Listen(event string, cb EventFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ErrNotConnected
	}
	c.sess.dispatcher.Listen(event, cb)
	return nil
}

// Observed returns the sorted names of the properties observed on the
// current connection.
func (c *Client) Observed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	names := c.sess.dispatcher.Observed()
	sort.Strings(names)
	return names
}

// IsLost reports whether err means the connection is gone.
func IsLost(err error) bool {
	return errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrShortWrite)
}
