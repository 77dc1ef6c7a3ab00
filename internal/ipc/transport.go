package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// chunkSize is the size of each read while draining the socket.
	chunkSize = 4096

	// writeTimeout bounds a write so a full socket buffer cannot stall the caller.
	writeTimeout = 50 * time.Millisecond

	// drainWait is how long a follow-up read may wait before it counts as
	// would-block. A deadline already in the past fails without reading.
	drainWait = time.Millisecond
)

// Transport owns the Unix stream socket to the player.
type Transport struct {
	conn  *net.UnixConn
	chunk []byte
}

// checkEndpoint verifies that path names a Unix socket.
func checkEndpoint(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return fmt.Errorf("%w: %s", ErrEndpointMissing, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return fmt.Errorf("%w: %s is not a socket", ErrEndpointMissing, path)
	}
	return nil
}

// Dial connects to the socket at path.
func Dial(path string, timeout time.Duration) (*Transport, error) {
	if err := checkEndpoint(path); err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("unix", path)
	if err != nil {
		// A stale socket file with no listener refuses the connection.
		if errors.Is(err, unix.ECONNREFUSED) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrEndpointMissing, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}

	uc, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}
	return newTransport(uc), nil
}

func newTransport(conn *net.UnixConn) *Transport {
	return &Transport{conn: conn, chunk: make([]byte, chunkSize)}
}

// Write sends b without waiting longer than writeTimeout. It returns the
// number of bytes written, which may be short.
func (t *Transport) Write(b []byte) (int, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	n, err := t.conn.Write(b)
	if err != nil {
		return n, fmt.Errorf("%w: write: %v", ErrConnectionLost, err)
	}
	return n, nil
}

// PollAndDrain waits up to timeout for data and then reads until the
// socket has nothing more to give. It returns nil when no data arrived.
// A closed peer or any other read failure returns ErrConnectionLost along
// with whatever was read before it.
func (t *Transport) PollAndDrain(timeout time.Duration) ([]byte, error) {
	var out []byte
	deadline := time.Now().Add(timeout)

	for {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return out, fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		n, err := t.conn.Read(t.chunk)
		if n > 0 {
			out = append(out, t.chunk[:n]...)
		}

		switch {
		case err == nil && n == 0:
			return out, ErrConnectionLost
		case err == nil:
			// A short read does not mean the socket is drained.
			deadline = time.Now().Add(drainWait)
		case isTimeout(err):
			return out, nil
		case errors.Is(err, io.EOF):
			return out, ErrConnectionLost
		default:
			return out, fmt.Errorf("%w: read: %v", ErrConnectionLost, err)
		}
	}
}

// Close closes the socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
