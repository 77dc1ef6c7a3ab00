package ipc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by Connect when no socket path is set.
	ErrNotConfigured = errors.New("mpv socket path not configured")

	// ErrEndpointMissing is returned when nothing is listening at the socket path.
	ErrEndpointMissing = errors.New("no mpv socket at path")

	// ErrNotConnected is returned by Send when the client is disconnected.
	ErrNotConnected = errors.New("not connected to mpv")

	// ErrShortWrite means a command line was only partially written. The
	// connection is torn down when this happens.
	ErrShortWrite = errors.New("short write to mpv socket")

	// ErrConnectionLost means the peer closed the socket or an I/O error
	// made the connection unusable.
	ErrConnectionLost = errors.New("connection to mpv lost")
)

// CommandError is a response whose error field is not "success".
type CommandError struct {
	RequestID int64
	Message   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv command %d failed: %s", e.RequestID, e.Message)
}
