package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// request is the wire form of an outgoing command.
type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id,omitempty"`
}

// incoming holds the fields used to classify a decoded line.
type incoming struct {
	RequestID *int64  `json:"request_id"`
	Error     string  `json:"error"`
	Data      any     `json:"data"`
	Event     *string `json:"event"`
	Name      string  `json:"name"`
}

// Encode serializes a command as one newline-terminated JSON line. An id
// of zero leaves request_id out.
func Encode(parts []any, id int64) ([]byte, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	data, err := json.Marshal(request{Command: parts, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return append(data, '\n'), nil
}

// Decoder splits a byte stream into messages. It keeps the trailing
// partial line between calls, so a message split across reads is decoded
// exactly once.
type Decoder struct {
	pending []byte
	logger  zerolog.Logger
}

// NewDecoder creates a Decoder that logs dropped lines to logger.
func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode appends buf to any buffered partial line and returns every
// complete message, in stream order.
func (d *Decoder) Decode(buf []byte) []Message {
	d.pending = append(d.pending, buf...)

	var msgs []Message
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(d.pending[:i], "\r")
		d.pending = d.pending[i+1:]

		if msg, ok := d.parseLine(line); ok {
			msgs = append(msgs, msg)
		}
	}

	if len(d.pending) == 0 {
		d.pending = nil
	} else {
		// Detach from the consumed prefix so the backing array can be freed.
		d.pending = append([]byte(nil), d.pending...)
	}
	return msgs
}

// Remainder returns the buffered partial line.
func (d *Decoder) Remainder() []byte {
	return d.pending
}

func (d *Decoder) parseLine(line []byte) (Message, bool) {
	if len(line) == 0 || line[0] != '{' {
		return nil, false
	}

	var in incoming
	if err := json.Unmarshal(line, &in); err != nil {
		d.logger.Warn().Err(err).Bytes("line", line).Msg("Dropping malformed line")
		return nil, false
	}

	switch {
	case in.RequestID != nil:
		return Response{ID: *in.RequestID, Error: in.Error, Data: in.Data}, true
	case in.Event != nil:
		ev := Event{Name: *in.Event, Data: in.Data}
		if ev.Name == propertyChangeEvent {
			ev.Property = in.Name
		}
		// Raw keeps event-specific fields such as reason or playlist_entry_id.
		if err := json.Unmarshal(line, &ev.Raw); err != nil {
			ev.Raw = nil
		}
		return ev, true
	default:
		return nil, false
	}
}
