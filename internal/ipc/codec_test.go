package ipc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		parts []any
		id    int64
		want  string
	}{
		{
			name:  "uncorrelated command",
			parts: []any{"cycle", "pause"},
			want:  `{"command":["cycle","pause"]}` + "\n",
		},
		{
			name:  "correlated command",
			parts: []any{"get_property", "volume"},
			id:    3,
			want:  `{"command":["get_property","volume"],"request_id":3}` + "\n",
		},
		{
			name:  "numeric arguments keep their type",
			parts: []any{"seek", 10.5, "relative"},
			want:  `{"command":["seek",10.5,"relative"]}` + "\n",
		},
		{
			name:  "booleans and integers",
			parts: []any{"set_property", "pause", true},
			id:    12,
			want:  `{"command":["set_property","pause",true],"request_id":12}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.parts, tt.id)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeEmptyCommand(t *testing.T) {
	if _, err := Encode(nil, 0); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestDecodeSplitAcrossReads(t *testing.T) {
	line := []byte(`{"request_id":4,"error":"success","data":{"w":1920,"h":1080}}` + "\n")

	// Every way of cutting the line into chunks of a fixed size must decode
	// exactly one message.
	for size := 1; size <= len(line); size++ {
		d := NewDecoder(zerolog.Nop())
		var msgs []Message
		for start := 0; start < len(line); start += size {
			end := start + size
			if end > len(line) {
				end = len(line)
			}
			msgs = append(msgs, d.Decode(line[start:end])...)
		}

		if len(msgs) != 1 {
			t.Fatalf("chunk size %d: got %d messages, want 1", size, len(msgs))
		}
		resp, ok := msgs[0].(Response)
		if !ok {
			t.Fatalf("chunk size %d: got %T, want Response", size, msgs[0])
		}
		if resp.ID != 4 || !resp.OK() {
			t.Errorf("chunk size %d: got %+v", size, resp)
		}
		if len(d.Remainder()) != 0 {
			t.Errorf("chunk size %d: remainder = %q, want empty", size, d.Remainder())
		}
	}
}

func TestDecodeTwoLinesAndPartial(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	partial := `{"event":"property-change","na`
	batch := `{"request_id":1,"error":"success","data":57}` + "\n" +
		`{"event":"pause"}` + "\n" +
		partial

	msgs := d.Decode([]byte(batch))
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if _, ok := msgs[0].(Response); !ok {
		t.Errorf("first message is %T, want Response", msgs[0])
	}
	if ev, ok := msgs[1].(Event); !ok || ev.Name != "pause" {
		t.Errorf("second message = %#v, want pause event", msgs[1])
	}
	if !bytes.Equal(d.Remainder(), []byte(partial)) {
		t.Errorf("remainder = %q, want %q", d.Remainder(), partial)
	}

	msgs = d.Decode([]byte(`me":"pause","data":true}` + "\n"))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages after completing line, want 1", len(msgs))
	}
	ev := msgs[0].(Event)
	if ev.Property != "pause" || ev.Data != true {
		t.Errorf("completed event = %+v", ev)
	}
}

func TestDecodeIgnoresNoise(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	input := "mpv says hello\n" +
		"\n" +
		"{not json}\n" +
		`{"something":"else"}` + "\n" +
		`{"event":"idle"}` + "\r\n"

	msgs := d.Decode([]byte(input))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if ev, ok := msgs[0].(Event); !ok || ev.Name != "idle" {
		t.Errorf("got %#v, want idle event", msgs[0])
	}
}

func TestDecodeRequestIDWins(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	msgs := d.Decode([]byte(`{"request_id":4,"error":"success","event":"seek"}` + "\n"))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if resp, ok := msgs[0].(Response); !ok || resp.ID != 4 {
		t.Errorf("got %#v, want response 4", msgs[0])
	}
}

func TestDecodeEventFields(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	msgs := d.Decode([]byte(`{"event":"end-file","reason":"eof","playlist_entry_id":3}` + "\n"))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	ev := msgs[0].(Event)
	if ev.Property != "" {
		t.Errorf("Property = %q, want empty for non property-change event", ev.Property)
	}

	var reason string
	if !ev.Field("reason", &reason) || reason != "eof" {
		t.Errorf("reason = %q", reason)
	}
	var entry int
	if !ev.Field("playlist_entry_id", &entry) || entry != 3 {
		t.Errorf("playlist_entry_id = %d", entry)
	}
	if ev.Field("missing", &reason) {
		t.Error("Field reported a missing field as present")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	line, err := Encode([]any{"loadfile", "/music/a.flac", "append-play"}, 9)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var raw struct {
		Command []any `json:"command"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		t.Fatalf("encoded line is not JSON: %v", err)
	}
	if len(raw.Command) != 3 || raw.Command[1] != "/music/a.flac" {
		t.Errorf("command = %v", raw.Command)
	}

	msgs := NewDecoder(zerolog.Nop()).Decode(line)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if resp, ok := msgs[0].(Response); !ok || resp.ID != 9 {
		t.Errorf("got %#v, want message with request_id 9", msgs[0])
	}
}

func TestResponseErr(t *testing.T) {
	ok := Response{ID: 1, Error: "success"}
	if ok.Err() != nil {
		t.Errorf("Err() = %v for success", ok.Err())
	}

	failed := Response{ID: 2, Error: "property not found"}
	err := failed.Err()
	cmdErr, isCmdErr := err.(*CommandError)
	if !isCmdErr {
		t.Fatalf("Err() = %T, want *CommandError", err)
	}
	if cmdErr.RequestID != 2 || cmdErr.Message != "property not found" {
		t.Errorf("CommandError = %+v", cmdErr)
	}
}
