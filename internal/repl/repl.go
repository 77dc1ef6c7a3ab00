package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jfmyers9/mpvremote/internal/ipc"
)

const defaultTimeout = 5 * time.Second

const helpText = `Commands are sent to mpv as a JSON command array, one word per element:
  get_property volume
  set_property pause yes
  loadfile "/music/some file.flac" append-play

Quote words containing spaces. Lines starting with ':' control the shell:
  :observe NAME     print every change of property NAME
  :unobserve NAME   stop printing changes of NAME
  :listen EVENT     print every EVENT
  :connect          connect to mpv
  :disconnect       disconnect from mpv
  :status           show the connection state
  :help             show this help
  :quit             leave the shell
`

// REPL is an interactive shell for mpv commands
type REPL struct {
	client  *ipc.Client
	editor  *LineEditor
	timeout time.Duration

	mu  sync.Mutex
	out io.Writer
}

// New creates a REPL reading from editor and sending to client
func New(client *ipc.Client, editor *LineEditor) *REPL {
	return &REPL{
		client:  client,
		editor:  editor,
		timeout: defaultTimeout,
		out:     editor.Output(),
	}
}

// Run reads and executes lines until end of input, :quit or ctx is done
func (r *REPL) Run(ctx context.Context) error {
	if r.editor.IsInteractive() {
		r.printf("mpv socket %s (%s). Type :help for help.\n", r.client.SocketPath(), r.client.State())
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.editor.GetLine(r.prompt())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := r.Exec(ctx, line)
		var cmdErr *ipc.CommandError
		switch {
		case errors.As(err, &cmdErr):
			r.printf("error: %s\n", cmdErr.Message)
		case err != nil:
			r.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	if r.client.IsConnected() {
		return "mpv> "
	}
	return "mpv (disconnected)> "
}

// Exec runs a single line. It reports whether the shell should exit.
func (r *REPL) Exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}

	args, err := SplitArgs(line)
	if err != nil {
		return false, err
	}

	if strings.HasPrefix(args[0], ":") {
		return r.meta(ctx, args)
	}

	parts := make([]any, len(args))
	for i, a := range args {
		parts[i] = a
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Call(callCtx, parts...)
	if err != nil {
		return false, err
	}
	if resp.Data == nil {
		r.printf("ok\n")
		return false, nil
	}
	r.printf("%s\n", encode(resp.Data))
	return false, nil
}

// meta runs a shell command
func (r *REPL) meta(ctx context.Context, args []string) (bool, error) {
	name := strings.TrimPrefix(args[0], ":")
	needArg := func() (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf(":%s takes exactly one argument", name)
		}
		return args[1], nil
	}

	switch name {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help":
		r.printf("%s", helpText)
	case "status":
		r.printf("%s (%s), %d pending\n", r.client.State(), r.client.SocketPath(), r.client.Pending())
		if names := r.client.Observed(); len(names) > 0 {
			r.printf("observing: %s\n", strings.Join(names, ", "))
		}
	case "connect":
		return false, r.client.Connect(ctx, nil)
	case "disconnect":
		r.client.Disconnect(nil)
	case "observe":
		prop, err := needArg()
		if err != nil {
			return false, err
		}
		return false, r.client.ObserveProperty(prop, func(ev ipc.Event) {
			r.printf("%s = %s\n", ev.Property, encode(ev.Data))
		})
	case "unobserve":
		prop, err := needArg()
		if err != nil {
			return false, err
		}
		return false, r.client.UnobserveProperty(prop)
	case "listen":
		event, err := needArg()
		if err != nil {
			return false, err
		}
		return false, r.client.Listen(event, func(ev ipc.Event) {
			r.printf("event %s\n", ev.Name)
		})
	default:
		return false, fmt.Errorf("unknown command :%s (try :help)", name)
	}
	return false, nil
}

// printf writes to the output; callbacks print from the poll goroutine
func (r *REPL) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// SplitArgs splits a line into words. Single and double quotes group
// words, and a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("trailing backslash")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}
