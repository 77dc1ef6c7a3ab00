package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// historySize is the maximum number of history entries to retain
const historySize = 500

// LineEditor reads command lines. On a terminal it uses readline with
// persistent history; on piped input it reads plain lines.
type LineEditor struct {
	interactive bool
	rl          *readline.Instance
	scanner     *bufio.Scanner
	out         io.Writer
}

// NewLineEditor creates a LineEditor for stdin, keeping history in
// historyPath when interactive
func NewLineEditor(historyPath string) *LineEditor {
	isInteractive := term.IsTerminal(int(os.Stdin.Fd())) &&
		os.Getenv("INSIDE_EMACS") == ""

	if !isInteractive {
		return NewPipedEditor(os.Stdin, os.Stdout)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return NewPipedEditor(os.Stdin, os.Stdout)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
		out:         rl,
	}
}

// NewPipedEditor creates a non-interactive LineEditor over in and out
func NewPipedEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// GetLine reads a line. It returns io.EOF on Ctrl-D, Ctrl-C or end of input.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		le.rl.SetPrompt(prompt)
		line, err := le.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return "", io.EOF
			}
			return "", err
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			le.rl.SaveToHistory(trimmed)
		}
		return line, nil
	}

	fmt.Fprint(le.out, prompt)
	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Output returns the writer for asynchronous output. On a terminal it
// redraws the prompt after each write.
func (le *LineEditor) Output() io.Writer {
	return le.out
}

// Close saves history and releases the terminal. Safe to call twice.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether the editor is attached to a terminal
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
