package cmd

import (
	"context"
	"path/filepath"

	"github.com/jfmyers9/mpvremote/internal/config"
	"github.com/jfmyers9/mpvremote/internal/ipc"
	"github.com/jfmyers9/mpvremote/internal/repl"
	"github.com/spf13/cobra"
)

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive shell for mpv commands",
	Long: `Start an interactive shell that sends each line to mpv as a command.

Words become the elements of mpv's JSON command array:

  mpv> get_property volume
  50
  mpv> :observe time-pos

Line editing and history are available on a terminal. Piped input is
read line by line, so scripts can be fed through the shell:

  printf 'cycle pause\n' | mpvremote repl

Type :help inside the shell for its own commands.`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	editor := repl.NewLineEditor(filepath.Join(config.GetDataDir(), "repl_history"))
	defer editor.Close()

	// Connection problems are printed as they happen.
	logger := setupLogger("", logLevel)
	client := ipc.New(cfg.IPC(), logger)
	defer client.Disconnect(nil)

	ctx := context.Background()
	if err := client.Connect(ctx, nil); err != nil {
		// Stay in the shell; :connect retries.
		logger.Warn().Err(err).Msg("Not connected")
	}

	return repl.New(client, editor).Run(ctx)
}
