package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jfmyers9/mpvremote/internal/player"
	"github.com/spf13/cobra"
)

const controlTimeout = 5 * time.Second

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume playback",
	Long:  `Resume playback in mpv by clearing the pause property.`,
	Args:  cobra.NoArgs,
	RunE: controlRunner("play", func(ctx context.Context, c *player.IPCController, _ []string) error {
		return c.Play(ctx)
	}),
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Long:  `Pause playback in mpv by setting the pause property.`,
	Args:  cobra.NoArgs,
	RunE: controlRunner("pause", func(ctx context.Context, c *player.IPCController, _ []string) error {
		return c.Pause(ctx)
	}),
}

// toggleCmd represents the toggle command
var toggleCmd = &cobra.Command{
	Use:     "toggle",
	Aliases: []string{"playpause"},
	Short:   "Toggle play/pause",
	Long:    `Toggle between play and pause. If playing, pauses. If paused, resumes.`,
	Args:    cobra.NoArgs,
	RunE: controlRunner("toggle", func(ctx context.Context, c *player.IPCController, _ []string) error {
		return c.PlayPause(ctx)
	}),
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next playlist entry",
	Args:  cobra.NoArgs,
	RunE: controlRunner("skip to next entry", func(ctx context.Context, c *player.IPCController, _ []string) error {
		return c.NextTrack(ctx)
	}),
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to the previous playlist entry",
	Args:  cobra.NoArgs,
	RunE: controlRunner("go to previous entry", func(ctx context.Context, c *player.IPCController, _ []string) error {
		return c.PreviousTrack(ctx)
	}),
}

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback and clear the playlist",
	Args:  cobra.NoArgs,
	RunE: controlRunner("stop", func(ctx context.Context, c *player.IPCController, _ []string) error {
		return c.Stop(ctx)
	}),
}

// shuffleCmd represents the shuffle command
var shuffleCmd = &cobra.Command{
	Use:   "shuffle on|off",
	Short: "Shuffle or unshuffle the playlist",
	Args:  cobra.ExactArgs(1),
	RunE: controlRunner("set shuffle", func(ctx context.Context, c *player.IPCController, args []string) error {
		switch args[0] {
		case "on":
			return c.SetShuffle(ctx, true)
		case "off":
			return c.SetShuffle(ctx, false)
		default:
			return fmt.Errorf("invalid shuffle argument: %s (must be 'on' or 'off')", args[0])
		}
	}),
}

// volumeCmd represents the volume command
var volumeCmd = &cobra.Command{
	Use:   "volume [level|+step|-step]",
	Short: "Show or set the playback volume",
	Long: fmt.Sprintf(`Show or set the playback volume in percent.

Without arguments, prints the current volume.
A plain number sets the volume (0-%d); +N and -N change it relative
to the current level. Use "--" before negative steps: volume -- -5`, player.MaxVolume),
	Args: cobra.MaximumNArgs(1),
	RunE: controlRunner("set volume", func(ctx context.Context, c *player.IPCController, args []string) error {
		current, err := c.GetProperty(ctx, "volume")
		if err != nil {
			return err
		}
		level, _ := current.(float64)

		if len(args) == 0 {
			fmt.Printf("%.0f\n", level)
			return nil
		}

		target, err := parseVolume(args[0], level)
		if err != nil {
			return err
		}
		return c.SetVolume(ctx, target)
	}),
}

// seekCmd represents the seek command
var seekCmd = &cobra.Command{
	Use:   "seek position",
	Short: "Seek within the current file",
	Long: `Seek within the current file.

A position with a leading + or - is relative to the current position,
anything else is absolute. Positions are seconds or [h:]mm:ss.
Use "--" before negative offsets:

  mpvremote seek 1:30      # jump to 1m30s
  mpvremote seek +10       # forward 10 seconds
  mpvremote seek -- -10    # back 10 seconds`,
	Args: cobra.ExactArgs(1),
	RunE: controlRunner("seek", func(ctx context.Context, c *player.IPCController, args []string) error {
		seconds, absolute, err := parseSeek(args[0])
		if err != nil {
			return err
		}
		return c.Seek(ctx, seconds, absolute)
	}),
}

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load file|url...",
	Short: "Load files or URLs",
	Long: `Load files or URLs into mpv.

The first file replaces the playlist unless --append is given;
any further files are appended after it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: controlRunner("load", func(ctx context.Context, c *player.IPCController, args []string) error {
		for i, path := range args {
			if err := c.LoadFile(ctx, path, loadAppend || i > 0); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	}),
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get property",
	Short: "Print a property value as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: controlRunner("get property", func(ctx context.Context, c *player.IPCController, args []string) error {
		value, err := c.GetProperty(ctx, args[0])
		if err != nil {
			return err
		}
		out, err := json.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}),
}

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set property value",
	Short: "Set a property",
	Long: `Set a property. The value is parsed as JSON when possible
(numbers, true/false, lists), and used as a plain string otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: controlRunner("set property", func(ctx context.Context, c *player.IPCController, args []string) error {
		return c.SetProperty(ctx, args[0], parseValue(args[1]))
	}),
}

var loadAppend bool

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)

	loadCmd.Flags().BoolVarP(&loadAppend, "append", "a", false, "Append to the playlist instead of replacing it")
}

// controlRunner wraps a controller operation as a cobra RunE
func controlRunner(action string, fn func(ctx context.Context, c *player.IPCController, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
		defer cancel()

		err := withPlayer(ctx, func(ctx context.Context, c *player.IPCController) error {
			return fn(ctx, c, args)
		})
		if err != nil {
			return fmt.Errorf("failed to %s: %w", action, err)
		}
		return nil
	}
}

// parseSeek parses a seek position. A leading sign makes it relative.
func parseSeek(arg string) (seconds float64, absolute bool, err error) {
	s := strings.TrimSpace(arg)
	if s == "" {
		return 0, false, fmt.Errorf("empty seek position")
	}

	sign := 1.0
	absolute = true
	switch s[0] {
	case '+':
		absolute = false
		s = s[1:]
	case '-':
		absolute = false
		sign = -1
		s = s[1:]
	}

	seconds, err = parseClock(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid seek position %q: %w", arg, err)
	}
	return sign * seconds, absolute, nil
}

// parseClock parses seconds or [h:]mm:ss
func parseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many fields")
	}

	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad field %q", p)
		}
		// Only the leading field may exceed 59
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("field %q out of range", p)
		}
		total = total*60 + v
	}
	return total, nil
}

// parseVolume resolves a volume argument against the current level
func parseVolume(arg string, current float64) (int, error) {
	relative := strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-")

	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid volume level: %s (must be a number 0-%d)", arg, player.MaxVolume)
	}

	level := n
	if relative {
		level = int(current) + n
	}
	if level < 0 {
		level = 0
	}
	if level > player.MaxVolume {
		level = player.MaxVolume
	}
	return level, nil
}

// parseValue decodes JSON scalars and lists, falling back to the raw string
func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		return v
	}
	return arg
}
