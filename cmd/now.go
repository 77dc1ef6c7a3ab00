/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/mpvremote/internal/daemon"
	"github.com/jfmyers9/mpvremote/internal/player"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the file mpv is playing",
	Long: `Query mpv and display the file it is playing.

The output format can be customized in ~/.config/mpvremote/config.yaml
using a Go template. Available fields: .Title, .Artist, .Album, .Path,
.Duration, .Position, .Volume, .State. The clock function formats a
duration as [h:]mm:ss, e.g. {{clock .Position}}.

With --state the track is read from the running daemon's state file
instead of the socket, which is cheaper for frequent status line updates.

Exit codes:
  0 - A file is playing
  1 - Nothing playing, paused, or mpv not running`,
	Args: cobra.NoArgs,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("state", false, "Read the daemon's state file instead of querying mpv")
	nowCmd.Flags().Bool("paused", false, "Also print when paused")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	var track *player.Track
	if fromState, _ := cmd.Flags().GetBool("state"); fromState {
		state, err := daemon.ReadState(cfg.StateFile)
		if err != nil {
			return fmt.Errorf("failed to read daemon state: %w", err)
		}
		track = state.Track
	} else {
		err = withPlayer(ctx, func(ctx context.Context, c *player.IPCController) error {
			track, err = c.GetCurrentTrack(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to get current track: %w", err)
		}
	}

	showPaused, _ := cmd.Flags().GetBool("paused")
	if !shouldShow(track, showPaused) {
		os.Exit(1)
		return nil
	}

	output, err := formatTrack(track, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}
	if width > 0 {
		output = padToWidth(output, width)
	}

	fmt.Println(output)
	return nil
}

// shouldShow reports whether a track is worth printing
func shouldShow(track *player.Track, showPaused bool) bool {
	if track == nil {
		return false
	}
	switch track.State {
	case player.StatePlaying:
		return true
	case player.StatePaused:
		return showPaused
	default:
		return false
	}
}

var templateFuncs = template.FuncMap{
	"clock": clock,
}

// formatTrack applies the template to the track data
func formatTrack(track *player.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Funcs(templateFuncs).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// clock formats a duration as mm:ss, or h:mm:ss past an hour
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Wide runes can leave the truncation one column short
		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
