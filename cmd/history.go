package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/jfmyers9/mpvremote/internal/history"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const maxTitleWidth = 60

var (
	historyLimit int
	historyPrune int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played files",
	Long: `Show the files recorded by the daemon, newest first.

Use --prune DAYS to delete entries older than DAYS days.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 = all)")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "Delete entries older than this many days")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.HistoryDB); os.IsNotExist(err) {
		fmt.Println("No history yet. Run 'mpvremote daemon' to start recording.")
		return nil
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if historyPrune > 0 {
		deleted, err := store.Cleanup(ctx, time.Duration(historyPrune)*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Deleted %d entries\n", deleted)
		return nil
	}

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = filepath.Base(e.Path)
		}
		if e.Artist != "" {
			title = e.Artist + " - " + title
		}
		if runewidth.StringWidth(title) > maxTitleWidth {
			title = padToWidth(title, maxTitleWidth)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.PlayedAt.Format("2006-01-02 15:04"), clock(e.Duration), title)
	}
	return w.Flush()
}
