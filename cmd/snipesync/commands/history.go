package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/engine/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs and fleet drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(0)
		if err != nil {
			return err
		}
		if cfg.Report.History == "" {
			return fmt.Errorf("run history is disabled (report.history is empty)")
		}
		window, err := history.NewClient(history.NewLocalBackend(cfg.Report.History)).LoadWindow(historyLimit)
		if err != nil {
			return fmt.Errorf("reading %s: %w", cfg.Report.History, err)
		}
		printHistory(cmd.OutOrStdout(), window)
		return nil
	},
}

func printHistory(out io.Writer, window []history.Snapshot) {
	if len(window) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return
	}

	fmt.Fprintln(out, titleStyle.Render("RUN HISTORY"))
	for _, s := range window {
		mode := ""
		if s.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(out, "  %s  discovered=%d created=%d updated=%d failed=%d skipped=%d%s\n",
			time.Unix(s.Timestamp, 0).UTC().Format(time.RFC3339),
			s.Discovered, s.Created, s.Updated, s.Failed, s.Skipped, mode)
	}

	d := history.Analyze(window)
	fmt.Fprintf(out, "  Drift: %+d instances since previous run\n", d.Delta)
	for _, a := range d.Alerts {
		fmt.Fprintln(out, warnStyle.Render("  "+a))
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
