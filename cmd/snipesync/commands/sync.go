package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine"
	"github.com/DrSkyle/snipesync/pkg/engine/report"
)

var syncOpts struct {
	DryRun bool
	Strict bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Discover instances and create or update registry assets",
	Long: `Discover running and stopped EC2 instances in every configured account and
reconcile them into Snipe-IT by asset tag (the instance id).

Example:
  snipesync sync --config ./snipesync.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.NeedRegistry | config.NeedAccounts)
		if err != nil {
			return err
		}

		eng, err := newEngine(cmd.Context(), cfg, engine.Config{
			DryRun:     syncOpts.DryRun,
			StrictMode: syncOpts.Strict,
		})
		if err != nil {
			return err
		}
		defer closeEngine(eng)

		run, err := eng.Sync(cmd.Context())
		if run != nil {
			printRun(cmd, run)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncOpts.DryRun, "dry-run", false, "Look up assets but do not write to the registry")
	syncCmd.Flags().BoolVar(&syncOpts.Strict, "strict", false, "Exit non-zero when any unit fails or is skipped")
}

func printRun(cmd *cobra.Command, run *report.Run) {
	out := cmd.OutOrStdout()
	t := run.Totals

	fmt.Fprintln(out, titleStyle.Render("SYNC SUMMARY"))
	fmt.Fprintf(out, "  Run:        %s (%s)\n", run.RunID, run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "  Accounts:   %d (%d failed)\n", t.Accounts, t.AccountsFailed)
	fmt.Fprintf(out, "  Regions:    %d (%d failed)\n", t.Regions, t.RegionsFailed)
	fmt.Fprintf(out, "  Discovered: %d (%d filtered out)\n", t.Discovered, t.Filtered)
	if run.DryRun {
		fmt.Fprintf(out, "  Planned:    %d\n", t.Planned)
	} else {
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("  Created:    %d", t.Created)))
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("  Updated:    %d", t.Updated)))
	}
	if t.Failed > 0 {
		fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("  Failed:     %d", t.Failed)))
	}
	if t.Skipped > 0 {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("  Skipped:    %d", t.Skipped)))
	}

	for _, a := range run.Accounts {
		if a.Err != nil {
			fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("  [%s] %s: %s", a.Account, a.Reason, a.Error)))
			continue
		}
		for _, r := range a.Regions {
			if r.Err != nil {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("  [%s/%s] %s: %s", a.Account, r.Region, r.Reason, r.Error)))
			}
		}
	}
}
