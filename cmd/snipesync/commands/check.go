package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine/audit"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Inspect the assets currently stored in the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.NeedRegistry)
		if err != nil {
			return err
		}
		newLogger(cfg)

		client, err := newRegistryClient(cfg)
		if err != nil {
			return err
		}

		res, err := audit.Run(cmd.Context(), client)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("REGISTRY"))
		fmt.Fprintf(out, "  URL:              %s\n", client.BaseURL())
		fmt.Fprintf(out, "  Total assets:     %d\n", res.Total)
		fmt.Fprintf(out, "  Assets retrieved: %d\n", res.Retrieved)
		if res.Total == 0 {
			fmt.Fprintln(out, warnStyle.Render("  No assets found. Check that sync ran and that assets were not created with errors."))
		}
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("  EC2 instances:    %d", len(res.EC2))))
		for _, a := range res.Sample() {
			fmt.Fprintf(out, "    - %s | %s\n", a.AssetTag, a.Name)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("STATUSES"))
		for _, s := range res.Statuses {
			if s.Err != nil {
				fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("  %s: %v", s.Name, s.Err)))
				continue
			}
			fmt.Fprintf(out, "  %-9s %d\n", s.Name+":", s.Count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
