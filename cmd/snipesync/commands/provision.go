package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine/provision"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the category, model and custom fields sync relies on",
	Long: `Ensure the "Cloud Infrastructure" category, the "Amazon Web Services"
manufacturer, the "EC2 Instance" model and every custom field exist, then print
the ids to paste into the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.NeedRegistry)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		client, err := newRegistryClient(cfg)
		if err != nil {
			return err
		}

		res, err := (&provision.Provisioner{Registry: client, Logger: logger}).Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("provisioning aborted: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("CONFIGURATION"))
		if err := provision.RenderConfig(out, res, cfg.Defaults.StatusID); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("FIELDS"))
		if err := provision.RenderSummary(out, res); err != nil {
			return err
		}

		if failed := res.Failed(); len(failed) > 0 {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("\n%d field(s) could not be created; rerun provision after fixing the errors above.", len(failed))))
			slog.Warn("Provisioning incomplete", "failed_fields", len(failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}
