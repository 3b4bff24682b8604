package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/engine/permissions"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Generate Least-Privilege IAM Policy",
	Long:  `Generates the AWS IAM JSON policy each scanned account needs to run snipesync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(0)
		if err != nil {
			return err
		}
		jsonBytes, err := permissions.GeneratePolicy(cfg.Report.Output)
		if err != nil {
			return fmt.Errorf("generating policy: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(permissionsCmd)
}
