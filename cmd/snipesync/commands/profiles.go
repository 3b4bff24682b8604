package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/engine/aws"
	"github.com/DrSkyle/snipesync/pkg/inventory"
)

// mockAccounts stand in for configuration in --mock runs.
var mockAccounts = []inventory.Account{
	{Name: "Mock Internal", Profile: "internal", DefaultRegion: "eu-south-1"},
	{Name: "Mock Customers", Profile: "customers", DefaultRegion: "eu-south-1"},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the AWS profiles found on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := aws.ListProfiles()
		if err != nil {
			return err
		}
		for _, p := range profiles {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
