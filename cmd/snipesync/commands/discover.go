package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine"
	"github.com/DrSkyle/snipesync/pkg/engine/discovery"
	"github.com/DrSkyle/snipesync/pkg/inventory"
	"github.com/DrSkyle/snipesync/pkg/snipeit"
)

var discoverOutput string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List normalized instances without touching the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.NeedAccounts)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd.Context(), cfg, engine.Config{})
		if err != nil {
			return err
		}
		defer closeEngine(eng)

		assets, results, err := eng.Discover(cmd.Context())
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if discoverOutput != "" && discoverOutput != "-" {
			f, err := os.Create(discoverOutput)
			if err != nil {
				return fmt.Errorf("create %s: %w", discoverOutput, err)
			}
			defer f.Close()
			w = f
		}
		return writeDiscovery(w, assets, results)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "-", "Write JSON to this file (- for stdout)")
}

type discoveredRecord struct {
	Account string         `json:"account"`
	Region  string         `json:"region"`
	Payload map[string]any `json:"payload"`
}

func writeDiscovery(w io.Writer, assets []inventory.DiscoveredAsset, results []discovery.AccountResult) error {
	records := make([]discoveredRecord, 0, len(assets))
	for _, a := range assets {
		records = append(records, discoveredRecord{
			Account: a.Account,
			Region:  a.Region,
			Payload: snipeit.AssetPayload(a.Asset),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Accounts []discovery.AccountResult `json:"accounts"`
		Assets   []discoveredRecord        `json:"assets"`
	}{results, records})
}
