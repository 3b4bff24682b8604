package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine/discovery"
	"github.com/DrSkyle/snipesync/pkg/engine/history"
	"github.com/DrSkyle/snipesync/pkg/engine/reconcile"
	"github.com/DrSkyle/snipesync/pkg/engine/report"
	"github.com/DrSkyle/snipesync/pkg/inventory"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sync", "discover", "provision", "check", "profiles", "permissions", "history"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, syncCmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, syncCmd.Flags().Lookup("strict"))
}

func TestWriteDiscovery(t *testing.T) {
	assets := []inventory.DiscoveredAsset{{
		Asset: inventory.Asset{
			AssetTag: "i-0abc", Serial: "i-0abc", Name: "web-1", StatusID: 2, ModelID: 1,
			Extensions: []inventory.Extension{{Key: "instance_type", FieldID: 3, Column: "_snipeit_instance_type_3", Value: "t3.micro"}},
		},
		Account: "Prod",
		Region:  "eu-south-1",
	}}
	results := []discovery.AccountResult{{Account: "Prod", Regions: []discovery.RegionResult{{Region: "eu-south-1", Instances: 1}}}}

	var buf bytes.Buffer
	require.NoError(t, writeDiscovery(&buf, assets, results))

	var decoded struct {
		Accounts []map[string]any `json:"accounts"`
		Assets   []struct {
			Account string         `json:"account"`
			Payload map[string]any `json:"payload"`
		} `json:"assets"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Assets, 1)
	assert.Equal(t, "t3.micro", decoded.Assets[0].Payload["_snipeit_instance_type_3"])
	assert.Equal(t, "Prod", decoded.Accounts[0]["account"])
}

func TestPrintRun(t *testing.T) {
	run := report.New("sync", false, time.Now())
	run.Finish(
		[]discovery.AccountResult{{Account: "Old", Reason: "credentials_unavailable", Error: "no creds", Err: assert.AnError}},
		[]reconcile.AssetResult{{AssetTag: "i-1", Action: reconcile.ActionCreate, Outcome: reconcile.OutcomeSuccess}},
		time.Now(),
	)

	var buf bytes.Buffer
	syncCmd.SetOut(&buf)
	defer syncCmd.SetOut(nil)
	printRun(syncCmd, run)

	out := buf.String()
	assert.Contains(t, out, "Created:    1")
	assert.Contains(t, out, "[Old] credentials_unavailable: no creds")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No runs recorded yet.")

	buf.Reset()
	printHistory(&buf, []history.Snapshot{
		{Timestamp: 1767225600, Accounts: 2, Discovered: 10},
		{Timestamp: 1767229200, Accounts: 2, Discovered: 4},
	})
	out := buf.String()
	assert.Contains(t, out, "2026-01-01T00:00:00Z")
	assert.Contains(t, out, "Drift: -6 instances")
	assert.Contains(t, out, "FLEET SHRINK")
}

func TestLogLevelExplicit(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("log-level", "", "")
		return fs
	}

	t.Run("default only", func(t *testing.T) {
		v := viper.New()
		config.SetDefaults(v)
		require.True(t, v.IsSet("log.level"))
		assert.False(t, logLevelExplicit(v, newFlags()))
	})

	t.Run("flag", func(t *testing.T) {
		v := viper.New()
		config.SetDefaults(v)
		fs := newFlags()
		require.NoError(t, fs.Set("log-level", "warn"))
		assert.True(t, logLevelExplicit(v, fs))
	})

	t.Run("config file", func(t *testing.T) {
		v := viper.New()
		config.SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader("log:\n  level: warn\n")))
		assert.True(t, logLevelExplicit(v, newFlags()))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(config.EnvPrefix+"_LOG_LEVEL", "error")
		v := viper.New()
		config.SetDefaults(v)
		assert.True(t, logLevelExplicit(v, newFlags()))
	})
}

func TestPermissionsCommandPrintsPolicy(t *testing.T) {
	var buf bytes.Buffer
	permissionsCmd.SetOut(&buf)
	defer permissionsCmd.SetOut(nil)

	require.NoError(t, permissionsCmd.RunE(permissionsCmd, nil))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2012-10-17", doc["Version"])
	assert.Contains(t, buf.String(), "ec2:DescribeInstances")
}
