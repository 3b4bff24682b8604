package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/snipesync/pkg/engine/report"
)

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.jsonl")
	c := NewClient(NewLocalBackend(path))

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := report.New("sync", false, start)
		run.Finish(nil, nil, start.Add(time.Duration(i)*time.Hour))
		require.NoError(t, c.Record(run))
	}

	all, err := c.LoadWindow(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err := c.LoadWindow(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, start.Add(2*time.Hour).Unix(), last[1].Timestamp)
}

func TestLedgerMissingFileIsEmpty(t *testing.T) {
	b := NewLocalBackend(filepath.Join(t.TempDir(), "absent.jsonl"))
	got, err := b.Load(10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLedgerSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	data := `{"timestamp":1,"discovered":4}
not json
{"timestamp":2,"discovered":5}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	got, err := NewLocalBackend(path).Load(0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[1].Discovered)
}

func TestAppendWithoutPath(t *testing.T) {
	assert.Error(t, (&FileBackend{}).Append(Snapshot{}))
}

func TestAnalyze(t *testing.T) {
	t.Run("single run", func(t *testing.T) {
		d := Analyze([]Snapshot{{Discovered: 10}})
		assert.Equal(t, 10, d.Current)
		assert.Empty(t, d.Alerts)
	})

	t.Run("stable fleet", func(t *testing.T) {
		d := Analyze([]Snapshot{
			{Accounts: 2, Discovered: 10},
			{Accounts: 2, Discovered: 9},
		})
		assert.Equal(t, -1, d.Delta)
		assert.Empty(t, d.Alerts)
	})

	t.Run("shrink and failures", func(t *testing.T) {
		d := Analyze([]Snapshot{
			{Accounts: 3, Discovered: 20, Failed: 0},
			{Accounts: 2, Discovered: 12, Failed: 4},
		})
		assert.Equal(t, -8, d.Delta)
		assert.Equal(t, 4, d.FailedRise)
		assert.Len(t, d.Alerts, 3)
	})

	t.Run("dry runs ignored", func(t *testing.T) {
		d := Analyze([]Snapshot{
			{Discovered: 20},
			{Discovered: 20},
			{Discovered: 0, DryRun: true},
		})
		assert.Equal(t, 0, d.Delta)
		assert.Empty(t, d.Alerts)
	})
}
