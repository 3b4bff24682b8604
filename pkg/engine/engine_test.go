package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine/aws"
	"github.com/DrSkyle/snipesync/pkg/engine/history"
	"github.com/DrSkyle/snipesync/pkg/engine/notifier"
	"github.com/DrSkyle/snipesync/pkg/inventory"
	"github.com/DrSkyle/snipesync/pkg/snipeit"
	"github.com/DrSkyle/snipesync/pkg/storage"
)

type memRegistry struct {
	byTag   map[string]int
	creates int
	updates int
	failAll bool
	panics  bool
}

func (m *memRegistry) FindAssetByTag(ctx context.Context, tag string) (int, error) {
	if m.panics {
		panic("registry exploded")
	}
	if id, ok := m.byTag[tag]; ok {
		return id, nil
	}
	return 0, snipeit.ErrNotFound
}

func (m *memRegistry) CreateAsset(ctx context.Context, a inventory.Asset) (int, error) {
	if m.failAll {
		return 0, &snipeit.StatusError{Status: "error"}
	}
	m.creates++
	id := len(m.byTag) + 1
	m.byTag[a.AssetTag] = id
	return id, nil
}

func (m *memRegistry) UpdateAsset(ctx context.Context, id int, a inventory.Asset) error {
	m.updates++
	return nil
}

func testConfig() Config {
	app := config.Default()
	app.Accounts = []inventory.Account{{Name: "Demo", Profile: "demo"}}
	app.Registry.RequestDelay = 0
	return Config{
		App:           app,
		SkipTelemetry: true,
		Logger:        slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithConfig(cfg), WithConnector(aws.MockConnector{})}
	eng, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestSyncCreatesThenUpdates(t *testing.T) {
	reg := &memRegistry{byTag: map[string]int{}}
	store := storage.NewLocalStore(t.TempDir())
	eng := newTestEngine(t, testConfig(), WithRegistry(reg), WithStore(store))

	run, err := eng.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, run.OK())
	assert.Equal(t, 4, run.Totals.Discovered)
	assert.Equal(t, 4, run.Totals.Created)

	run, err = eng.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, run.Totals.Updated)
	assert.Equal(t, 4, reg.creates)
	assert.Equal(t, 4, reg.updates)

	keys, err := store.List(context.Background(), "runs")
	require.NoError(t, err)
	assert.Len(t, keys, 4, "json and csv per run")
}

func TestSyncStrictMode(t *testing.T) {
	cfg := testConfig()
	eng := newTestEngine(t, cfg, WithRegistry(&memRegistry{byTag: map[string]int{}, failAll: true}))
	run, err := eng.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, run.Totals.Failed)

	cfg.StrictMode = true
	eng = newTestEngine(t, cfg, WithRegistry(&memRegistry{byTag: map[string]int{}, failAll: true}))
	_, err = eng.Sync(context.Background())
	assert.ErrorIs(t, err, ErrPartialResult)
}

func TestSyncDryRun(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true
	reg := &memRegistry{byTag: map[string]int{}}

	run, err := newTestEngine(t, cfg, WithRegistry(reg)).Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, run.DryRun)
	assert.Equal(t, 4, run.Totals.Planned)
	assert.Zero(t, reg.creates)
}

func TestSyncRequiresRegistryConfig(t *testing.T) {
	_, err := newTestEngine(t, testConfig()).Sync(context.Background())
	assert.ErrorContains(t, err, "registry base url")
}

func TestSyncNotifies(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	eng := newTestEngine(t, testConfig(),
		WithRegistry(&memRegistry{byTag: map[string]int{}}),
		WithNotifier(notifier.NewSlackClient(srv.URL, "")),
	)
	_, err := eng.Sync(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestSyncRecordsHistory(t *testing.T) {
	cfg := testConfig()
	cfg.App.Report.History = filepath.Join(t.TempDir(), "ledger.jsonl")
	eng := newTestEngine(t, cfg, WithRegistry(&memRegistry{byTag: map[string]int{}}))

	for i := 0; i < 2; i++ {
		_, err := eng.Sync(context.Background())
		require.NoError(t, err)
	}

	window, err := history.NewClient(history.NewLocalBackend(cfg.App.Report.History)).LoadWindow(0)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, 4, window[0].Created)
	assert.Equal(t, 4, window[1].Updated)
}

func TestSyncReturnsRunWhenDiscoverySetupFails(t *testing.T) {
	cfg := testConfig()
	cfg.App.Filter = "state =="
	reg := &memRegistry{byTag: map[string]int{}}

	run, err := newTestEngine(t, cfg, WithRegistry(reg)).Sync(context.Background())
	require.Error(t, err)
	require.NotNil(t, run)
	assert.False(t, run.FinishedAt.IsZero())
	assert.Zero(t, run.Totals.Discovered)
	assert.Zero(t, reg.creates)
}

func TestDiscoverFilter(t *testing.T) {
	cfg := testConfig()
	cfg.App.Filter = `state == "running"`
	cfg.App.Regions = []string{"eu-south-1"}

	assets, results, err := newTestEngine(t, cfg).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "mock-web", assets[0].Asset.Name)
	assert.Equal(t, 1, results[0].Regions[0].Filtered)
}

func TestPanicBecomesError(t *testing.T) {
	eng := newTestEngine(t, testConfig(), WithRegistry(&memRegistry{byTag: map[string]int{}, panics: true}))
	_, err := eng.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry exploded")
}

func TestCanceledSyncReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := newTestEngine(t, testConfig(), WithRegistry(&memRegistry{byTag: map[string]int{}})).Sync(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, run)
	assert.Equal(t, 1, run.Totals.AccountsFailed)
}

func TestEngineDefaults(t *testing.T) {
	eng, err := New(context.Background(), WithConfig(Config{SkipTelemetry: true}), WithClock(func() time.Time { return time.Unix(0, 0) }))
	require.NoError(t, err)
	assert.NotNil(t, eng.Logger)
	assert.IsType(t, aws.ProfileConnector{}, eng.Connector)
	assert.Nil(t, eng.Notifier)
	assert.NoError(t, eng.Close(context.Background()))
}

func TestNewLoggerRedacts(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "json", "debug")
	log.Debug("connecting", "token", "s3cr3t", "account", "Prod")

	out := buf.String()
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "Prod")
	assert.True(t, strings.HasPrefix(out, "{"))

	buf.Reset()
	NewLogger(&buf, "text", "warn").Info("hidden")
	assert.Empty(t, buf.String())
}
