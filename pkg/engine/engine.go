// Package engine wires discovery, reconciliation and reporting into a sync run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine/aws"
	"github.com/DrSkyle/snipesync/pkg/engine/discovery"
	"github.com/DrSkyle/snipesync/pkg/engine/history"
	"github.com/DrSkyle/snipesync/pkg/engine/notifier"
	"github.com/DrSkyle/snipesync/pkg/engine/policy"
	"github.com/DrSkyle/snipesync/pkg/engine/reconcile"
	"github.com/DrSkyle/snipesync/pkg/engine/report"
	"github.com/DrSkyle/snipesync/pkg/inventory"
	"github.com/DrSkyle/snipesync/pkg/snipeit"
	"github.com/DrSkyle/snipesync/pkg/storage"
	"github.com/DrSkyle/snipesync/pkg/telemetry"
	"github.com/DrSkyle/snipesync/pkg/version"
)

// ErrPartialResult indicates the run completed but some units failed or were skipped.
var ErrPartialResult = errors.New("sync completed with partial results")

// Config holds engine settings.
type Config struct {
	App config.Config

	DryRun      bool
	MockMode    bool
	AllProfiles bool

	// StrictMode forces a non-zero exit code on partial failures.
	StrictMode bool

	// SkipTelemetry leaves the global tracer provider alone, for embedding.
	SkipTelemetry bool

	Logger *slog.Logger
}

// Engine is the runtime core.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	config Config

	// External dependencies, built from config unless injected.
	Connector aws.Connector
	Registry  reconcile.Registry
	Store     storage.BlobStore
	Notifier  *notifier.SlackClient

	now      func() time.Time
	shutdown func(context.Context) error
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Logger: NewLogger(os.Stdout, config.DefaultLogFormat, config.DefaultLogLevel),
		Tracer: otel.Tracer("snipesync/engine"),
		config: Config{App: config.Default()},
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.Connector == nil {
		if e.config.MockMode {
			e.Connector = aws.MockConnector{}
		} else {
			e.Connector = aws.ProfileConnector{Verbose: e.config.App.Verbose}
		}
	}
	if e.Notifier == nil && e.config.App.Notify.SlackWebhook != "" {
		e.Notifier = notifier.NewSlackClient(e.config.App.Notify.SlackWebhook, e.config.App.Notify.SlackChannel)
	}

	if !e.config.SkipTelemetry && !e.config.App.Telemetry.Disabled {
		shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, e.config.App.Telemetry.Endpoint)
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
		}
	}

	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConfig sets raw config.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
	}
}

// WithConnector overrides how AWS sessions are opened.
func WithConnector(c aws.Connector) Option {
	return func(e *Engine) { e.Connector = c }
}

// WithRegistry injects the registry client.
func WithRegistry(r reconcile.Registry) Option {
	return func(e *Engine) { e.Registry = r }
}

// WithStore sets where run reports are written.
func WithStore(s storage.BlobStore) Option {
	return func(e *Engine) { e.Store = s }
}

// WithNotifier sets the Slack client.
func WithNotifier(n *notifier.SlackClient) Option {
	return func(e *Engine) { e.Notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// Accounts returns the accounts to scan: the configured list, or one account per
// local AWS profile when AllProfiles is set.
func (e *Engine) Accounts() ([]inventory.Account, error) {
	if !e.config.AllProfiles {
		return e.config.App.Accounts, nil
	}
	profiles, err := aws.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list aws profiles: %w", err)
	}
	accounts := make([]inventory.Account, 0, len(profiles))
	for _, p := range profiles {
		accounts = append(accounts, inventory.Account{Name: p, Profile: p})
	}
	e.Logger.Info("Scanning all profiles", "profiles", len(accounts))
	return accounts, nil
}

func (e *Engine) discoverer() (*discovery.Discoverer, error) {
	fields, err := e.config.App.FieldMap()
	if err != nil {
		return nil, err
	}
	sel, err := policy.NewSelector(e.config.App.Filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return &discovery.Discoverer{
		Connector:  e.Connector,
		Normalizer: inventory.Normalizer{Fields: fields, Defaults: e.config.App.Defaults},
		Selector:   sel,
		Regions:    e.config.App.Regions,
		Logger:     e.Logger,
	}, nil
}

// Discover runs discovery only.
func (e *Engine) Discover(ctx context.Context) (assets []inventory.DiscoveredAsset, results []discovery.AccountResult, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Discover")
	defer span.End()
	defer e.recoverPanic(ctx, &err)

	accounts, err := e.Accounts()
	if err != nil {
		return nil, nil, err
	}
	d, err := e.discoverer()
	if err != nil {
		return nil, nil, err
	}

	assets, results = d.Discover(ctx, accounts)
	span.SetAttributes(attribute.Int("discovery.assets", len(assets)))
	e.Logger.Info("Discovery finished", "accounts", len(results), "assets", len(assets))
	return assets, results, nil
}

// Sync runs discovery followed by reconciliation, persists the run report and
// sends the notification. The returned run is non-nil whenever discovery started.
func (e *Engine) Sync(ctx context.Context) (run *report.Run, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Sync")
	defer span.End()
	defer e.recoverPanic(ctx, &err)

	registry, err := e.registry()
	if err != nil {
		return nil, err
	}

	e.Logger.Info("Starting sync", "version", version.Current, "dry_run", e.config.DryRun)
	run = report.New("sync", e.config.DryRun, e.now())

	assets, accounts, err := e.Discover(ctx)
	if err != nil {
		run.Finish(nil, nil, e.now())
		return run, err
	}

	rec := &reconcile.Reconciler{
		Registry: registry,
		Delay:    e.config.App.Registry.RequestDelay,
		DryRun:   e.config.DryRun,
		Logger:   e.Logger,
	}
	if rec.Delay == 0 {
		rec.Delay = -1
	}
	results, _ := rec.Run(ctx, assets)
	run.Finish(accounts, results, e.now())

	e.publish(ctx, run)

	span.SetAttributes(
		attribute.Int("sync.created", run.Totals.Created),
		attribute.Int("sync.updated", run.Totals.Updated),
		attribute.Int("sync.failed", run.Totals.Failed),
		attribute.Int("sync.skipped", run.Totals.Skipped),
	)

	if err := ctx.Err(); err != nil {
		return run, err
	}
	if !run.OK() {
		span.SetAttributes(attribute.Bool("sync.partial", true))
		if e.config.StrictMode {
			e.Logger.Error("Strict Mode: Failing due to partial sync results")
			return run, ErrPartialResult
		}
		e.Logger.Warn("Sync finished with partial errors (StrictMode=false)")
	}
	return run, nil
}

func (e *Engine) registry() (reconcile.Registry, error) {
	if e.Registry != nil {
		return e.Registry, nil
	}
	rc := e.config.App.Registry
	client, err := snipeit.NewClient(snipeit.Config{
		BaseURL:       rc.URL,
		Token:         rc.Token,
		Timeout:       rc.Timeout,
		LookupTimeout: rc.LookupTimeout,
	})
	if err != nil {
		return nil, err
	}
	e.Registry = client
	return client, nil
}

// publish writes the report and sends the notification. Failures are logged only.
func (e *Engine) publish(ctx context.Context, run *report.Run) {
	// Publishing happens even after an interrupt.
	ctx = context.WithoutCancel(ctx)

	store := e.Store
	if store == nil && e.config.App.Report.Output != "" {
		s, err := storage.Open(ctx, e.config.App.Report.Output, func(ctx context.Context) (awssdk.Config, error) {
			return awsconfig.LoadDefaultConfig(ctx)
		})
		if err != nil {
			e.Logger.Warn("Report storage unavailable", "target", e.config.App.Report.Output, "error", err)
		} else {
			store = s
		}
	}
	if store != nil {
		if key, err := report.Save(ctx, store, run); err != nil {
			e.Logger.Warn("Failed to save run report", "error", err)
		} else {
			e.Logger.Info("Run report saved", "key", key)
		}
	}

	if path := e.config.App.Report.History; path != "" {
		ledger := history.NewClient(history.NewLocalBackend(path))
		if err := ledger.Record(run); err != nil {
			e.Logger.Warn("Failed to append run history", "path", path, "error", err)
		} else if window, err := ledger.LoadWindow(10); err == nil {
			for _, alert := range history.Analyze(window).Alerts {
				e.Logger.Warn("Fleet drift", "alert", alert)
			}
		}
	}

	if e.Notifier != nil {
		if err := e.Notifier.SendRunSummary(ctx, run); err != nil {
			e.Logger.Warn("Slack notification failed", "error", err)
		}
	}
}

// recoverPanic turns a panic into an error and records it.
func (e *Engine) recoverPanic(ctx context.Context, errp *error) {
	if r := recover(); r != nil {
		_, span := otel.Tracer("snipesync/engine").Start(ctx, "CriticalPanic")

		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.stack", string(stack)),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
		*errp = fmt.Errorf("internal error: %v", r)
	}
}
