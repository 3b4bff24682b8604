// Package reconcile pushes discovered assets into the registry, one at a time.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/snipesync/pkg/inventory"
	"github.com/DrSkyle/snipesync/pkg/snipeit"
)

// DefaultDelay is the pause between assets.
const DefaultDelay = 500 * time.Millisecond

// Registry is the part of the registry client reconciliation needs.
type Registry interface {
	FindAssetByTag(ctx context.Context, tag string) (int, error)
	CreateAsset(ctx context.Context, a inventory.Asset) (int, error)
	UpdateAsset(ctx context.Context, id int, a inventory.Asset) error
}

// Reconciler creates or updates one registry record per asset.
type Reconciler struct {
	Registry Registry
	// Delay is the pause after each asset. Zero means DefaultDelay; negative disables it.
	Delay time.Duration
	// DryRun performs lookups only.
	DryRun bool
	Logger *slog.Logger
	Tracer trace.Tracer

	sleep func(context.Context, time.Duration) error
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Reconciler) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return otel.Tracer("snipesync/reconcile")
}

func (r *Reconciler) delay() time.Duration {
	switch {
	case r.Delay < 0:
		return 0
	case r.Delay == 0:
		return DefaultDelay
	}
	return r.Delay
}

// Run reconciles assets in order. Cancellation stops the loop between assets;
// assets not reached are reported as skipped.
func (r *Reconciler) Run(ctx context.Context, assets []inventory.DiscoveredAsset) ([]AssetResult, Summary) {
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	results := make([]AssetResult, 0, len(assets))
	for i, a := range assets {
		if err := ctx.Err(); err != nil {
			res := AssetResult{AssetTag: a.AssetTag(), Account: a.Account, Region: a.Region, State: StatePending, Action: ActionSkip}
			res.fail(OutcomeSkipped, ReasonCanceled, err)
			results = append(results, res)
			continue
		}

		results = append(results, r.reconcileOne(ctx, a))

		if i < len(assets)-1 {
			if d := r.delay(); d > 0 {
				_ = sleep(ctx, d)
			}
		}
	}

	sum := Summarize(results)
	r.logger().Info("Reconciliation finished",
		"total", sum.Total, "created", sum.Created, "updated", sum.Updated,
		"failed", sum.Failed, "skipped", sum.Skipped, "dry_run", r.DryRun)
	return results, sum
}

func (r *Reconciler) reconcileOne(ctx context.Context, a inventory.DiscoveredAsset) AssetResult {
	tag := a.AssetTag()
	log := r.logger().With("asset_tag", tag, "account", a.Account, "region", a.Region)
	res := AssetResult{AssetTag: tag, Account: a.Account, Region: a.Region, State: StatePending}

	ctx, span := r.tracer().Start(ctx, "Reconcile.Asset", trace.WithAttributes(
		attribute.String("asset.tag", tag),
		attribute.String("account.name", a.Account),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("reconcile.state", string(res.State)),
			attribute.String("reconcile.action", string(res.Action)),
			attribute.String("reconcile.outcome", string(res.Outcome)),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Reason)
		}
		span.End()
	}()

	id, err := r.Registry.FindAssetByTag(ctx, tag)
	switch {
	case err == nil:
		res.State, res.Action, res.RegistryID = StateFound, ActionUpdate, id
	case errors.Is(err, snipeit.ErrNotFound):
		res.State, res.Action = StateNotFound, ActionCreate
	default:
		res.State, res.Action = StateLookupFailed, ActionSkip
		res.fail(OutcomeSkipped, ReasonLookupFailed, err)
		log.Error("[SKIPPED] Registry lookup failed", "error", err)
		return res
	}

	if r.DryRun {
		res.Outcome = OutcomePlanned
		log.Info("[PLANNED] "+string(res.Action), "registry_id", res.RegistryID)
		return res
	}

	switch res.Action {
	case ActionUpdate:
		err = r.Registry.UpdateAsset(ctx, id, a.Asset)
	case ActionCreate:
		id, err = r.Registry.CreateAsset(ctx, a.Asset)
		if err == nil {
			res.RegistryID = id
		}
	}
	if err != nil {
		res.fail(OutcomeFailed, classify(err), err)
		log.Error("[FAILED] Registry "+string(res.Action)+" failed", "reason", res.Reason, "error", err)
		return res
	}

	res.Outcome = OutcomeSuccess
	if res.Action == ActionCreate {
		log.Info("[SUCCESS] Created asset", "registry_id", res.RegistryID)
	} else {
		log.Info("[SUCCESS] Updated asset", "registry_id", res.RegistryID)
	}
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
