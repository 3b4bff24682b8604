// Package discovery walks accounts and regions and turns live EC2 instances
// into inventory assets.
package discovery

import (
	"context"
	"log/slog"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/snipesync/pkg/engine/aws"
	"github.com/DrSkyle/snipesync/pkg/engine/policy"
	"github.com/DrSkyle/snipesync/pkg/inventory"
)

// DefaultRegion is used for session setup when an account names none.
const DefaultRegion = "eu-south-1"

// Discoverer lists instances for a set of accounts, one unit at a time.
type Discoverer struct {
	Connector  aws.Connector
	Normalizer inventory.Normalizer
	// Selector filters instances; nil keeps all.
	Selector *policy.Selector
	// Regions, when set, narrows the enumerated region list.
	Regions []string
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

func (d *Discoverer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Discoverer) tracer() trace.Tracer {
	if d.Tracer != nil {
		return d.Tracer
	}
	return otel.Tracer("snipesync/discovery")
}

// Discover processes accounts in order. Failures are recorded in the results and
// never abort the remaining accounts or regions. Assets are returned in
// account, region, page order.
func (d *Discoverer) Discover(ctx context.Context, accounts []inventory.Account) ([]inventory.DiscoveredAsset, []AccountResult) {
	var (
		assets  []inventory.DiscoveredAsset
		results []AccountResult
	)
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			res := AccountResult{Account: acct.Name, Profile: acct.Profile}
			res.fail(aws.ReasonCanceled, err)
			results = append(results, res)
			continue
		}
		found, res := d.discoverAccount(ctx, acct)
		assets = append(assets, found...)
		results = append(results, res)
	}
	return assets, results
}

func (d *Discoverer) discoverAccount(ctx context.Context, acct inventory.Account) ([]inventory.DiscoveredAsset, AccountResult) {
	log := d.logger().With("account", acct.Name, "profile", acct.Profile)
	res := AccountResult{Account: acct.Name, Profile: acct.Profile}

	ctx, span := d.tracer().Start(ctx, "Discovery.Account", trace.WithAttributes(
		attribute.String("account.name", acct.Name),
		attribute.String("aws.profile", acct.Profile),
	))
	defer span.End()

	home := acct.DefaultRegion
	if home == "" {
		home = DefaultRegion
	}

	sess, err := d.Connector.Connect(ctx, acct.Profile, home)
	if err != nil {
		res.fail(aws.Classify(err), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Reason)
		log.Error("Skipping account", "reason", res.Reason, "error", err)
		return nil, res
	}

	if id, err := sess.VerifyIdentity(ctx); err != nil {
		log.Warn("Could not resolve account identity", "error", err)
	} else {
		res.AccountID = id
		span.SetAttributes(attribute.String("aws.account_id", id))
	}

	regions, err := aws.ListRegions(ctx, sess.EC2(home))
	if err != nil || len(regions) == 0 {
		log.Warn("Region enumeration failed, using fallback list", "error", err, "fallback", aws.FallbackRegions)
		regions = slices.Clone(aws.FallbackRegions)
		res.RegionsFallback = true
	}
	regions = d.narrow(regions)
	log.Info("Discovering account", "regions", len(regions))

	var assets []inventory.DiscoveredAsset
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			rr := RegionResult{Region: region}
			rr.fail(aws.ReasonCanceled, err)
			res.Regions = append(res.Regions, rr)
			continue
		}
		found, rr := d.discoverRegion(ctx, sess, acct, region)
		assets = append(assets, found...)
		res.Regions = append(res.Regions, rr)
	}

	span.SetAttributes(attribute.Int("discovery.instances", len(assets)))
	if !res.OK() {
		span.SetStatus(codes.Error, "partial")
	}
	return assets, res
}

func (d *Discoverer) discoverRegion(ctx context.Context, sess aws.Session, acct inventory.Account, region string) ([]inventory.DiscoveredAsset, RegionResult) {
	log := d.logger().With("account", acct.Name, "region", region)
	rr := RegionResult{Region: region}

	ctx, span := d.tracer().Start(ctx, "Discovery.Region", trace.WithAttributes(
		attribute.String("account.name", acct.Name),
		attribute.String("region", region),
	))
	defer span.End()

	// On a page failure the instances from earlier pages are still synced.
	instances, err := aws.ListInstances(ctx, sess.EC2(region))
	if err != nil {
		rr.fail(aws.Classify(err), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, rr.Reason)
		log.Error("Region listing failed", "reason", rr.Reason, "error", err, "partial", len(instances))
	}

	assets := make([]inventory.DiscoveredAsset, 0, len(instances))
	for _, inst := range instances {
		if !d.selected(log, inst, acct.Name, region) {
			rr.Filtered++
			continue
		}
		assets = append(assets, inventory.DiscoveredAsset{
			Asset:   d.Normalizer.Normalize(inst, acct.Name, region),
			Account: acct.Name,
			Region:  region,
		})
	}
	rr.Instances = len(assets)

	span.SetAttributes(
		attribute.Int("discovery.instances", rr.Instances),
		attribute.Int("discovery.filtered", rr.Filtered),
	)
	if err == nil {
		log.Info("Region discovered", "instances", rr.Instances, "filtered", rr.Filtered)
	}
	return assets, rr
}

func (d *Discoverer) selected(log *slog.Logger, inst types.Instance, account, region string) bool {
	if d.Selector == nil {
		return true
	}
	tags := inventory.Tags(inst.Tags)
	in := policy.Input{
		ID:      deref(inst.InstanceId),
		Name:    tags["Name"],
		Type:    string(inst.InstanceType),
		Region:  region,
		Account: account,
		Tags:    tags,
	}
	if inst.State != nil {
		in.State = string(inst.State.Name)
	}
	ok, err := d.Selector.Match(in)
	if err != nil {
		log.Warn("Filter evaluation failed, keeping instance", "instance", in.ID, "error", err)
	}
	return ok
}

func (d *Discoverer) narrow(regions []string) []string {
	if len(d.Regions) == 0 {
		return regions
	}
	out := regions[:0:0]
	for _, r := range regions {
		if slices.Contains(d.Regions, r) {
			out = append(out, r)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
