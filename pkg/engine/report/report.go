// Package report aggregates the results of one sync run and persists them.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/DrSkyle/snipesync/pkg/engine/discovery"
	"github.com/DrSkyle/snipesync/pkg/engine/reconcile"
	"github.com/DrSkyle/snipesync/pkg/version"
)

// Totals are the run-level counters.
type Totals struct {
	Accounts       int `json:"accounts"`
	AccountsFailed int `json:"accounts_failed"`
	Regions        int `json:"regions"`
	RegionsFailed  int `json:"regions_failed"`
	Discovered     int `json:"discovered"`
	Filtered       int `json:"filtered"`

	reconcile.Summary
}

// Run is the persisted record of a sync.
type Run struct {
	RunID      string                    `json:"run_id"`
	Version    string                    `json:"version"`
	Command    string                    `json:"command"`
	DryRun     bool                      `json:"dry_run"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Accounts   []discovery.AccountResult `json:"accounts"`
	Assets     []reconcile.AssetResult   `json:"assets"`
	Totals     Totals                    `json:"totals"`
}

// New starts a run record.
func New(command string, dryRun bool, now time.Time) *Run {
	return &Run{
		RunID:     uuid.NewString(),
		Version:   version.Current,
		Command:   command,
		DryRun:    dryRun,
		StartedAt: now.UTC(),
	}
}

// Finish records the unit results and computes totals.
func (r *Run) Finish(accounts []discovery.AccountResult, assets []reconcile.AssetResult, now time.Time) {
	r.Accounts = accounts
	r.Assets = assets
	r.FinishedAt = now.UTC()

	t := Totals{Accounts: len(accounts), Summary: reconcile.Summarize(assets)}
	for _, a := range accounts {
		if a.Err != nil {
			t.AccountsFailed++
		}
		for _, reg := range a.Regions {
			t.Regions++
			t.Filtered += reg.Filtered
			t.Discovered += reg.Instances
			if !reg.OK() {
				t.RegionsFailed++
			}
		}
	}
	r.Totals = t
}

// OK reports whether every account, region and asset succeeded.
func (r *Run) OK() bool {
	return r.Totals.AccountsFailed == 0 && r.Totals.RegionsFailed == 0 && r.Totals.Summary.OK()
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Key is the storage key for the JSON report.
func (r *Run) Key() string {
	return "runs/" + r.StartedAt.Format("20060102T150405Z") + "-" + r.RunID + ".json"
}
