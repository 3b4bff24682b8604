package reconcile

import (
	"context"
	"errors"
	"net"

	"github.com/DrSkyle/snipesync/pkg/snipeit"
)

// State is where an asset ended up after the registry lookup.
type State string

const (
	StatePending      State = "pending"
	StateFound        State = "found"
	StateNotFound     State = "not_found"
	StateLookupFailed State = "lookup_failed"
)

// Action is the write chosen for an asset.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Outcome is the terminal status of an asset.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	// OutcomePlanned is reported by dry runs in place of a write.
	OutcomePlanned Outcome = "planned"
)

// Failure reasons.
const (
	ReasonLookupFailed = "lookup_failed"
	ReasonHTTP         = "http_error"
	ReasonStatus       = "registry_status"
	ReasonTimeout      = "timeout"
	ReasonTransport    = "transport_error"
	ReasonCanceled     = "canceled"
)

// AssetResult records what happened to one asset.
type AssetResult struct {
	AssetTag   string  `json:"asset_tag"`
	Account    string  `json:"account,omitempty"`
	Region     string  `json:"region,omitempty"`
	State      State   `json:"state"`
	Action     Action  `json:"action"`
	Outcome    Outcome `json:"outcome"`
	RegistryID int     `json:"registry_id,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
	Err        error   `json:"-"`
}

func (r *AssetResult) fail(outcome Outcome, reason string, err error) {
	r.Outcome = outcome
	r.Reason = reason
	r.Err = err
	r.Error = err.Error()
	var herr *snipeit.HTTPError
	if errors.As(err, &herr) {
		r.StatusCode = herr.StatusCode
	}
}

// Summary counts outcomes and actions across a run.
type Summary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Planned int `json:"planned,omitempty"`
}

// Summarize folds results into a Summary.
func Summarize(results []AssetResult) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		switch r.Outcome {
		case OutcomeSuccess:
			if r.Action == ActionCreate {
				s.Created++
			} else {
				s.Updated++
			}
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomePlanned:
			s.Planned++
		}
	}
	return s
}

// OK reports whether no asset failed or was skipped.
func (s Summary) OK() bool { return s.Failed == 0 && s.Skipped == 0 }

// classify maps a registry error to a failure reason.
func classify(err error) string {
	var (
		herr *snipeit.HTTPError
		serr *snipeit.StatusError
		nerr net.Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &herr):
		return ReasonHTTP
	case errors.As(err, &serr):
		return ReasonStatus
	case errors.As(err, &nerr) && nerr.Timeout():
		return ReasonTimeout
	}
	return ReasonTransport
}
