// Package audit inspects what the registry currently holds.
package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrSkyle/snipesync/pkg/snipeit"
)

const (
	// PageSize is the listing page size.
	PageSize = 500
	// SampleSize is how many EC2 assets are echoed back.
	SampleSize = 5
)

// WatchedStatuses are counted separately; the ids match a stock registry install.
var WatchedStatuses = []Status{{ID: 1, Name: "Pending"}, {ID: 3, Name: "Archived"}}

// Lister pages through registry assets.
type Lister interface {
	ListAssets(ctx context.Context, q snipeit.AssetQuery) (snipeit.Page[snipeit.Hardware], error)
}

// Status is a registry status label.
type Status struct {
	ID   int
	Name string
}

// StatusCount is the number of assets carrying a status.
type StatusCount struct {
	Status
	Count int
	Err   error
}

// Result summarizes the registry contents.
type Result struct {
	Total     int
	Retrieved int
	Assets    []snipeit.Hardware
	EC2       []snipeit.Hardware
	Statuses  []StatusCount
}

// Sample returns the first EC2 assets.
func (r Result) Sample() []snipeit.Hardware {
	if len(r.EC2) > SampleSize {
		return r.EC2[:SampleSize]
	}
	return r.EC2
}

// Run lists every asset page by page, then counts the watched statuses.
// Status count failures are recorded per status.
func Run(ctx context.Context, l Lister) (Result, error) {
	var res Result
	for offset := 0; ; {
		page, err := l.ListAssets(ctx, snipeit.AssetQuery{Limit: PageSize, Offset: offset})
		if err != nil {
			return res, fmt.Errorf("list assets at offset %d: %w", offset, err)
		}
		res.Total = page.Total
		res.Assets = append(res.Assets, page.Rows...)
		offset += len(page.Rows)
		if len(page.Rows) == 0 || offset >= page.Total {
			break
		}
	}
	res.Retrieved = len(res.Assets)

	for _, a := range res.Assets {
		if IsEC2Tag(a.AssetTag) {
			res.EC2 = append(res.EC2, a)
		}
	}

	for _, st := range WatchedStatuses {
		sc := StatusCount{Status: st}
		page, err := l.ListAssets(ctx, snipeit.AssetQuery{StatusID: st.ID, Limit: 1})
		if err != nil {
			sc.Err = err
		} else {
			sc.Count = page.Total
		}
		res.Statuses = append(res.Statuses, sc)
	}
	return res, nil
}

// IsEC2Tag reports whether tag looks like an instance id.
func IsEC2Tag(tag string) bool {
	return strings.HasPrefix(tag, "i-")
}
