package filtering

import (
	"context"

	"github.com/spigell/skillsynx/internal/analysis"
	"go.uber.org/zap"
)

type dedupeFilter struct {
	toggle
}

// NewDedupe creates a filter that keeps the first listing per title and company.
func NewDedupe() Filter {
	return &dedupeFilter{}
}

func (f *dedupeFilter) Name() string { return "dedupe" }

func (f *dedupeFilter) Validate(*Config) error { return nil }

func (f *dedupeFilter) Apply(_ context.Context, deps Deps, l *Listings) (*Listings, Step, error) {
	initial := l.Len()
	seen := make(map[string]struct{}, initial)

	excluded := l.Exclude(func(item analysis.JobListing) bool {
		key := normalize(item.Title) + "\x00" + normalize(item.Company)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		return false
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding duplicate listings",
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *dedupeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
