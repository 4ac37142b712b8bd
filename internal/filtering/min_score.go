package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/skillsynx/internal/analysis"
	"go.uber.org/zap"
)

type minScoreFilter struct {
	toggle
	min int
}

// NewMinScore creates a filter that removes listings scored below the
// configured threshold. Listings without a score are kept.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinScore < 0 || cfg.MinScore > 100 {
		return fmt.Errorf("min score must be between 0 and 100, got %d", cfg.MinScore)
	}
	f.min = cfg.MinScore
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, l *Listings) (*Listings, Step, error) {
	initial := l.Len()
	if f.min == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(func(item analysis.JobListing) bool {
		return item.MatchScore != nil && *item.MatchScore < f.min
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding listings below score threshold",
			zap.Int("threshold", f.min),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: map[string]string{"min_score": strconv.Itoa(f.min)}}
}
