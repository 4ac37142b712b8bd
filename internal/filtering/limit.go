package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/skillsynx/internal/analysis"
)

type limitFilter struct {
	limit int
}

// NewLimit creates a filter that keeps at most the configured number of
// listings, defaulting to analysis.DefaultJobCount.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return "limit" }

// Disable is a no-op: the requested job count always applies.
func (f *limitFilter) Disable(string) {}

func (f *limitFilter) IsEnabled() bool { return true }

func (f *limitFilter) Validate(cfg *Config) error {
	f.limit = analysis.DefaultJobCount
	if cfg == nil || cfg.Limit == 0 {
		return nil
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must be positive, got %d", cfg.Limit)
	}
	f.limit = cfg.Limit
	return nil
}

func (f *limitFilter) Apply(_ context.Context, _ Deps, l *Listings) (*Listings, Step, error) {
	initial := l.Len()
	if f.limit > 0 && initial > f.limit {
		l.Items = l.Items[:f.limit]
	}
	return l, Step{Initial: initial, Dropped: initial - l.Len(), Left: l.Len()}, nil
}

func (f *limitFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{"limit": strconv.Itoa(f.limit)}}
}
