package filtering

import (
	"strings"

	"github.com/spigell/skillsynx/internal/analysis"
)

// Listings is the mutable collection the filters work on.
type Listings struct {
	Items []analysis.JobListing
}

func NewListings(items []analysis.JobListing) *Listings {
	copied := make([]analysis.JobListing, len(items))
	copy(copied, items)
	return &Listings{Items: copied}
}

func (l *Listings) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// Exclude removes the listings matching drop and returns their labels.
func (l *Listings) Exclude(drop func(analysis.JobListing) bool) []string {
	kept := l.Items[:0]
	excluded := make([]string, 0)
	for _, item := range l.Items {
		if drop(item) {
			excluded = append(excluded, label(item))
			continue
		}
		kept = append(kept, item)
	}
	l.Items = kept
	return excluded
}

func label(item analysis.JobListing) string {
	if item.Company == "" {
		return item.Title
	}
	return item.Title + " @ " + item.Company
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
