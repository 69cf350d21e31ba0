// Package analytics computes read-only rollups over persisted
// incidents. The store supplies raw group counts; the threshold, order,
// cap, and placeholder rules live here so they test without a database.
// Every query recomputes from the full incident collection on demand.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// PlaceholderLabel is returned in place of an empty result set so
// dashboards render a row instead of nothing.
const PlaceholderLabel = "no incidents reported"

const (
	topLimit        = 10
	authorThreshold = 10
)

// AuthorCount is the incident count for one author.
type AuthorCount struct {
	AuthorID string `db:"author_id" json:"author_id"`
	Count    int    `db:"cnt" json:"count"`
}

// SchoolCount is the incident count for one school.
type SchoolCount struct {
	School string `db:"school" json:"school"`
	Count  int    `db:"cnt" json:"count"`
}

// DayCount is the incident count for one calendar day.
type DayCount struct {
	Day   string `db:"day" json:"day"`
	Count int    `db:"cnt" json:"count"`
}

// Store supplies the raw grouped counts.
type Store interface {
	AuthorIncidentCounts(ctx context.Context) ([]AuthorCount, error)
	SchoolIncidentCounts(ctx context.Context) ([]SchoolCount, error)
	DayIncidentCounts(ctx context.Context) ([]DayCount, error)
}

// Aggregator exposes the three aggregate queries.
type Aggregator struct {
	store Store
}

// New creates an aggregator over the given store.
func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// TopAuthors returns authors with at least ten incidents, most first,
// capped at ten rows. An empty result yields a single placeholder row.
func (a *Aggregator) TopAuthors(ctx context.Context) ([]AuthorCount, error) {
	counts, err := a.store.AuthorIncidentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("top authors: %w", err)
	}

	var qualified []AuthorCount
	for _, c := range counts {
		if c.Count >= authorThreshold {
			qualified = append(qualified, c)
		}
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].Count != qualified[j].Count {
			return qualified[i].Count > qualified[j].Count
		}
		return qualified[i].AuthorID < qualified[j].AuthorID
	})

	if len(qualified) == 0 {
		return []AuthorCount{{AuthorID: PlaceholderLabel, Count: 0}}, nil
	}
	if len(qualified) > topLimit {
		qualified = qualified[:topLimit]
	}
	return qualified, nil
}

// TopSchools returns the schools with the most incidents, most first,
// capped at ten rows, with the same placeholder rule as TopAuthors.
func (a *Aggregator) TopSchools(ctx context.Context) ([]SchoolCount, error) {
	counts, err := a.store.SchoolIncidentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("top schools: %w", err)
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].School < counts[j].School
	})

	if len(counts) == 0 {
		return []SchoolCount{{School: PlaceholderLabel, Count: 0}}, nil
	}
	if len(counts) > topLimit {
		counts = counts[:topLimit]
	}
	return counts, nil
}

// ByDay returns the calendar days with the most incidents, most first,
// capped at ten rows. An empty result yields one placeholder row dated
// today.
func (a *Aggregator) ByDay(ctx context.Context) ([]DayCount, error) {
	counts, err := a.store.DayIncidentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("incidents by day: %w", err)
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Day > counts[j].Day
	})

	if len(counts) == 0 {
		today := time.Now().UTC().Format("2006-01-02")
		return []DayCount{{Day: today, Count: 0}}, nil
	}
	if len(counts) > topLimit {
		counts = counts[:topLimit]
	}
	return counts, nil
}
