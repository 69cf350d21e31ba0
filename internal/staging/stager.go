package staging

import (
	"context"
	"fmt"
	"os"

	"github.com/campusmod/modwatch/pkg/content"
	"github.com/campusmod/modwatch/pkg/source"
)

// Stager runs the fetch-and-stage half of the pipeline: collect from
// every source, merge against the staged dataset, and write back only
// when new records arrived.
type Stager struct {
	staging Staging
	sources []source.Source
}

// NewStager creates a stager over the given staging store and sources.
func NewStager(st Staging, sources []source.Source) *Stager {
	return &Stager{staging: st, sources: sources}
}

// Run executes one fetch-and-stage pass and returns the number of
// records added to the staged dataset. A source that fails is logged and
// skipped; a corrupt staged dataset aborts the run.
func (s *Stager) Run(ctx context.Context) (int, error) {
	existing, err := s.staging.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load staging: %w", err)
	}

	var fetched []content.Record
	for _, src := range s.sources {
		records, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s error: %v\n", src.Name(), err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %d records\n", src.Name(), len(records))
		fetched = append(fetched, records...)
	}
	if len(fetched) == 0 {
		return 0, nil
	}

	merged, added := Merge(existing, fetched)
	if added == 0 {
		// Nothing new: skip the write so downstream consumers watching
		// the dataset see no spurious change.
		return 0, nil
	}

	if err := s.staging.Save(ctx, merged); err != nil {
		return 0, fmt.Errorf("save staging: %w", err)
	}
	return added, nil
}
