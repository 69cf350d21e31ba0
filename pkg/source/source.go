package source

import (
	"context"

	"github.com/campusmod/modwatch/pkg/content"
)

// SourceType identifies which upstream a collector pulls from.
type SourceType string

const (
	SourceDiscussion SourceType = "discussion"
	SourceFeeds      SourceType = "feeds"
)

// Source is the interface every collector must implement. Collect
// returns sanitized, normalized content records; order is not
// significant to correctness.
type Source interface {
	Name() SourceType
	Collect(ctx context.Context) ([]content.Record, error)
}
