package interfaces

import (
	"context"

	"financial-news-intelligence/internal/types"
)

// CandidateSource pulls candidate articles from upstream feeds. It never
// fails as a whole: unreachable sources and malformed entries are dropped.
type CandidateSource interface {
	Fetch(ctx context.Context, perFeedLimit int) []types.Candidate
}
