package interfaces

import (
	"context"

	"financial-news-intelligence/internal/types"
)

// Extractor derives a structured extraction from free text. A nil extraction
// with nil error means the provider answered but the response did not parse;
// a non-nil error means the provider itself failed after retries.
type Extractor interface {
	Extract(ctx context.Context, text string) (*types.Extraction, error)
}
