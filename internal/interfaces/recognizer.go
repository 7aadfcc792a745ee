package interfaces

import "financial-news-intelligence/internal/types"

// Recognizer produces named-entity spans with character offsets for a text.
type Recognizer interface {
	Recognize(text string) ([]types.Span, error)
}
