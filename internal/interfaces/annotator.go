package interfaces

import "financial-news-intelligence/internal/types"

// Annotator summarizes named-entity findings for a text.
type Annotator interface {
	Summarize(text string) (*types.Annotation, error)
}
