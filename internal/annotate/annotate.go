// Package annotate wraps named-entity recognition and summarizes its
// findings for the extraction pipeline.
package annotate

import (
	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/types"
)

// Annotator groups recognizer output by category and derives the string
// metrics the extraction stage consumes.
type Annotator struct {
	rec interfaces.Recognizer
}

var _ interfaces.Annotator = (*Annotator)(nil)

// New builds an annotator over an existing recognizer.
func New(rec interfaces.Recognizer) *Annotator {
	return &Annotator{rec: rec}
}

// NewDefault builds an annotator over the prose-backed recognizer. Model
// acquisition failure surfaces here, once, at construction.
func NewDefault() (*Annotator, error) {
	rec, err := NewProseRecognizer()
	if err != nil {
		return nil, err
	}
	return New(rec), nil
}

// Annotate recognizes entities in text and groups the spans by category.
func (a *Annotator) Annotate(text string) (types.EntitySummary, error) {
	spans, err := a.rec.Recognize(text)
	if err != nil {
		return types.EntitySummary{}, err
	}

	var summary types.EntitySummary
	for _, s := range spans {
		switch s.Label {
		case LabelOrg:
			summary.Organizations = append(summary.Organizations, s)
		case LabelPerson:
			summary.Persons = append(summary.Persons, s)
		case LabelLocation:
			summary.Locations = append(summary.Locations, s)
		case LabelMoney:
			summary.Money = append(summary.Money, s)
		case LabelDate:
			summary.Dates = append(summary.Dates, s)
		case LabelPercent:
			summary.Percents = append(summary.Percents, s)
		}
		summary.All = append(summary.All, s)
	}
	return summary, nil
}

// Summarize annotates text and returns the grouped entities, the raw surface
// text of monetary/percentage/date spans (kept as strings, no numeric
// parsing), the deduplicated organization names as company candidates, and
// the total span count.
func (a *Annotator) Summarize(text string) (*types.Annotation, error) {
	entities, err := a.Annotate(text)
	if err != nil {
		return nil, err
	}

	metrics := make(map[string][]string)
	if len(entities.Money) > 0 {
		metrics["monetary_values"] = spanTexts(entities.Money)
	}
	if len(entities.Percents) > 0 {
		metrics["percentages"] = spanTexts(entities.Percents)
	}
	if len(entities.Dates) > 0 {
		metrics["dates"] = spanTexts(entities.Dates)
	}

	return &types.Annotation{
		Entities:      entities,
		Metrics:       metrics,
		Companies:     dedupe(spanTexts(entities.Organizations)),
		TotalEntities: len(entities.All),
	}, nil
}

func spanTexts(spans []types.Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
