package annotate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/types"
)

// Span category labels.
const (
	LabelOrg      = "ORG"
	LabelPerson   = "PERSON"
	LabelLocation = "GPE"
	LabelMoney    = "MONEY"
	LabelDate     = "DATE"
	LabelPercent  = "PERCENT"
)

var (
	moneyRE = regexp.MustCompile(`[$€£¥]\s?\d+(?:[.,]\d+)*\s?(?:thousand|million|billion|trillion|[kmbt]\b)?|\b\d+(?:\.\d+)?\s?(?:dollars|euros|pounds|yen)\b`)

	percentRE = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:%|percent|pct\b)`)

	dateRE = regexp.MustCompile(`\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:\s*,?\s*\d{4})?\b|\b\d{4}-\d{2}-\d{2}\b|\bq[1-4]\s+\d{4}\b|\bfy\s?\d{4}\b`)

	// Lowercased text defeats most statistical NER, so organizations are also
	// caught by their legal suffixes.
	orgSuffixRE = regexp.MustCompile(`\b(?:[\p{L}\d&\-]+\s){0,3}[\p{L}\d&\-]+\s(?:inc|corp|corporation|co|ltd|llc|plc|group|holdings|bank|motors|airlines|pharma)\b\.?`)
)

// ProseRecognizer combines prose NER output with financial-pattern matching.
// The statistical model covers persons and locations; the pattern set covers
// money, percentages, dates and suffix-marked organizations.
type ProseRecognizer struct{}

var _ interfaces.Recognizer = (*ProseRecognizer)(nil)

// NewProseRecognizer acquires the prose model once. A failure here is fatal
// for the annotator: extraction quality depends on the model being present,
// so it must never be silently skipped.
func NewProseRecognizer() (*ProseRecognizer, error) {
	if _, err := prose.NewDocument("model warmup", prose.WithSegmentation(false)); err != nil {
		return nil, fmt.Errorf("acquire NER model: %w", err)
	}
	return &ProseRecognizer{}, nil
}

// Recognize returns all entity spans found in text, sorted by start offset.
func (r *ProseRecognizer) Recognize(text string) ([]types.Span, error) {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("annotate text: %w", err)
	}

	var spans []types.Span
	cursor := 0
	for _, ent := range doc.Entities() {
		idx := strings.Index(text[cursor:], ent.Text)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		spans = append(spans, types.Span{
			Text:  ent.Text,
			Label: mapProseLabel(ent.Label),
			Start: start,
			End:   start + len(ent.Text),
		})
		cursor = start + len(ent.Text)
	}

	spans = append(spans, patternSpans(text, moneyRE, LabelMoney)...)
	spans = append(spans, patternSpans(text, percentRE, LabelPercent)...)
	spans = append(spans, patternSpans(text, dateRE, LabelDate)...)
	spans = append(spans, patternSpans(text, orgSuffixRE, LabelOrg)...)

	return dedupeSpans(spans), nil
}

func mapProseLabel(label string) string {
	switch label {
	case "PERSON":
		return LabelPerson
	case "GPE":
		return LabelLocation
	default:
		return label
	}
}

func patternSpans(text string, re *regexp.Regexp, label string) []types.Span {
	var spans []types.Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		spans = append(spans, types.Span{
			Text:  text[loc[0]:loc[1]],
			Label: label,
			Start: loc[0],
			End:   loc[1],
		})
	}
	return spans
}

// dedupeSpans drops exact duplicates and percent/money double matches on the
// same range, then orders by start offset.
func dedupeSpans(spans []types.Span) []types.Span {
	seen := make(map[string]bool, len(spans))
	out := spans[:0]
	for _, s := range spans {
		key := fmt.Sprintf("%d:%d:%s", s.Start, s.End, s.Label)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Start < out[j-1].Start; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
