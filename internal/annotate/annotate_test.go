package annotate

import (
	"testing"

	"financial-news-intelligence/internal/types"
)

type stubRecognizer struct {
	spans []types.Span
	err   error
}

func (s *stubRecognizer) Recognize(string) ([]types.Span, error) {
	return s.spans, s.err
}

func TestSummarizeGroupsAndDerivesMetrics(t *testing.T) {
	rec := &stubRecognizer{spans: []types.Span{
		{Text: "acme corp", Label: LabelOrg, Start: 0, End: 9},
		{Text: "acme corp", Label: LabelOrg, Start: 40, End: 49},
		{Text: "globex inc", Label: LabelOrg, Start: 60, End: 70},
		{Text: "jane doe", Label: LabelPerson, Start: 12, End: 20},
		{Text: "$1.2 billion", Label: LabelMoney, Start: 25, End: 37},
		{Text: "5.3%", Label: LabelPercent, Start: 50, End: 54},
		{Text: "q3 2024", Label: LabelDate, Start: 72, End: 79},
	}}

	ann, err := New(rec).Summarize("irrelevant, recognizer is stubbed")
	if err != nil {
		t.Fatal(err)
	}

	if ann.TotalEntities != 7 {
		t.Errorf("expected total 7, got %d", ann.TotalEntities)
	}
	if len(ann.Entities.Organizations) != 3 {
		t.Errorf("expected 3 org spans, got %d", len(ann.Entities.Organizations))
	}
	if len(ann.Companies) != 2 {
		t.Errorf("expected 2 deduplicated companies, got %v", ann.Companies)
	}

	if got := ann.Metrics["monetary_values"]; len(got) != 1 || got[0] != "$1.2 billion" {
		t.Errorf("unexpected monetary values: %v", got)
	}
	if got := ann.Metrics["percentages"]; len(got) != 1 || got[0] != "5.3%" {
		t.Errorf("unexpected percentages: %v", got)
	}
	if got := ann.Metrics["dates"]; len(got) != 1 || got[0] != "q3 2024" {
		t.Errorf("unexpected dates: %v", got)
	}
}

func TestSummarizeEmptyFindings(t *testing.T) {
	ann, err := New(&stubRecognizer{}).Summarize("nothing here")
	if err != nil {
		t.Fatal(err)
	}
	if ann.TotalEntities != 0 {
		t.Errorf("expected 0 entities, got %d", ann.TotalEntities)
	}
	if len(ann.Metrics) != 0 {
		t.Errorf("expected no metrics, got %v", ann.Metrics)
	}
}

func TestProseRecognizerFinancialPatterns(t *testing.T) {
	rec, err := NewProseRecognizer()
	if err != nil {
		t.Fatalf("recognizer init: %v", err)
	}

	text := "acme corp posted revenue of $1.2 billion on march 3, 2024 up 5.3% from fy2023"
	spans, err := rec.Recognize(text)
	if err != nil {
		t.Fatal(err)
	}

	byLabel := map[string][]types.Span{}
	for _, s := range spans {
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}

	if len(byLabel[LabelMoney]) == 0 {
		t.Error("expected a money span for $1.2 billion")
	}
	if len(byLabel[LabelPercent]) == 0 {
		t.Error("expected a percent span for 5.3%")
	}
	if len(byLabel[LabelDate]) == 0 {
		t.Error("expected a date span for march 3, 2024")
	}
	if len(byLabel[LabelOrg]) == 0 {
		t.Error("expected an org span for acme corp")
	}

	for _, s := range spans {
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			t.Errorf("invalid offsets %d:%d for span %q", s.Start, s.End, s.Text)
		}
		if text[s.Start:s.End] != s.Text {
			t.Errorf("offsets do not match surface text: %q vs %q", text[s.Start:s.End], s.Text)
		}
	}
}

func TestRecognizeSortedAndDeduped(t *testing.T) {
	rec, err := NewProseRecognizer()
	if err != nil {
		t.Fatalf("recognizer init: %v", err)
	}

	spans, err := rec.Recognize("profit rose 8% to $300 million in q2 2025")
	if err != nil {
		t.Fatal(err)
	}

	seen := map[[2]int]map[string]bool{}
	last := -1
	for _, s := range spans {
		if s.Start < last {
			t.Errorf("spans not sorted by start offset: %v", spans)
		}
		last = s.Start
		key := [2]int{s.Start, s.End}
		if seen[key] == nil {
			seen[key] = map[string]bool{}
		}
		if seen[key][s.Label] {
			t.Errorf("duplicate span %v %s", key, s.Label)
		}
		seen[key][s.Label] = true
	}
}
