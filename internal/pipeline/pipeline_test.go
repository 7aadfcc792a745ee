package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"financial-news-intelligence/internal/types"
)

type fakeSource struct {
	candidates []types.Candidate
}

func (f *fakeSource) Fetch(context.Context, int) []types.Candidate {
	return f.candidates
}

type memStore struct {
	nextID   int64
	byURL    map[string]int64
	articles map[int64]*types.Article
	events   []types.ExtractedEvent

	createErr error
	finishErr map[int64]error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1,
		byURL:     make(map[string]int64),
		articles:  make(map[int64]*types.Article),
		finishErr: make(map[int64]error),
	}
}

func (m *memStore) CreateArticle(_ context.Context, c types.Candidate) (int64, bool, error) {
	if m.createErr != nil {
		return 0, false, m.createErr
	}
	if id, ok := m.byURL[c.URL]; ok {
		return id, false, nil
	}
	id := m.nextID
	m.nextID++
	m.byURL[c.URL] = id
	m.articles[id] = &types.Article{ID: id, Title: c.Title, Source: c.Source, URL: c.URL, Content: c.Content}
	return id, true, nil
}

func (m *memStore) ListPending(_ context.Context, limit int) ([]types.Article, error) {
	var out []types.Article
	for id := int64(1); id < m.nextID && len(out) < limit; id++ {
		if a, ok := m.articles[id]; ok && !a.Processed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) FinishArticle(_ context.Context, articleID int64, event *types.ExtractedEvent) error {
	if err := m.finishErr[articleID]; err != nil {
		return err
	}
	a, ok := m.articles[articleID]
	if !ok {
		return errors.New("no such article")
	}
	if event != nil {
		m.events = append(m.events, *event)
	}
	a.Processed = true
	return nil
}

type fakeAnnotator struct {
	errOn map[string]error
}

func (f *fakeAnnotator) Summarize(text string) (*types.Annotation, error) {
	if err, ok := f.errOn[text]; ok {
		return nil, err
	}
	return &types.Annotation{TotalEntities: 1}, nil
}

type fakeExtractor struct {
	byText map[string]*types.Extraction
	errs   map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (*types.Extraction, error) {
	if err, ok := f.errs[text]; ok {
		return nil, err
	}
	return f.byText[text], nil
}

func validExt() *types.Extraction {
	return &types.Extraction{
		Company:    "Acme",
		EventType:  "earnings",
		Sentiment:  "positive",
		Confidence: 0.9,
	}
}

func TestIngestDeduplicatesByURL(t *testing.T) {
	src := &fakeSource{candidates: []types.Candidate{
		{Title: "a", URL: "https://example.com/x", Content: "body"},
		{Title: "a again", URL: "https://example.com/x", Content: "body"},
		{Title: "b", URL: "https://example.com/y", Content: "body"},
	}}
	store := newMemStore()
	o := New(src, store, &fakeAnnotator{}, &fakeExtractor{})

	stats, err := o.Ingest(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Fetched != 3 || stats.Saved != 2 {
		t.Errorf("expected fetched=3 saved=2, got %+v", stats)
	}
	if len(store.articles) != 2 {
		t.Errorf("expected 2 persisted articles, got %d", len(store.articles))
	}
}

func TestIngestStoreFailureAborts(t *testing.T) {
	src := &fakeSource{candidates: []types.Candidate{{Title: "a", URL: "u", Content: "b"}}}
	store := newMemStore()
	store.createErr = errors.New("connection refused")
	o := New(src, store, &fakeAnnotator{}, &fakeExtractor{})

	if _, err := o.Ingest(context.Background(), 10); err == nil {
		t.Fatal("expected store failure to surface")
	}
}

func TestProcessIsolatesPerArticleFailures(t *testing.T) {
	store := newMemStore()
	ann := &fakeAnnotator{errOn: map[string]error{}}
	ex := &fakeExtractor{byText: map[string]*types.Extraction{}}

	for i := 1; i <= 5; i++ {
		text := fmt.Sprintf("article body %d", i)
		store.CreateArticle(context.Background(), types.Candidate{
			Title: fmt.Sprintf("t%d", i), URL: fmt.Sprintf("u%d", i), Content: text,
		})
		ex.byText[text] = validExt()
	}
	// The third article fails annotation.
	ann.errOn["article body 3"] = errors.New("model unavailable")

	o := New(&fakeSource{}, store, ann, ex)
	stats, err := o.Process(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Attempted != 5 || stats.Processed != 5 || stats.Events != 4 {
		t.Errorf("expected attempted=5 processed=5 events=4, got %+v", stats)
	}
	for id, a := range store.articles {
		if !a.Processed {
			t.Errorf("article %d left pending", id)
		}
	}
}

func TestProcessInvalidExtractionYieldsNoEvent(t *testing.T) {
	cases := []*types.Extraction{
		{EventType: "ipo", Sentiment: "positive", Confidence: 0.5},
		{EventType: "merger", Sentiment: "bullish", Confidence: 0.5},
		{EventType: "merger", Sentiment: "positive", Confidence: 1.5},
		{EventType: "merger", Sentiment: "positive", Confidence: -1},
	}
	for i, ext := range cases {
		store := newMemStore()
		store.CreateArticle(context.Background(), types.Candidate{Title: "t", URL: "u", Content: "body"})
		o := New(&fakeSource{}, store, &fakeAnnotator{},
			&fakeExtractor{byText: map[string]*types.Extraction{"body": ext}})

		stats, err := o.Process(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Processed != 1 || stats.Events != 0 {
			t.Errorf("case %d: expected processed=1 events=0, got %+v", i, stats)
		}
		if !store.articles[1].Processed {
			t.Errorf("case %d: article must be marked processed", i)
		}
	}
}

func TestProcessProviderFailureStillCommits(t *testing.T) {
	store := newMemStore()
	store.CreateArticle(context.Background(), types.Candidate{Title: "t", URL: "u", Content: "body"})
	o := New(&fakeSource{}, store, &fakeAnnotator{},
		&fakeExtractor{errs: map[string]error{"body": errors.New("provider down")}})

	stats, err := o.Process(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Processed != 1 || stats.Events != 0 {
		t.Errorf("expected processed=1 events=0, got %+v", stats)
	}
	if !store.articles[1].Processed {
		t.Error("article must be marked processed despite provider failure")
	}
}

func TestProcessCommitFailureLeavesArticlePending(t *testing.T) {
	store := newMemStore()
	store.CreateArticle(context.Background(), types.Candidate{Title: "a", URL: "u1", Content: "one"})
	store.CreateArticle(context.Background(), types.Candidate{Title: "b", URL: "u2", Content: "two"})
	store.finishErr[1] = errors.New("deadlock")

	ex := &fakeExtractor{byText: map[string]*types.Extraction{"one": validExt(), "two": validExt()}}
	o := New(&fakeSource{}, store, &fakeAnnotator{}, ex)

	stats, err := o.Process(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Attempted != 2 || stats.Processed != 1 || stats.Events != 1 {
		t.Errorf("expected attempted=2 processed=1 events=1, got %+v", stats)
	}
	if store.articles[1].Processed {
		t.Error("failed commit must leave the article pending")
	}
	if !store.articles[2].Processed {
		t.Error("second article must still commit")
	}
}

func TestProcessSecondPassFindsNothing(t *testing.T) {
	store := newMemStore()
	store.CreateArticle(context.Background(), types.Candidate{Title: "t", URL: "u", Content: "body"})
	o := New(&fakeSource{}, store, &fakeAnnotator{},
		&fakeExtractor{byText: map[string]*types.Extraction{"body": validExt()}})

	if _, err := o.Process(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	stats, err := o.Process(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Attempted != 0 {
		t.Errorf("expected an empty second batch, got %+v", stats)
	}
	if len(store.events) != 1 {
		t.Errorf("expected exactly one event total, got %d", len(store.events))
	}
}

func TestProcessAttachesAnnotation(t *testing.T) {
	store := newMemStore()
	store.CreateArticle(context.Background(), types.Candidate{Title: "t", URL: "u", Content: "body"})
	o := New(&fakeSource{}, store, &fakeAnnotator{},
		&fakeExtractor{byText: map[string]*types.Extraction{"body": validExt()}})

	if _, err := o.Process(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected one event, got %d", len(store.events))
	}
	ev := store.events[0]
	if ev.ArticleID != 1 || ev.Company != "Acme" || ev.EventType != "earnings" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Annotation == nil || ev.Annotation.TotalEntities != 1 {
		t.Errorf("expected annotation attached, got %+v", ev.Annotation)
	}
	if ev.ExtractedAt.IsZero() {
		t.Error("expected extraction timestamp")
	}
}
