// Package pipeline orchestrates ingestion and processing. Processing gives
// at-most-once semantics per article: every attempted article is committed as
// processed, with or without an extracted event, and one bad article never
// aborts the batch.
package pipeline

import (
	"context"
	"time"

	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/logger"
	"financial-news-intelligence/internal/textnorm"
	"financial-news-intelligence/internal/trace"
	"financial-news-intelligence/internal/types"
)

// Orchestrator wires the candidate source, the store, the annotator and the
// extractor into the two pipeline operations.
type Orchestrator struct {
	source    interfaces.CandidateSource
	store     interfaces.ArticleStore
	annotator interfaces.Annotator
	extractor interfaces.Extractor
}

// New builds an orchestrator.
func New(source interfaces.CandidateSource, store interfaces.ArticleStore,
	annotator interfaces.Annotator, extractor interfaces.Extractor) *Orchestrator {
	return &Orchestrator{
		source:    source,
		store:     store,
		annotator: annotator,
		extractor: extractor,
	}
}

// Ingest fetches feed candidates and persists the new ones. Duplicate URLs
// are counted as fetched but not saved. A store failure aborts the pass.
func (o *Orchestrator) Ingest(ctx context.Context, perFeedLimit int) (types.IngestStats, error) {
	ctx, span := trace.StartSpan(ctx, "ingest")
	defer span.End()

	var stats types.IngestStats
	candidates := o.source.Fetch(ctx, perFeedLimit)
	stats.Fetched = len(candidates)

	for _, c := range candidates {
		_, created, err := o.store.CreateArticle(ctx, c)
		if err != nil {
			return stats, err
		}
		if created {
			stats.Saved++
		}
	}

	logger.Info(ctx, "Ingest completed", "fetched", stats.Fetched, "saved", stats.Saved)
	return stats, nil
}

// Process runs the extraction pipeline over up to limit pending articles,
// oldest first. Every article whose outcome commits counts as processed, even
// when annotation or extraction failed and no event was produced. A commit
// failure leaves that article pending for a later batch.
func (o *Orchestrator) Process(ctx context.Context, limit int) (types.ProcessStats, error) {
	ctx, span := trace.StartSpan(ctx, "process-batch")
	defer span.End()

	var stats types.ProcessStats
	pending, err := o.store.ListPending(ctx, limit)
	if err != nil {
		return stats, err
	}
	stats.Attempted = len(pending)

	for _, article := range pending {
		event := o.processOne(ctx, article)

		if err := o.store.FinishArticle(ctx, article.ID, event); err != nil {
			logger.ErrorWithErr(ctx, "Failed to commit article outcome", err, "article_id", article.ID)
			continue
		}
		stats.Processed++
		if event != nil {
			stats.Events++
		}
	}

	logger.Info(ctx, "Process batch completed",
		"attempted", stats.Attempted, "processed", stats.Processed, "events", stats.Events)
	return stats, nil
}

// processOne runs one article through normalization, annotation, extraction
// and validation. Any failure yields a nil event; the article is still
// committed as processed by the caller.
func (o *Orchestrator) processOne(ctx context.Context, article types.Article) *types.ExtractedEvent {
	ctx, span := trace.StartSpan(ctx, "process-article")
	defer span.End()

	chunks := textnorm.Pipeline(article.Content)
	text := chunks[0]
	if text == "" {
		logger.Warn(ctx, "Article cleaned to empty text", "article_id", article.ID)
		return nil
	}

	annotation, err := o.annotator.Summarize(text)
	if err != nil {
		logger.ErrorWithErr(ctx, "Annotation failed", err, "article_id", article.ID)
		return nil
	}

	ext, err := o.extractor.Extract(ctx, text)
	if err != nil {
		logger.ErrorWithErr(ctx, "Extraction failed", err, "article_id", article.ID)
		return nil
	}
	if ext == nil {
		logger.Warn(ctx, "Extraction produced no parseable result", "article_id", article.ID)
		return nil
	}
	if !validExtraction(ext) {
		logger.Warn(ctx, "Extraction failed validation", "article_id", article.ID,
			"event_type", ext.EventType, "sentiment", ext.Sentiment, "confidence", ext.Confidence)
		return nil
	}

	return &types.ExtractedEvent{
		ArticleID:   article.ID,
		Company:     ext.Company,
		Sector:      ext.Sector,
		EventType:   ext.EventType,
		Sentiment:   ext.Sentiment,
		Confidence:  ext.Confidence,
		KeyMetrics:  ext.KeyMetrics,
		Annotation:  annotation,
		Raw:         ext.Raw,
		ExtractedAt: time.Now().UTC(),
	}
}

// validExtraction enforces the closed vocabularies and the confidence range.
func validExtraction(ext *types.Extraction) bool {
	if !types.ValidEventType(ext.EventType) {
		return false
	}
	if !types.ValidSentiment(ext.Sentiment) {
		return false
	}
	return ext.Confidence >= 0 && ext.Confidence <= 1
}
