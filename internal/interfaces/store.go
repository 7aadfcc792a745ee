package interfaces

import (
	"context"

	"financial-news-intelligence/internal/types"
)

// ArticleStore is the persistence surface the pipeline depends on.
//
// CreateArticle must be an insert-or-ignore keyed on URL: it returns
// created=false instead of an error when the URL is already stored.
// FinishArticle commits the event insert (when event is non-nil) and the
// processed-status flip in a single transaction.
type ArticleStore interface {
	CreateArticle(ctx context.Context, c types.Candidate) (id int64, created bool, err error)
	ListPending(ctx context.Context, limit int) ([]types.Article, error)
	FinishArticle(ctx context.Context, articleID int64, event *types.ExtractedEvent) error
}
