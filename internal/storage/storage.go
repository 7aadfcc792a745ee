// Package storage persists articles and extracted events in PostgreSQL.
// Article URL is the identity key; finishing an article commits the event
// insert and the processed flip in one transaction.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/logger"
	"financial-news-intelligence/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id           BIGSERIAL PRIMARY KEY,
	title        TEXT NOT NULL,
	source       TEXT NOT NULL,
	url          TEXT NOT NULL UNIQUE,
	content      TEXT NOT NULL,
	published_at TIMESTAMPTZ,
	fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_articles_pending ON articles (fetched_at) WHERE processed = FALSE;

CREATE TABLE IF NOT EXISTS extracted_events (
	id                 BIGSERIAL PRIMARY KEY,
	article_id         BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	company            TEXT,
	sector             TEXT,
	event_type         TEXT NOT NULL,
	sentiment          TEXT NOT NULL,
	confidence_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	key_metrics        JSONB,
	extracted_entities JSONB,
	llm_extraction     JSONB,
	extracted_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_article ON extracted_events (article_id);
CREATE INDEX IF NOT EXISTS idx_events_company ON extracted_events (company);
`

// psql builds queries with $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

var _ interfaces.ArticleStore = (*Store)(nil)

// Open connects to PostgreSQL and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info(ctx, "Database ready")
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// CreateArticle inserts a candidate unless its URL is already stored. On a
// duplicate it returns the existing row id with created=false.
func (s *Store) CreateArticle(ctx context.Context, c types.Candidate) (int64, bool, error) {
	var published any
	if !c.PublishedAt.IsZero() {
		published = c.PublishedAt
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, source, url, content, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`,
		c.Title, c.Source, c.URL, c.Content, published,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("insert article: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT id FROM articles WHERE url = $1`, c.URL).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup article by url: %w", err)
	}
	return id, false, nil
}

// ListPending returns unprocessed articles, oldest fetched first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]types.Article, error) {
	query, args, err := psql.
		Select("id", "title", "source", "url", "content", "published_at", "fetched_at", "processed").
		From("articles").
		Where(sq.Eq{"processed": false}).
		OrderBy("fetched_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// FinishArticle records the outcome of processing one article: the event
// insert (when an event was produced) and the processed flip commit together
// or not at all.
func (s *Store) FinishArticle(ctx context.Context, articleID int64, event *types.ExtractedEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if event != nil {
		keyMetrics, err := jsonbOrNull(event.KeyMetrics)
		if err != nil {
			return err
		}
		entities, err := jsonbOrNull(event.Annotation)
		if err != nil {
			return err
		}
		raw, err := jsonbOrNull(event.Raw)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO extracted_events
				(article_id, company, sector, event_type, sentiment, confidence_score,
				 key_metrics, extracted_entities, llm_extraction)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			articleID, nullStr(event.Company), nullStr(event.Sector),
			event.EventType, event.Sentiment, event.Confidence,
			keyMetrics, entities, raw,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE articles SET processed = TRUE WHERE id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("article %d not found", articleID)
	}

	return tx.Commit()
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	Processed *bool
	Source    string
	Limit     int
	Offset    int
}

// ListArticles returns articles matching the filter, newest fetched first.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]types.Article, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	q := psql.
		Select("id", "title", "source", "url", "content", "published_at", "fetched_at", "processed").
		From("articles").
		OrderBy("fetched_at DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	if f.Processed != nil {
		q = q.Where(sq.Eq{"processed": *f.Processed})
	}
	if f.Source != "" {
		q = q.Where(sq.Eq{"source": f.Source})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// ErrNotFound reports a missing article id.
var ErrNotFound = errors.New("not found")

// GetArticle returns one article with its extracted events.
func (s *Store) GetArticle(ctx context.Context, id int64) (*types.Article, []types.ExtractedEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, source, url, content, published_at, fetched_at, processed
		FROM articles WHERE id = $1`, id)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get article: %w", err)
	}

	events, err := s.eventsForArticle(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return a, events, nil
}

// EventFilter narrows ListEvents. Company matches case-insensitively as a
// substring.
type EventFilter struct {
	Company   string
	EventType string
	Sentiment string
	Limit     int
	Offset    int
}

// ListEvents returns extracted events matching the filter, newest first.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]types.ExtractedEvent, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	q := psql.
		Select("id", "article_id", "company", "sector", "event_type", "sentiment",
			"confidence_score", "key_metrics", "extracted_entities", "llm_extraction", "extracted_at").
		From("extracted_events").
		OrderBy("extracted_at DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	if f.Company != "" {
		q = q.Where(sq.ILike{"company": "%" + f.Company + "%"})
	}
	if f.EventType != "" {
		q = q.Where(sq.Eq{"event_type": f.EventType})
	}
	if f.Sentiment != "" {
		q = q.Where(sq.Eq{"sentiment": f.Sentiment})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) eventsForArticle(ctx context.Context, articleID int64) ([]types.ExtractedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, article_id, company, sector, event_type, sentiment,
		       confidence_score, key_metrics, extracted_entities, llm_extraction, extracted_at
		FROM extracted_events WHERE article_id = $1 ORDER BY extracted_at ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("events for article: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Summarize aggregates article and event counts for reporting.
func (s *Store) Summarize(ctx context.Context) (*types.Summary, error) {
	sum := &types.Summary{
		BySentiment: make(map[string]int64),
		ByEventType: make(map[string]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE processed),
		       count(*) FILTER (WHERE NOT processed)
		FROM articles`).Scan(&sum.TotalArticles, &sum.Processed, &sum.Pending)
	if err != nil {
		return nil, fmt.Errorf("summarize articles: %w", err)
	}

	if err := s.countGroups(ctx, "sentiment", sum.BySentiment, &sum.TotalEvents); err != nil {
		return nil, err
	}
	var discard int64
	if err := s.countGroups(ctx, "event_type", sum.ByEventType, &discard); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT company, count(*)
		FROM extracted_events
		WHERE company IS NOT NULL AND company <> ''
		GROUP BY company ORDER BY count(*) DESC, company ASC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("summarize companies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc types.CompanyCount
		if err := rows.Scan(&cc.Company, &cc.Count); err != nil {
			return nil, err
		}
		sum.TopCompanies = append(sum.TopCompanies, cc)
	}
	return sum, rows.Err()
}

func (s *Store) countGroups(ctx context.Context, column string, into map[string]int64, total *int64) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, count(*) FROM extracted_events GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("summarize by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
		*total += n
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*types.Article, error) {
	var a types.Article
	var published sql.NullTime
	err := row.Scan(&a.ID, &a.Title, &a.Source, &a.URL, &a.Content,
		&published, &a.FetchedAt, &a.Processed)
	if err != nil {
		return nil, err
	}
	if published.Valid {
		t := published.Time
		a.PublishedAt = &t
	}
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]types.Article, error) {
	var out []types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]types.ExtractedEvent, error) {
	var out []types.ExtractedEvent
	for rows.Next() {
		var e types.ExtractedEvent
		var company, sector sql.NullString
		var keyMetrics, entities, raw []byte

		err := rows.Scan(&e.ID, &e.ArticleID, &company, &sector, &e.EventType,
			&e.Sentiment, &e.Confidence, &keyMetrics, &entities, &raw, &e.ExtractedAt)
		if err != nil {
			return nil, err
		}
		e.Company = company.String
		e.Sector = sector.String

		if len(keyMetrics) > 0 {
			if err := json.Unmarshal(keyMetrics, &e.KeyMetrics); err != nil {
				return nil, fmt.Errorf("decode key_metrics: %w", err)
			}
		}
		if len(entities) > 0 {
			if err := json.Unmarshal(entities, &e.Annotation); err != nil {
				return nil, fmt.Errorf("decode extracted_entities: %w", err)
			}
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Raw); err != nil {
				return nil, fmt.Errorf("decode llm_extraction: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func jsonbOrNull(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	case *types.Annotation:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return b, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
