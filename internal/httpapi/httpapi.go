// Package httpapi exposes the pipeline and the stored corpus over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"financial-news-intelligence/internal/logger"
	"financial-news-intelligence/internal/storage"
	"financial-news-intelligence/internal/types"
)

// Pipeline is the slice of the orchestrator the handlers invoke.
type Pipeline interface {
	Ingest(ctx context.Context, perFeedLimit int) (types.IngestStats, error)
	Process(ctx context.Context, limit int) (types.ProcessStats, error)
}

// Queries is the read surface of the store the handlers depend on.
type Queries interface {
	ListArticles(ctx context.Context, f storage.ArticleFilter) ([]types.Article, error)
	GetArticle(ctx context.Context, id int64) (*types.Article, []types.ExtractedEvent, error)
	ListEvents(ctx context.Context, f storage.EventFilter) ([]types.ExtractedEvent, error)
	Summarize(ctx context.Context) (*types.Summary, error)
}

// Options carry the default batch sizes applied when a request names none.
type Options struct {
	PerFeedLimit int
	BatchLimit   int
}

// Server holds the handler dependencies.
type Server struct {
	pipeline Pipeline
	queries  Queries
	opts     Options
}

// NewServer builds the API server.
func NewServer(pipeline Pipeline, queries Queries, opts Options) *Server {
	if opts.PerFeedLimit <= 0 {
		opts.PerFeedLimit = 10
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 10
	}
	return &Server{pipeline: pipeline, queries: queries, opts: opts}
}

// Router assembles the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Post("/ingest", s.handleIngest)
	r.Post("/process", s.handleProcess)
	r.Get("/articles", s.handleListArticles)
	r.Get("/articles/{id}", s.handleGetArticle)
	r.Get("/events", s.handleListEvents)
	r.Get("/summary", s.handleSummary)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "per_feed_limit", s.opts.PerFeedLimit)

	stats, err := s.pipeline.Ingest(r.Context(), limit)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Ingest request failed", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", s.opts.BatchLimit)

	stats, err := s.pipeline.Process(r.Context(), limit)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Process request failed", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	f := storage.ArticleFilter{
		Source: strings.TrimSpace(r.URL.Query().Get("source")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if p := r.URL.Query().Get("processed"); p != "" {
		v, err := strconv.ParseBool(p)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid processed value"})
			return
		}
		f.Processed = &v
	}

	articles, err := s.queries.ListArticles(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if articles == nil {
		articles = []types.Article{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles, "count": len(articles)})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid article id"})
		return
	}

	article, events, err := s.queries.GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "article not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if events == nil {
		events = []types.ExtractedEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article, "events": events})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f := storage.EventFilter{
		Company:   strings.TrimSpace(r.URL.Query().Get("company")),
		EventType: strings.TrimSpace(r.URL.Query().Get("event_type")),
		Sentiment: strings.TrimSpace(r.URL.Query().Get("sentiment")),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}
	if f.EventType != "" && !types.ValidEventType(f.EventType) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event_type"})
		return
	}
	if f.Sentiment != "" && !types.ValidSentiment(f.Sentiment) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid sentiment"})
		return
	}

	events, err := s.queries.ListEvents(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if events == nil {
		events = []types.ExtractedEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.queries.Summarize(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
