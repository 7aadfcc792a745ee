package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financial-news-intelligence/internal/annotate"
	"financial-news-intelligence/internal/config"
	"financial-news-intelligence/internal/extract"
	"financial-news-intelligence/internal/extract/gemini"
	"financial-news-intelligence/internal/extract/noop"
	"financial-news-intelligence/internal/extract/openai"
	"financial-news-intelligence/internal/feeds"
	"financial-news-intelligence/internal/httpapi"
	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/logger"
	"financial-news-intelligence/internal/pipeline"
	"financial-news-intelligence/internal/storage"
	"financial-news-intelligence/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	must(logger.Init())
	must(trace.Init())
	defer trace.Shutdown(context.Background())

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	must(err)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Database.DSN)
	must(err)
	defer store.Close()

	annotator, err := annotate.NewDefault()
	must(err)

	provider, err := buildProvider(cfg)
	must(err)
	logger.Info(ctx, "Provider selected", "provider", provider.Name(), "model", cfg.LLM.Model)

	sources := make([]feeds.Source, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		sources = append(sources, feeds.Source{Name: f.Name, URL: f.URL})
	}
	fetcher := feeds.New(sources)

	orch := pipeline.New(fetcher, store, annotator, extract.New(provider))

	api := httpapi.NewServer(orch, store, httpapi.Options{
		PerFeedLimit: cfg.Ingest.PerFeedLimit,
		BatchLimit:   cfg.Process.BatchLimit,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server starting", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	if cfg.Poll.Enabled {
		go pollLoop(ctx, orch, cfg)
	}

	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(context.Background(), "HTTP shutdown failed", err)
	}
}

// pollLoop runs ingest then process on a fixed interval. Passes are
// serialized: a slow pass delays the next tick rather than overlapping it.
func pollLoop(ctx context.Context, orch *pipeline.Orchestrator, cfg *config.Config) {
	interval := time.Duration(cfg.Poll.IntervalSeconds) * time.Second
	tick := time.NewTicker(interval)
	defer tick.Stop()

	logger.Info(ctx, "Poll loop started", "interval", interval.String())
	for {
		select {
		case <-tick.C:
			if _, err := orch.Ingest(ctx, cfg.Ingest.PerFeedLimit); err != nil {
				logger.ErrorWithErr(ctx, "Scheduled ingest failed", err)
				continue
			}
			if _, err := orch.Process(ctx, cfg.Process.BatchLimit); err != nil {
				logger.ErrorWithErr(ctx, "Scheduled process failed", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func buildProvider(cfg *config.Config) (interfaces.Provider, error) {
	switch cfg.LLM.Provider {
	case "GEMINI":
		return gemini.New(os.Getenv(cfg.LLM.APIKeyEnv), cfg.LLM.Model, gemini.Options{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	case "OPENAI":
		return openai.New(os.Getenv(cfg.LLM.APIKeyEnv), cfg.LLM.Model, openai.Options{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	case "NOOP":
		return noop.New(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}
