package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/leojay-net/chatshop/internal/app"
	"github.com/leojay-net/chatshop/internal/config"
	"github.com/leojay-net/chatshop/internal/server"
	"github.com/leojay-net/chatshop/internal/util"
	"github.com/leojay-net/chatshop/pkg/ai"
	"github.com/leojay-net/chatshop/pkg/scrape"
	"github.com/leojay-net/chatshop/pkg/search"
	"github.com/leojay-net/chatshop/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel)

	sessionStore, err := buildStore(cfg)
	if err != nil {
		util.Fatal("failed to init session store", "err", err)
	}

	model, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		util.Fatal("failed to init gemini client", "err", err)
	}

	fetcher := scrape.NewFetcher(time.Duration(cfg.FetchTimeoutSeconds) * time.Second)
	aggregator := search.NewAggregator(
		[]search.Extractor{
			scrape.NewAmazon(fetcher),
			scrape.NewAliExpress(fetcher),
			scrape.NewJumia(fetcher),
		},
		search.Options{
			Delay:       time.Duration(cfg.FetchDelaySeconds) * time.Second,
			Concurrency: cfg.SearchConcurrency,
		},
	)

	appCore, err := app.New(app.Config{
		Store:          sessionStore,
		Model:          model,
		Searcher:       aggregator,
		PagesPerSource: cfg.PagesPerSource,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer := server.New(server.Config{App: appCore})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("chatshop server listening", "addr", addr, "store", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		util.Fatal("server error", "err", err)
	}
}

func buildStore(cfg config.FileConfig) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return store.NewGormStore(cfg.DatabaseURL)
	case config.BackendRedis:
		ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, ttl), nil
	default:
		return store.NewMemoryStore(), nil
	}
}
