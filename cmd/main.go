// bidwatch — procurement announcement tracker.
//
// Periodically collects public construction-work notices, keeps the ones
// matching the configured keyword/price rules, and serves them over a JSON
// API for review:
//   - GET  /bids               — stored announcements, newest first
//   - POST /collect            — run a collection now
//   - POST /bids/{id}/favorite — toggle the favorite flag
//   - GET  /metrics            — Prometheus metrics
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bidwatch/internal/config"
	"bidwatch/internal/db"
	"bidwatch/internal/fetch"
	"bidwatch/internal/filter"
	"bidwatch/internal/metrics"
	"bidwatch/internal/pipeline"
	"bidwatch/internal/scheduler"
	"bidwatch/internal/server"
	"bidwatch/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ──────────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("postgres connected")

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("redis connected")

	bids := store.NewPostgresStore(pool)
	if err := bids.EnsureSchema(ctx); err != nil {
		return err
	}

	// ── Ingestion ────────────────────────────────────────────────────────────
	var fetcher fetch.Fetcher
	if cfg.NaraAPIKey == "" {
		log.Warn("NARA_API_KEY not set, serving the static sample batch")
		fetcher = fetch.NewStaticFetcher()
	} else {
		fetcher = fetch.NewNaraFetcher(cfg.NaraAPIURL, cfg.NaraAPIKey)
	}

	rules := filter.Rules{
		IncludeKeywords: cfg.IncludeKeywords,
		ExcludeKeywords: cfg.ExcludeKeywords,
		MinimumPrice:    cfg.MinimumPrice,
	}

	reg := metrics.NewRegistry()
	pipe := pipeline.New(fetcher, rules, bids, store.NewSeenCache(rdb), rdb, reg, log)

	sched := scheduler.New(pipe, cfg.PollInterval, log)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ── HTTP API ─────────────────────────────────────────────────────────────
	srv := server.NewHandler(bids, sched, reg, log).NewHTTPServer(cfg.Port)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}

	log.Info("stopped")
	return nil
}
