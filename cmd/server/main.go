package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spazatrack/internal/config"
	"spazatrack/internal/infra"
	"spazatrack/internal/metrics"
	"spazatrack/internal/repository"
	"spazatrack/internal/router"
	"spazatrack/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("failed to connect to database")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Background alerting. Worker handlers are wired here (composition root)
	// so the pool shares the mailer's circuit breaker with the replay loop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mailer := infra.NewMailer(cfg)
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set: low-stock alerts will only be logged")
	}
	dispatcher := worker.NewDispatcher(rdb, m)

	pool := worker.StartWorkerPool(ctx, rdb, worker.WorkerHandlers{
		LowStock: worker.NewLowStockWorker(mailer, repository.NewUserRepository(db)),
	}, m, cfg.WorkerPoolSize)
	worker.StartDLQReplay(ctx, worker.ReplayConfig{
		RDB:          rdb,
		Queue:        worker.QueueLowStock,
		BreakerState: mailer.BreakerState,
	})

	r, err := router.New(cfg, router.Deps{
		DB:      db,
		Redis:   rdb,
		Mailer:  mailer,
		Metrics: m,
		Alerts:  dispatcher,
	})
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("spazatrack backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Stop the workers after in-flight requests have enqueued their jobs.
	cancel()
	pool.Wait()
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
