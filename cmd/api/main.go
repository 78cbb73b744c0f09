package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/internal/http/chi"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/record"
	recordmemory "github.com/marcelsud/webhook-relay/record/memory"
	"github.com/marcelsud/webhook-relay/record/postgres"
	recordredis "github.com/marcelsud/webhook-relay/record/redis"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/memory"
	relayredis "github.com/marcelsud/webhook-relay/relay/redis"
	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* main wires the packages together; imports flow one way, down:
 * cmd -> http -> relay/record -> storage
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := httplog.NewLogger("webhook-relay", httplog.Options{
		JSON:     true,
		LogLevel: cfg.LogLevel,
	})

	tunnels := tunnel.NewLoader()
	if err := tunnels.Load(cfg.TunnelsFile); err != nil {
		logger.Fatal().Err(err).Str("file", cfg.TunnelsFile).Msg("failed to load tunnels")
	}
	logger.Info().Int("count", len(tunnels.List())).Msg("tunnels loaded")

	backend, notifier, err := newBackend(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Backend).Msg("failed to set up relay backend")
	}
	defer backend.Close(context.Background())

	repo, err := newRecordRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up record storage")
	}
	defer repo.Close(context.Background())

	records := record.NewService(repo, notifier, logger)
	saver := record.NewAsyncSaver(records, cfg.RecordWorkers, logger)
	defer saver.Stop()

	exporter, err := metrics.NewOTelExporter(metrics.NewRelayCollector(backend, tunnels))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up metrics")
	}
	defer exporter.Shutdown(context.Background())

	service := relay.NewService(backend, logger, relay.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxPollWait:    cfg.PollWait,
		Observer:       exporter,
	})
	go relay.NewSweeper(backend, cfg.CleanupInterval, logger).Run(ctx)

	r := chi.Handlers(ctx, chi.Deps{
		Relay:     service,
		Records:   records,
		Saver:     saver,
		Tunnels:   tunnels,
		Metrics:   exporter.ServeHTTP(),
		Logger:    logger,
		RateLimit: chi.RateLimit{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		PollWait:  cfg.PollWait,
	})
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout: 30 * time.Second,
		// streams and synchronous relays outlive any fixed write deadline
		WriteTimeout: 0,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info().Str("port", cfg.Port).Str("backend", cfg.Backend).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server failed")
		return
	}
	err = <-errShutdown
	if err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return
	}
}

// newBackend picks the relay backend; the redis one also feeds the record notifier
func newBackend(cfg *config.Config) (relay.Backend, record.Notifier, error) {
	if cfg.Backend != config.BackendRedis {
		return memory.NewBackend(cfg.ClientTimeout, cfg.MaxQueueDepth), nil, nil
	}
	client, err := relayredis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	backend := relayredis.NewBackend(client, relayredis.Options{
		ClientTimeout: cfg.ClientTimeout,
		MaxQueueDepth: cfg.MaxQueueDepth,
		ResponseTTL:   2 * cfg.RequestTimeout,
	})
	return backend, recordredis.NewNotifier(client), nil
}

// newRecordRepository uses Postgres when a DSN is configured
func newRecordRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (record.Repository, error) {
	if cfg.PostgresDSN == "" {
		logger.Warn().Msg("POSTGRES_DSN not set, records are kept in memory")
		return recordmemory.NewRepository(0), nil
	}
	repo, err := postgres.NewRepositoryWithPoolConfig(cfg.PostgresDSN, 25, 5, 5)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateTable(ctx); err != nil {
		repo.Close(ctx)
		return nil, err
	}
	return repo, nil
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("forcing closing the server: %w", err)
	}
}
