package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/artshield/internal/api"
	"github.com/dunamismax/artshield/internal/backend"
	"github.com/dunamismax/artshield/internal/callback"
	"github.com/dunamismax/artshield/internal/config"
	"github.com/dunamismax/artshield/internal/dedup"
	"github.com/dunamismax/artshield/internal/dispatch"
	"github.com/dunamismax/artshield/internal/jobstate"
	"github.com/dunamismax/artshield/internal/notify"
	"github.com/dunamismax/artshield/internal/processor"
	"github.com/dunamismax/artshield/internal/ratelimit"
	"github.com/dunamismax/artshield/internal/result"
	"github.com/dunamismax/artshield/internal/storage"
	"github.com/dunamismax/artshield/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[gateway] ", log.LstdFlags|log.Lmsgprefix)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Trace, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Printf("tracing shutdown failed: %v", err)
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.JobState.RedisAddr,
		Password: cfg.JobState.RedisPassword,
		DB:       cfg.JobState.RedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Printf("redis client close error: %v", err)
		}
	}()

	backendClient, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		logger.Fatalf("backend client setup failed: %v", err)
	}

	processorClient, err := processor.NewClient(processor.Config{
		BaseURL: cfg.Processor.BaseURL,
		Timeout: cfg.Processor.Timeout,
	})
	if err != nil {
		logger.Fatalf("processor client setup failed: %v", err)
	}

	storageClient, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatalf("storage client setup failed: %v", err)
	}

	jobStore, err := jobstate.NewRedisStore(redisClient, cfg.JobState.KeyPrefix, cfg.JobState.TTL)
	if err != nil {
		logger.Fatalf("job store setup failed: %v", err)
	}

	breaker := dispatch.NewCircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown)
	dispatcher := dispatch.New(logger, processorClient, breaker)
	deduplicator := dedup.New(logger, backendClient)

	notifier := notify.NewClient(notify.Config{
		SigningSecret: cfg.Notify.SigningSecret,
		Timeout:       cfg.Notify.Timeout,
		MaxAttempts:   cfg.Notify.MaxAttempts,
	})
	ingestor := callback.NewIngestor(logger, cfg.Callback.Secret, jobStore, notifier)
	assembler := result.New(logger, jobStore, backendClient, storageClient)

	var limiter api.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.NewTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, "artshield:ratelimit")
		if err != nil {
			logger.Fatalf("rate limiter setup failed: %v", err)
		}
	}

	if cfg.Callback.Secret == "" {
		logger.Printf("warning: callback secret is empty, all processor callbacks will be rejected")
	}

	app := api.NewServer(logger, api.Options{
		Dedup:         deduplicator,
		Dispatcher:    dispatcher,
		Tokens:        backendClient,
		Jobs:          jobStore,
		Views:         assembler,
		Ingest:        ingestor,
		RateLimiter:   limiter,
		MaxUploadSize: cfg.Gateway.MaxUploadSize,
	})

	httpServer := &http.Server{
		Addr:         cfg.Gateway.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.Gateway.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
