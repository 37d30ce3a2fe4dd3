package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/captable/internal/adapter/http"
	"github.com/iho/captable/internal/adapter/http/handler"
	"github.com/iho/captable/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/captable/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/captable/internal/adapter/repository/redis"
	"github.com/iho/captable/internal/infrastructure/config"
	"github.com/iho/captable/internal/infrastructure/eventpublisher"
	"github.com/iho/captable/internal/infrastructure/logger"
	"github.com/iho/captable/internal/infrastructure/metrics"
	"github.com/iho/captable/internal/infrastructure/postgres"
	"github.com/iho/captable/internal/infrastructure/redis"
	"github.com/iho/captable/internal/usecase"
)

const (
	lockTimeout         = 5 * time.Second
	limiterCleanupEvery = time.Minute
	limiterIdleAfter    = 10 * time.Minute
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var migrateOnly, skipMigrations bool

	cmd := &cobra.Command{
		Use:           "captable-server",
		Short:         "Cap table HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

			if !skipMigrations {
				if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
					log.Error().Err(err).Msg("migrations failed")
					return err
				}
			}
			if migrateOnly {
				return nil
			}

			if err := run(cmd.Context(), cfg, log); err != nil {
				log.Error().Err(err).Msg("server failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateOnly, "migrate", false, "Apply database migrations and exit")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Start without applying database migrations")
	cmd.MarkFlagsMutuallyExclusive("migrate", "skip-migrations")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	txManager := postgresRepo.NewTxManager(pool).WithLockTimeout(lockTimeout)
	stakeholderRepo := postgresRepo.NewStakeholderRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	retrier := postgresRepo.NewRetrier(log)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	capTableUC := usecase.NewCapTableUseCase(
		txManager, stakeholderRepo, outboxRepo, cache, retrier, idGen,
		metrics.New(), settingsFrom(cfg), log,
	)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go cleanupLimiters(ctx, limiter, log)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CapTableHandler:  handler.NewCapTableHandler(capTableUC),
		HealthHandler:    handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      limiter,
		Logger:           log,
	})

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewRedisPublisher(redisClient, cfg.OutboxChannel),
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	server := newHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

func settingsFrom(cfg *config.Config) usecase.CapTableSettings {
	return usecase.CapTableSettings{
		SharesPerPercent: cfg.SharesPerPercent,
		Tolerance:        cfg.EquityTolerance,
		SummaryTTL:       cfg.SummaryCacheTTL,
	}
}

func cleanupLimiters(ctx context.Context, limiter *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.CleanupLimiters(limiterIdleAfter); n > 0 {
				log.Debug().Int("removed", n).Msg("evicted idle rate limiters")
			}
		}
	}
}
