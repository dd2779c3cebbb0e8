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

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pizzeria/api/internal/config"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/logging"
	"github.com/pizzeria/api/internal/mailer"
	mw "github.com/pizzeria/api/internal/middleware"
	"github.com/pizzeria/api/internal/router"
	"github.com/pizzeria/api/internal/storage"
	"github.com/pizzeria/api/internal/ws"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	photos, err := newPhotoStore(cfg)
	if err != nil {
		return err
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	var events ws.Publisher = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		relay := ws.NewRedisRelay(rdb, cfg.RedisChannel, hub, logger.Named("realtime"))
		if err := relay.Subscribe(ctx); err != nil {
			return err
		}
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("realtime relay stopped, delivering events locally", zap.Error(err))
			}
		}()
		events = relay
		logger.Info("realtime relay enabled", zap.String("channel", cfg.RedisChannel))
	}

	limiter := mw.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	limiter.StartCleanup(5*time.Minute, ctx.Done())

	r := router.New(cfg, router.Deps{
		Queries: database.New(pool),
		Pool:    pool,
		Hub:     hub,
		Events:  events,
		Photos:  photos,
		Mailer:  mailer.NewLogMailer(logger.Named("mailer"), cfg.ResetLinkURL),
		Limiter: limiter,
		Logger:  logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-hub.Done()
	return nil
}

func newPhotoStore(cfg *config.Config) (storage.PhotoStore, error) {
	switch cfg.StorageDriver {
	case config.StorageSupabase:
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	default:
		return storage.NewDiskStore(cfg.StorageDir, cfg.PublicBaseURL)
	}
}
