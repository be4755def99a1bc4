package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/cache"
	"salesdesk/backend/internal/config"
	"salesdesk/backend/internal/httpapi"
	"salesdesk/backend/internal/logging"
	"salesdesk/backend/internal/service"
	"salesdesk/backend/internal/store"
	"salesdesk/backend/internal/store/memory"
	pgstore "salesdesk/backend/internal/store/postgres"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(ginMode(cfg.GinMode))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("repository unavailable")
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	reportCache := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, report cache disabled")
			_ = redisCache.Close()
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Str("addr", cfg.RedisAddr).Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	svc := service.New(repo, reportCache, cfg.ReportCacheTTL)
	api := httpapi.New(svc, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("sales backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

// openRepository picks postgres when DATABASE_URL is set and refuses to fall
// back to memory if it cannot connect.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		if cfg.SeedDemoData {
			log.Info().Msg("repository: in-memory (seeded)")
			return memory.NewSeeded(), nil, nil
		}
		log.Info().Msg("repository: in-memory")
		return memory.New(), nil, nil
	}

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
	}
	if cfg.DatabaseAutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}
	log.Info().Bool("auto_migrate", cfg.DatabaseAutoMigrate).Msg("repository: postgres")
	return pg, pg.Close, nil
}

func ginMode(raw string) string {
	switch raw {
	case gin.DebugMode, gin.TestMode, gin.ReleaseMode:
		return raw
	default:
		return gin.ReleaseMode
	}
}
