package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hoursly/internal/api"
	"hoursly/internal/api/middleware"
	"hoursly/internal/app/service"
	"hoursly/internal/domain/repository"
	"hoursly/internal/platform/cache"
	"hoursly/internal/platform/config"
	"hoursly/internal/platform/database"
	"hoursly/internal/platform/logger"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	// 2. Initialize Logger
	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open the Store
	store, err := openStore(ctx, cfg)
	if err != nil {
		zlog.Fatal("Could not open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Error("Store close failed", zap.Error(err))
		}
		zlog.Info("Store closed.")
	}()
	zlog.Info("Store ready", zap.String("driver", cfg.StoreDriver))

	// 4. Initialize the View Cache
	viewCache, closeCache, err := openCache(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer closeCache()

	// 5. Initialize Services
	userService := service.NewUserService(store, viewCache, zlog)
	courseService := service.NewCourseService(store, viewCache, zlog)

	// 6. Initialize Router & HTTP Server
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := api.NewRouter(userService, courseService, limiter, zlog)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop // Wait for interrupt signal

	zlog.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
		return
	}
	zlog.Info("Server stopped gracefully.")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverBolt:
		db, err := database.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewBoltStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	default:
		db, err := database.OpenPostgres(ctx, cfg.DBConnStr, cfg.DBMaxOpenConns)
		if err != nil {
			return nil, err
		}
		store := repository.NewPgStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	}
}

// openCache returns the Redis view cache, or a no-op cache when REDIS_ADDR is empty.
func openCache(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (service.ViewCache, func(), error) {
	if cfg.RedisAddr == "" {
		zlog.Info("REDIS_ADDR not set, view cache disabled")
		return cache.Nop{}, func() {}, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	zlog.Info("Redis connected", zap.String("addr", cfg.RedisAddr))
	closeFn := func() {
		rdb.Close()
		zlog.Info("Redis connection closed.")
	}
	return cache.NewViewCache(rdb, cfg.CacheTTL, zlog), closeFn, nil
}
