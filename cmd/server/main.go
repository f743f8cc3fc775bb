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

	"portfolio-server/internal/config"
	"portfolio-server/internal/database"
	"portfolio-server/internal/logger"

	"go.uber.org/zap"
)

const (
	connectRetries    = 50
	connectRetryDelay = 3 * time.Second
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Service: "portfolio-server", Level: cfg.LogLevel, Encoding: cfg.LogFormat})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded", zap.String("env", cfg.Env), zap.String("logLevel", cfg.LogLevel))

	// --- External connections ---
	ctx := context.Background()

	pool, err := database.NewPool(ctx, database.PoolConfig{
		URL:         cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		MaxRetries:  connectRetries,
		RetryDelay:  connectRetryDelay,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, connectRetries, connectRetryDelay, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	router, err := newApp(ctx, cfg, pool, redisClient, log)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}
