package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/trogers1052/satoshi-dashboard/internal/alpaca"
	"github.com/trogers1052/satoshi-dashboard/internal/api"
	"github.com/trogers1052/satoshi-dashboard/internal/botstatus"
	"github.com/trogers1052/satoshi-dashboard/internal/coingecko"
	"github.com/trogers1052/satoshi-dashboard/internal/commentary"
	"github.com/trogers1052/satoshi-dashboard/internal/config"
	"github.com/trogers1052/satoshi-dashboard/internal/dashboard"
	"github.com/trogers1052/satoshi-dashboard/internal/database"
	"github.com/trogers1052/satoshi-dashboard/internal/kafka"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"github.com/trogers1052/satoshi-dashboard/internal/redis"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Stack those sats!")

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.MigrationsPath, cfg.Database.ConnectionString(), logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL database")

	m := metrics.New()

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info("Connected to Redis cache", zap.String("addr", cfg.Redis.Address()))
	}

	readerOpts := []botstatus.Option{botstatus.WithMetrics(m)}
	priceOpts := []coingecko.Option{coingecko.WithMetrics(m)}
	if redisClient != nil {
		readerOpts = append(readerOpts, botstatus.WithCache(redisClient))
		priceOpts = append(priceOpts, coingecko.WithCache(redisClient))
	}

	brokerage := alpaca.New(cfg.Alpaca.BaseURL, config.AlpacaCredentials, logger,
		alpaca.WithTimeout(cfg.Alpaca.Timeout),
		alpaca.WithMetrics(m))
	reader := botstatus.NewReader(db, logger, readerOpts...)
	commentator := commentary.New(cfg.OpenAI, config.OpenAIAPIKey, logger, commentary.WithMetrics(m))
	ticker := coingecko.New(cfg.CoinGecko.BaseURL, cfg.CoinGecko.Timeout, logger, priceOpts...)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := dashboard.New(dashboard.Deps{
		Brokerage:   brokerage,
		Status:      reader,
		Commentator: commentator,
		Price:       ticker,
	}, cfg.Polling, logger,
		dashboard.WithLocation(cfg.Display.Location()),
		dashboard.WithMetrics(m))
	if err := svc.Start(ctx); err != nil {
		logger.Fatal("Failed to start dashboard polling", zap.Error(err))
	}

	// Create and start Kafka consumer for bot status events
	var consumer *kafka.StatusConsumer
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer = kafka.NewStatusConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.StatusTopic,
			cfg.Kafka.ConsumerGroup,
			db,
			reader,
			svc.RefreshStatus,
			logger,
		)
		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx); err != nil {
				logger.Error("Kafka status consumer error", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	// Set up HTTP handler and routes
	deps := api.Deps{
		Brokerage:    brokerage,
		Status:       reader,
		Commentator:  commentator,
		Price:        ticker,
		Dashboard:    svc,
		Database:     db,
		KafkaEnabled: cfg.Kafka.Enabled,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	handler := api.NewHandler(deps, cfg.Display.Location(), logger)
	router := api.SetupRoutes(handler, m.Handler(), logger)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	// Cancel context to stop pollers and the Kafka consumer
	cancel()
	// The consumer refreshes the dashboard, so it has to drain first
	<-consumerDone
	svc.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("Error closing Kafka status consumer", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

func runMigrations(migrationsPath, databaseURL string, logger *zap.Logger) error {
	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	// Apply all available migrations up to the latest version
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to apply; database is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
