package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-ticket-sync/internal/api"
	"ms-ticket-sync/internal/artist"
	"ms-ticket-sync/internal/config"
	"ms-ticket-sync/internal/kafka"
	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/provider"
	"ms-ticket-sync/internal/sales"
	"ms-ticket-sync/internal/store"
	"ms-ticket-sync/internal/store/migrations"
	syncengine "ms-ticket-sync/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewLogger()
	defer log.Close()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Database
	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	migrationOpts := migrations.DefaultOptions()
	if migrationOpts.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrationOpts)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		log.Info("DATABASE", "Migrations up to date")
	}

	db := store.New(bunDB, log)

	// Redis summary cache (optional; a nil client degrades to store reads)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unavailable, summary cache disabled: %v", err))
			redisClient = nil
		}
	}
	summaryCache := api.NewSummaryCache(redisClient, cfg.Redis.SummaryTTL)

	// Kafka notifications (optional)
	var notifier syncengine.Notifier
	if cfg.Kafka.Enabled {
		if !cfg.Kafka.MockMode {
			if err := kafka.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Could not ensure topic %s: %v", cfg.Kafka.Topic, err))
			}
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.MockMode, log)
		defer producer.Close()
		notifier = producer
	}

	// Sync engine
	client := provider.NewClient(cfg.Provider, log)
	matcher := artist.NewMatcher(db, cfg.Sync.ArtistCacheTTL, log)
	aggregator := sales.NewAggregator(db, db, log)
	orchestrator := syncengine.NewOrchestrator(
		client, db, artist.DefaultExtractor(), matcher, aggregator,
		notifier, summaryCache, log,
		syncengine.Options{
			Concurrency:  cfg.Sync.Concurrency,
			BatchSize:    cfg.Sync.BatchSize,
			LookbackDays: cfg.Sync.EventLookbackDays,
		},
	)

	// HTTP surface
	handler := api.NewHandler(db, orchestrator, summaryCache, log)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("Server failed: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("SERVER", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("SERVER", fmt.Sprintf("Shutdown error: %v", err))
	}
}
