// sync-once runs a single full sync pass and exits. Cron-like schedulers
// call this binary; the long-running service in the repository root serves
// the HTTP surface instead.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"ms-ticket-sync/internal/artist"
	"ms-ticket-sync/internal/config"
	"ms-ticket-sync/internal/kafka"
	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/provider"
	"ms-ticket-sync/internal/sales"
	"ms-ticket-sync/internal/store"
	"ms-ticket-sync/internal/store/migrations"
	syncengine "ms-ticket-sync/internal/sync"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func main() {
	force := flag.Bool("force", false, "delete and refetch every event's order lines")
	eventID := flag.Int64("event", 0, "sync a single event id instead of all")
	flag.Parse()

	_ = godotenv.Load()

	log := logger.NewLogger()
	defer log.Close()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid configuration: %v", err))
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	db := store.New(bunDB, log)

	var notifier syncengine.Notifier
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.MockMode, log)
		defer producer.Close()
		notifier = producer
	}

	client := provider.NewClient(cfg.Provider, log)
	matcher := artist.NewMatcher(db, cfg.Sync.ArtistCacheTTL, log)
	aggregator := sales.NewAggregator(db, db, log)
	orchestrator := syncengine.NewOrchestrator(
		client, db, artist.DefaultExtractor(), matcher, aggregator,
		notifier, nil, log,
		syncengine.Options{
			Concurrency:  cfg.Sync.Concurrency,
			BatchSize:    cfg.Sync.BatchSize,
			LookbackDays: cfg.Sync.EventLookbackDays,
		},
	)

	ctx := context.Background()
	if *eventID != 0 {
		err = orchestrator.SyncEvents(ctx, []int64{*eventID}, *force)
	} else {
		err = orchestrator.SyncAll(ctx, *force)
	}
	if err != nil {
		log.Fatal("SYNC", fmt.Sprintf("Sync failed: %v", err))
	}
}
