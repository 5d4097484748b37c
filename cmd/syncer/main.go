package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"calsync/internal/config"
	"calsync/internal/fetch"
	"calsync/internal/metrics"
	"calsync/internal/publisher"
	"calsync/internal/scheduler"
	"calsync/internal/secrets"
	"calsync/internal/service"
	"calsync/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	key, err := cfg.Secrets.KeyBytes()
	if err != nil {
		logger.Error("failed to read secrets key", "error", err)
		os.Exit(1)
	}

	urlCipher, err := secrets.NewCipher(key)
	if err != nil {
		logger.Error("failed to init url cipher", "error", err)
		os.Exit(1)
	}

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	eventStore := postgres.NewEventStore(db)
	feedStore := postgres.NewFeedStore(db)
	aggregateStore := postgres.NewAggregateStore(db)
	txManager := postgres.NewTransactionManager(db)

	fetcher := fetch.New(fetch.Config{
		Timeout:        cfg.Fetch.Timeout,
		MaxAttempts:    cfg.Fetch.Retry.MaxAttempts,
		InitialBackoff: cfg.Fetch.Retry.InitialBackoff,
		MaxBackoff:     cfg.Fetch.Retry.MaxBackoff,
	}, logger)

	recomputer := metrics.NewRecomputer(eventStore, aggregateStore, txManager, logger)

	syncService := service.NewSyncService(
		fetcher,
		eventStore,
		feedStore,
		recomputer,
		txManager,
		rabbitMQ,
		urlCipher,
		logger,
	)

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, cfg.Sync.CycleTimeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting calendar syncer",
		"interval", cfg.Sync.Interval,
		"cycle_timeout", cfg.Sync.CycleTimeout,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
