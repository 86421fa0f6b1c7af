package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskhub/internal/broker"
	"taskhub/internal/config"
	"taskhub/internal/database"
	"taskhub/internal/microservices/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&tasks.Task{}, &tasks.TaskAssignment{}, &tasks.Comment{}); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	pool, err := database.ConnectPool(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to postgres pool: %v", err)
	}
	defer pool.Close()

	history := tasks.NewHistoryPostgresRepo(pool)
	if err := history.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure history schema: %v", err)
	}

	// one connection publishes events and calls the auth service, another
	// serves this service's own command queue
	client, err := broker.Dial(cfg.AMQPURL,
		broker.WithClientLogger(logger),
		broker.WithExchange(cfg.EventsExchange),
		broker.WithTimeout(cfg.RPCTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}
	defer client.Close()

	server, err := broker.NewServer(cfg.AMQPURL, cfg.TasksQueue,
		broker.WithServerLogger(logger),
		broker.WithEventsExchange(cfg.EventsExchange),
	)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}
	defer server.Close()

	repo := tasks.NewRepository(db)
	directory := tasks.NewBrokerUserDirectory(client, cfg.AuthQueue)
	emitter := tasks.NewEmitter(client, logger)
	svc := tasks.NewService(repo, history, directory, emitter, logger)

	tasks.RegisterRPC(server, svc)

	logger.Info("starting tasks service", "queue", cfg.TasksQueue)
	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("tasks service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("tasks service stopped gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
