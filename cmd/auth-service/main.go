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
	"taskhub/internal/microservices/auth"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&auth.User{}); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	repo := auth.NewRepository(db)
	svc := auth.NewService(repo, cfg, logger)

	server, err := broker.NewServer(cfg.AMQPURL, cfg.AuthQueue,
		broker.WithServerLogger(logger),
		broker.WithEventsExchange(cfg.EventsExchange),
	)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}
	defer server.Close()

	auth.RegisterRPC(server, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting auth service", "queue", cfg.AuthQueue)
	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("auth service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("auth service stopped gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
