package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/broker"
	"taskhub/internal/config"
	"taskhub/internal/database"
	"taskhub/internal/microservices/notifications"
	"taskhub/internal/microservices/websocket"
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
	if err := db.AutoMigrate(&notifications.Notification{}); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	rdb, err := database.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	repo := notifications.NewRepository(db)
	cache := notifications.NewUnreadCounter(rdb, cfg.CacheTTL, logger)
	svc := notifications.NewService(repo, cache, logger)

	registry := websocket.NewRegistry(logger)
	gateway := websocket.NewGateway(registry, logger)

	server, err := broker.NewServer(cfg.AMQPURL, cfg.NotificationsQueue,
		broker.WithServerLogger(logger),
		broker.WithEventsExchange(cfg.EventsExchange),
	)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}
	defer server.Close()

	notifications.RegisterRPC(server, svc)

	consumer := notifications.NewConsumer(svc, gateway, logger)
	if err := consumer.Register(ctx, server); err != nil {
		log.Fatalf("Failed to subscribe to events: %v", err)
	}

	// websocket endpoint for realtime delivery
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ws", websocket.WSHandler(registry, cfg.JWTSecret, logger))

	wsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSPort),
		Handler: router,
	}
	go func() {
		logger.Info("starting websocket server", "port", cfg.WSPort)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("websocket server failed", "error", err)
			stop()
		}
	}()

	logger.Info("starting notifications service", "queue", cfg.NotificationsQueue)
	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("notifications service stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket server shutdown failed", "error", err)
	}
	logger.Info("notifications service stopped gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
