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

	"github.com/kylerivers/motorev-sub004/internal/api/routes"
	"github.com/kylerivers/motorev-sub004/internal/auth"
	"github.com/kylerivers/motorev-sub004/internal/config"
	"github.com/kylerivers/motorev-sub004/internal/database"
	"github.com/kylerivers/motorev-sub004/internal/presence"
	"github.com/kylerivers/motorev-sub004/internal/realtime"
	"github.com/kylerivers/motorev-sub004/internal/store"
	"github.com/kylerivers/motorev-sub004/internal/stream"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting MotoRev realtime server")

	redisClient, err := database.NewRedisConnection(cfg.Redis.URI)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	gateway := store.NewGateway(db)
	mirror := presence.NewMirror(redisClient)

	var publisher realtime.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := stream.NewPublisher(
			cfg.Kafka.Brokers,
			cfg.Kafka.EmergencyTopic,
			cfg.Kafka.NotificationTopic,
		)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	hub := realtime.NewHub(gateway, mirror, publisher)
	go hub.Run()

	verifier := auth.NewVerifier(cfg.JWT.Secret, gateway)

	router := routes.NewRouter(hub, verifier, db, redisClient)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
