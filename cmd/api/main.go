package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/consul"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/email"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/kafka"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/server"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/storage"
)

const serviceName = "api-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)
	logger.SetDefault(log)

	slog.Info("Starting API",
		"env", cfg.AppEnv,
		"port", cfg.HTTP.Port,
		"email_mode", cfg.Email.Mode,
	)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.Database, log)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			slog.Error("Failed to apply schema", "error", err)
			os.Exit(1)
		}
		slog.Info("Database schema applied")
	}

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.Info("Connected to Redis")

	deps := server.Deps{DB: db, Redis: redisClient}

	if cfg.S3.Enabled() {
		store, err := storage.New(ctx, cfg.S3, log)
		if err != nil {
			slog.Warn("Storage unavailable, media features disabled", "error", err)
		} else {
			if err := store.EnsureBucketExists(ctx); err != nil {
				slog.Warn("Failed to ensure bucket exists", "bucket", cfg.S3.Bucket, "error", err)
			}
			deps.Storage = store
		}
	} else {
		slog.Info("S3 not configured, media features disabled")
	}

	var publisher email.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.NewConfig(cfg.Kafka), log)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
	}

	deps.Sender, err = email.NewSender(cfg.Email, publisher, cfg.Kafka.EmailEventsTopic, log)
	if err != nil {
		slog.Error("Failed to create email sender", "error", err)
		os.Exit(1)
	}

	var registry *consul.Client
	var registration *consul.ServiceConfig
	if cfg.Consul.Enabled {
		registry, err = consul.NewClient(cfg.Consul)
		if err != nil {
			slog.Error("Failed to create Consul client", "error", err)
			os.Exit(1)
		}
		deps.Discovery = registry

		registration = consul.NewServiceConfig(serviceName, cfg.HTTP.Host, cfg.HTTP.Port, "api", "http")
		// Stale registration from a previous crash.
		_ = registry.Deregister(registration.ID)
		if err := registry.Register(registration); err != nil {
			slog.Error("Failed to register with Consul", "error", err)
			os.Exit(1)
		}
		slog.Info("Registered with Consul", "serviceID", registration.ID)
	}

	srv, err := server.New(cfg, deps, log)
	if err != nil {
		slog.Error("Failed to build server", "error", err)
		os.Exit(1)
	}
	httpServer := srv.HTTPServer()

	go func() {
		slog.Info("API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down API")

	if registry != nil {
		if err := registry.Deregister(registration.ID); err != nil {
			slog.Error("Failed to deregister from Consul", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("API stopped")
}
