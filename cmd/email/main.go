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

	"github.com/gin-gonic/gin"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/consul"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/email"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/kafka"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

const serviceName = "email-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	lgr := logger.New(cfg.Logging)
	logger.SetDefault(lgr)
	lgr.Info("Starting Email Service...",
		"port", cfg.Email.WorkerPort,
		"kafka", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.EmailEventsTopic)

	if cfg.Kafka.Brokers == "" {
		lgr.Error("KAFKA_BROKERS is required for the email worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		lgr.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	lgr.Info("Connected to Redis")

	idempotencyStore := email.NewIdempotencyStore(redisClient, lgr)

	// The worker is the delivery end of the queue.
	senderCfg := cfg.Email
	if senderCfg.Mode == "queue" {
		senderCfg.Mode = "log"
		if senderCfg.SMTPHost != "" {
			senderCfg.Mode = "smtp"
		}
	}
	emailSender, err := email.NewSender(senderCfg, nil, "", lgr)
	if err != nil {
		lgr.Error("Failed to create email sender", "error", err)
		os.Exit(1)
	}
	lgr.Info("Email sender initialized", "mode", senderCfg.Mode)

	dlqProducer, err := kafka.NewProducer(kafka.NewConfig(cfg.Kafka), lgr)
	if err != nil {
		lgr.Error("Failed to create DLQ producer", "error", err)
		os.Exit(1)
	}
	defer dlqProducer.Close()

	processor := email.NewProcessor(email.ProcessorConfig{
		DLQTopic:      cfg.Kafka.EmailDLQTopic,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		MaxRetries:    cfg.Kafka.MaxRetries,
		Backoff:       time.Second,
	}, emailSender, idempotencyStore, dlqProducer, lgr)

	consumer, err := email.NewConsumer(cfg.Kafka, processor, lgr)
	if err != nil {
		lgr.Error("Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	go func() {
		lgr.Info("Starting Kafka consumer...")
		if err := consumer.Start(ctx); err != nil {
			lgr.Error("Consumer error", "error", err)
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(lgr))
	email.NewHandler(redisClient, idempotencyStore, lgr).RegisterRoutes(r)

	var registry *consul.Client
	var registration *consul.ServiceConfig
	if cfg.Consul.Enabled {
		registry, err = consul.NewClient(cfg.Consul)
		if err != nil {
			lgr.Error("Failed to create Consul client", "error", err)
			os.Exit(1)
		}

		registration = consul.NewServiceConfig(serviceName, cfg.HTTP.Host, cfg.Email.WorkerPort,
			"email", "notifications", "kafka-consumer")
		// Deregister any existing instance with same ID (cleanup from previous crashes)
		_ = registry.Deregister(registration.ID)
		if err := registry.Register(registration); err != nil {
			lgr.Error("Failed to register with Consul", "error", err)
			os.Exit(1)
		}
		lgr.Info("Registered with Consul", "serviceID", registration.ID)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Email.WorkerPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lgr.Info("HTTP server started", "port", cfg.Email.WorkerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("Shutting down Email Service...")

	if registry != nil {
		if err := registry.Deregister(registration.ID); err != nil {
			lgr.Error("Failed to deregister from Consul", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("HTTP server forced to shutdown", "error", err)
	}

	lgr.Info("Email Service stopped")
}
