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
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/config"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/handlers"
	"github.com/SURE-Trust/certificate-service/internal/repositories/mongo"
	"github.com/SURE-Trust/certificate-service/internal/repositories/postgres"
	"github.com/SURE-Trust/certificate-service/internal/repositories/sheets"
	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
	"github.com/SURE-Trust/certificate-service/internal/validator"
	"github.com/SURE-Trust/certificate-service/pkg"

	"github.com/ThreeDotsLabs/watermill/message"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	// Initialize the SQL-backed repositories; account data always lives here.
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// The certificate store can be swapped out for Mongo or a spreadsheet
	// workbook; the SQL repository keeps serving accounts either way.
	switch cfg.StoreBackend {
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		repo, err = mongo.NewMongoRepository(ctx, cfg.MongoURI, cfg.MongoDatabase, repo)
		cancel()
		if err != nil {
			log.Fatalf("Failed to initialize mongo store: %v", err)
		}
	case config.BackendSheets:
		repo, err = sheets.NewSheetsRepository(cfg.SheetsPath, repo)
		if err != nil {
			log.Fatalf("Failed to initialize spreadsheet store: %v", err)
		}
	}

	// Initialize the event publisher. Kafka for multi-instance deployments,
	// otherwise the in-process channel with the notification consumer attached.
	var publisher events.EventPublisher
	var subscriber message.Subscriber
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize kafka publisher: %v", err)
		}
	} else {
		publisher, subscriber = events.NewGoChannelPublisher(cfg.Kafka.Topic, slogLogger)
	}

	// Initialize cache and rate limiting
	cacheManager := cache.NewCacheManager(redisClient)
	var rateLimitStore cache.RateLimitStore
	if redisClient != nil {
		rateLimitStore = cache.NewRedisRateLimitStore(redisClient)
	} else {
		rateLimitStore = cache.NewMemoryRateLimitStore()
	}

	// Initialize services
	serviceManager, err := services.NewServiceManager(services.ServiceManagerConfig{
		Repository: repo,
		Cache:      cacheManager,
		Publisher:  publisher,
		Validator:  validator.New(),
		Logger:     slogLogger,
		Config:     cfg,
	})
	if err != nil {
		log.Fatalf("Failed to create service manager: %v", err)
	}
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Consume issuance events for email notifications when running on the
	// in-process transport.
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	if subscriber != nil {
		go func() {
			if err := serviceManager.Notification().Run(consumerCtx, subscriber, cfg.Kafka.Topic); err != nil && consumerCtx.Err() == nil {
				logger.Error("Notification consumer stopped", "error", err)
			}
		}()

		// Mirror issued certificates into a backup workbook when one is
		// configured and the workbook is not already the primary store.
		if cfg.SheetsPath != "" && cfg.StoreBackend != config.BackendSheets {
			backup := services.NewBackupService(cfg.SheetsPath, slogLogger)
			go func() {
				if err := backup.Run(consumerCtx, subscriber, cfg.Kafka.Topic); err != nil && consumerCtx.Err() == nil {
					logger.Error("Backup consumer stopped", "error", err)
				}
			}()
		}
	}

	// Periodic cleanup of expired sessions and one-shot email tokens.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if n, err := repo.Sessions().DeleteExpired(ctx); err != nil {
			logger.Error("Failed to delete expired sessions", "error", err)
		} else if n > 0 {
			logger.Info("Deleted expired sessions", "count", n)
		}
		if n, err := repo.EmailTokens().DeleteExpired(ctx); err != nil {
			logger.Error("Failed to delete expired email tokens", "error", err)
		} else if n > 0 {
			logger.Info("Deleted expired email tokens", "count", n)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule cleanup job: %v", err)
	}
	scheduler.Start()

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, rateLimitStore, cfg)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "store_backend", string(cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop background work
	cancelConsumer()
	<-scheduler.Stop().Done()

	// Shutdown services (closes publisher and repository)
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	logger.Info("Server exited")
}
