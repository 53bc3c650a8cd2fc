package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/events"
	"catalog-import-service/internal/handlers"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/services"
)

// @title Catalog Import API
// @version 1.0.0
// @description Bulk catalog ingestion service: CSV/XLSX uploads, per-row audit batches and batch-scoped corrections

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8087
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("Redis connected successfully")
		}
		cancel()
	}

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if os.Getenv("NATS_URL") != "" {
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
			eventsPublisher = nil
		} else {
			log.Println("Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Wire repository, service and handlers
	batchRepo := repository.NewBatchRepository(db, redisClient, cfg.DefaultProductRating)
	batchService := services.NewBatchService(batchRepo, eventsPublisher, logger)
	batchHandler := handlers.NewBatchHandler(batchService)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)

	// API routes
	v1 := router.Group("/api/v1")
	{
		batches := v1.Group("/batches")
		{
			batches.POST("", batchHandler.UploadBatch)
			batches.GET("", batchHandler.ListBatches)
			batches.GET("/template", batchHandler.DownloadTemplate)
			batches.GET("/:id", batchHandler.GetBatch)
			batches.PUT("/:id", batchHandler.UpdateBatchItems)
			batches.DELETE("/:id", batchHandler.DeleteBatch)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog import service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-import-service...")
	log.Println("Catalog import service stopped")
}
