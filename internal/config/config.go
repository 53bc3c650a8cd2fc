package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"catalog-import-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Catalog defaults
	DefaultProductRating float64
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultRating, _ := strconv.ParseFloat(getEnv("DEFAULT_PRODUCT_RATING", "0"), 64)

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DefaultProductRating: defaultRating,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Batch{},
		&models.BatchItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
