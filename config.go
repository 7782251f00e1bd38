package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Port string
	Env  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	TaxRate         decimal.Decimal
	DefaultCurrency string

	CatalogServiceURL string
	RedisURL          string
	CatalogCacheTTL   time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	RateLimitRPS   float64
	RateLimitBurst int

	ShutdownTimeout time.Duration
}

// DatabaseConfigured reports whether enough is set to reach Postgres. When it
// is not, the service runs on in-memory stores.
func (c *Config) DatabaseConfigured() bool {
	return c.DBHost != "" && c.DBUser != "" && c.DBPassword != "" && c.DBName != ""
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		DefaultCurrency:   getEnv("DEFAULT_CURRENCY", "USD"),
		CatalogServiceURL: getEnv("CATALOG_SERVICE_URL", "http://localhost:8082"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "checkout.events"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.08"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	cfg.TaxRate = taxRate

	cfg.CatalogCacheTTL, err = time.ParseDuration(getEnv("CATALOG_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}

	cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	// Partially configured Postgres is a deployment mistake, not a request
	// for the in-memory store.
	dbVars := []string{cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName}
	anySet := false
	allSet := true
	for _, v := range dbVars {
		if v != "" {
			anySet = true
		} else {
			allSet = false
		}
	}
	if anySet && !allSet {
		return nil, fmt.Errorf("database config incomplete")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
