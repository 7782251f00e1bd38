package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/controllers"
	"checkout-service/database"
	kafkapkg "checkout-service/kafka"
	"checkout-service/middleware"
	"checkout-service/repository"
	"checkout-service/routes"
	servicepkg "checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Store selection: Postgres when configured, in-memory otherwise.
	var (
		orderRepo     repository.OrderRepository
		paymentRepo   repository.PaymentRepository
		inventoryRepo repository.InventoryRepository
	)
	if cfg.DatabaseConfigured() {
		if err := database.Connect(database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Name:     cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}); err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close() //nolint:errcheck
		orderRepo = repository.NewGormOrderRepository(database.DB)
		paymentRepo = repository.NewGormPaymentRepository(database.DB)
		inventoryRepo = repository.NewGormInventoryRepository(database.DB)
		logger.Info("using postgres store", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	} else {
		orderRepo = repository.NewMemoryOrderRepository()
		paymentRepo = repository.NewMemoryPaymentRepository()
		inventoryRepo = repository.NewMemoryInventoryRepository()
		logger.Warn("no database configured, using in-memory store")
	}

	// Optional Redis cache for catalog lookups.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close() //nolint:errcheck
		logger.Info("catalog cache enabled", zap.String("addr", opts.Addr))
	}

	// Optional Kafka producer for lifecycle events.
	var producer kafkapkg.ProducerAPI
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkapkg.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kp.Close() //nolint:errcheck
		producer = kp
	} else {
		logger.Warn("no kafka brokers configured, event publishing disabled")
	}

	// DI chain
	catalogClient := servicepkg.NewHTTPCatalogClient(cfg.CatalogServiceURL, redisClient, cfg.CatalogCacheTTL, logger)
	pricer := servicepkg.NewPricer(cfg.TaxRate)
	access := servicepkg.NewRoleAccessPolicy()
	ledger := servicepkg.NewInventoryLedger(inventoryRepo, logger)
	orderService := servicepkg.NewOrderService(orderRepo, ledger, catalogClient, pricer, access, producer, cfg.DefaultCurrency, logger)
	paymentService := servicepkg.NewPaymentService(paymentRepo, orderRepo, ledger, access, producer, logger)

	orderController := controllers.NewOrderController(orderService)
	paymentController := controllers.NewPaymentController(paymentService)
	inventoryController := controllers.NewInventoryController(ledger, access)

	r := gin.New()
	r.Use(gin.Recovery())

	// Global request-logging middleware
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
		)
	})

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "checkout-service"})
	})

	authMW := middleware.AuthMiddleware(cfg.JWTSecret)
	rateMW := middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	routes.RegisterOrderRoutes(r, orderController, paymentController, rateMW, authMW)
	routes.RegisterPaymentRoutes(r, paymentController, rateMW, authMW)
	routes.RegisterInventoryRoutes(r, inventoryController, rateMW, authMW)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Checkout service started", zap.String("port", cfg.Port))
	<-quit
	logger.Info("Shutting down checkout service...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}
