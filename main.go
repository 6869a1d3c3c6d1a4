package main

import (
	"log"
	"strings"
	"time"

	"github.com/peandrade/ticketflow-sub001/clock"
	"github.com/peandrade/ticketflow-sub001/config"
	"github.com/peandrade/ticketflow-sub001/controllers"
	"github.com/peandrade/ticketflow-sub001/database"
	"github.com/peandrade/ticketflow-sub001/kafka"
	"github.com/peandrade/ticketflow-sub001/middleware"
	"github.com/peandrade/ticketflow-sub001/models"
	"github.com/peandrade/ticketflow-sub001/repository"
	"github.com/peandrade/ticketflow-sub001/routes"
	"github.com/peandrade/ticketflow-sub001/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[Ticketflow] Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("[Ticketflow] Failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := database.ConnectPostgres(cfg, logger,
		&models.Performance{},
		&models.TicketType{},
		&models.TicketVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.InventoryCounter{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	variantRepo := repository.NewGormVariantRepository(db)
	inventoryRepo := repository.NewGormInventoryRepository(db)

	// Without Stripe credentials the service degrades to DB-only
	// bookkeeping instead of refusing to start.
	stripeGateway := services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, logger)
	var gateway services.PaymentGateway = stripeGateway
	if !stripeGateway.Available() {
		logger.Warn("Stripe credentials not configured, payment provider unavailable")
		gateway = services.UnavailableGateway{}
	}

	var cache services.OrderCache = services.NopOrderCache{}
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, order view caching disabled", zap.Error(err))
		} else {
			cache = services.NewRedisOrderCache(redisClient, 5*time.Minute, logger)
		}
	}

	var events services.EventPublisher = services.NopPublisher{}
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewOrderEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic, logger)
		defer producer.Close()
		events = producer
	}

	checkoutSvc := services.NewCheckoutService(orderRepo, variantRepo, gateway, cache, events, cfg.FrontendURL, logger)
	refundSvc := services.NewRefundService(orderRepo, gateway, cache, events, clock.NewSystem(), logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	routes.Register(r,
		middleware.AuthMiddleware(cfg.JWTSecret),
		&controllers.CheckoutController{Checkout: checkoutSvc, Logger: logger},
		&controllers.OrderController{Orders: orderRepo, Cache: cache, Logger: logger},
		&controllers.RefundController{Refunds: refundSvc, Logger: logger},
		&controllers.WebhookController{
			Parser: stripeGateway,
			Orders: orderRepo,
			Cache:  cache,
			Events: events,
			Logger: logger,
		},
		&controllers.InventoryController{Inventory: inventoryRepo, Logger: logger},
	)

	logger.Info("Ticketflow order service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
