package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"school_payments/internal/config"
	"school_payments/internal/handlers"
	"school_payments/internal/logging"
	"school_payments/internal/metrics"
	appmw "school_payments/internal/middleware"
	"school_payments/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics)

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := services.InitDB(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	var cache *services.RedisCache
	if cfg.Redis.URL != "" {
		cache, err = services.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, caching disabled: %v", err)
			cache = nil
		}
	}

	signer := services.NewSigner(cfg.Gateway.PGSecretKey)
	gateway := services.NewGatewayService(cfg.Gateway)
	recon := services.NewReconciliationService(db, logger)
	payments := services.NewPaymentService(db, gateway, signer, recon, cfg.Gateway, logger)
	webhooks := services.NewWebhookService(db, logger)
	transactions := services.NewTransactionService(db, cache)

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.HTTPErrorHandler = appmw.JSONErrorHandler

	paymentHandler := handlers.NewPaymentHandler(payments)
	reconHandler := handlers.NewReconciliationHandler(recon)
	webhookHandler := handlers.NewWebhookHandler(webhooks)
	transactionHandler := handlers.NewTransactionHandler(transactions)

	// Public routes: the gateway pushes webhooks here directly.
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.POST("/webhook", webhookHandler.Receive)

	protected := e.Group("", appmw.RequireAuth(cfg.Auth.JWTSecret))

	protected.POST("/payment/create-payment", paymentHandler.CreatePayment)
	protected.GET("/payment/status/:customOrderId", paymentHandler.GetPaymentStatus)
	protected.POST("/payment/create-collect-request", paymentHandler.CreateCollectRequest)
	protected.GET("/payment/collect-request/:collect_request_id", paymentHandler.CheckPaymentStatus)
	protected.POST("/payment/update-status", paymentHandler.UpdatePaymentStatus)
	protected.GET("/payment/transaction-status/:collect_request_id", paymentHandler.GetPaymentTransaction)

	protected.POST("/payment/sync-school-transactions/:schoolId", reconHandler.Sync)
	protected.GET("/payment/compare-school-transactions/:schoolId", reconHandler.Compare)
	protected.POST("/payment/verify-fix-status/:schoolId", reconHandler.Repair)
	protected.GET("/payment/status-report/:schoolId", reconHandler.StatusReport)

	protected.GET("/transactions", transactionHandler.ListAll)
	protected.GET("/transactions/school/:schoolId", transactionHandler.ListBySchool)
	protected.GET("/transaction-status/:customOrderId", transactionHandler.Status)

	protected.GET("/webhook/logs", webhookHandler.Logs)

	logger.Info("server starting", "port", cfg.Server.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Server.Port))
}
