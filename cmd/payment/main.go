package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/geovision/payments/internal/payment"
	"github.com/geovision/payments/internal/payment/adapter"
	"github.com/geovision/payments/internal/payment/domain"
	"github.com/geovision/payments/internal/payment/handler"
	"github.com/geovision/payments/internal/payment/usecase/command"
	"github.com/geovision/payments/kafka"
	"github.com/geovision/payments/pkg/database"
	"github.com/geovision/payments/pkg/logger"
	"github.com/geovision/payments/pkg/tracing"
)

func main() {
	// Initialize logger
	serviceName := getEnv("OTEL_SERVICE_NAME", "payment-service")
	environment := getEnv("ENVIRONMENT", "development")
	logger.Init(serviceName, environment)

	logLevel := getEnv("LOG_LEVEL", "info")
	logger.SetLevel(logLevel)

	logger.Logger.Info().
		Str("service", serviceName).
		Str("log_level", logLevel).
		Msg("Starting payment service")

	// Initialize tracer
	tp, err := tracing.InitTracer(serviceName, environment)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	// Load database configuration
	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "paymentdb"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Connect to database
	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Run migrations
	if err := db.AutoMigrate(&domain.PaymentIntent{}, &domain.RefundRecord{}, &domain.WebhookEvent{}); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	// Register payment provider adapters
	adapters := buildAdapterRegistry()

	// Kafka is optional; without brokers the service runs standalone
	var publisher *kafka.Publisher
	var consumer *kafka.Consumer
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		brokerList := strings.Split(brokers, ",")

		publisher, err = kafka.NewPublisher(brokerList)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to create Kafka publisher, continuing without events")
			publisher = nil
		} else {
			defer publisher.Close()
		}

		cancelHandler, err := payment.InitializeCancelOrderPaymentsHandler(db)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize order cancellation handler")
		}

		consumer, err = kafka.NewConsumer(brokerList, getEnv("KAFKA_GROUP_ID", "payment-service"), func(ctx context.Context, event kafka.OrderCancelledEvent) error {
			cancelled, err := cancelHandler.Handle(ctx, command.CancelOrderPaymentsCommand{OrderID: event.OrderID})
			if err != nil {
				return err
			}
			logger.Info(ctx).
				Str("order_id", event.OrderID).
				Int("cancelled", cancelled).
				Msg("Cancelled payments for cancelled order")
			return nil
		})
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to create Kafka consumer, continuing without order events")
		}
	}

	// Initialize handler with Wire DI
	paymentHandler, err := payment.InitializeHandler(db, adapters, publisher)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	logger.Logger.Info().Msg("Payment handler initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if consumer != nil {
		consumer.Start(ctx)
		defer consumer.Close()
	}

	// Background sweep that cancels payments past their expiry deadline
	expireHandler, err := payment.InitializeExpireHandler(db)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize expiry handler")
	}
	go runExpirySweep(ctx, expireHandler)

	// Start HTTP server
	httpPort := getEnv("HTTP_PORT", "8083")
	startHTTPServer(paymentHandler, sqlDB, httpPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
}

// buildAdapterRegistry wires the configured payment providers. Adapters
// without credentials run in mock mode, which keeps local development working
// without provider accounts.
func buildAdapterRegistry() *adapter.Registry {
	registry := adapter.NewRegistry()

	registry.Register(domain.ProviderMulticaixaExpress, adapter.NewMulticaixaAdapter(adapter.MulticaixaConfig{
		APIURL:        getEnv("MCX_API_URL", "https://pagamentonline.emis.co.ao/online-payment-gateway/portal"),
		MerchantID:    getEnv("MCX_MERCHANT_ID", ""),
		APIKey:        getEnv("MCX_API_KEY", ""),
		WebhookSecret: getEnv("MCX_WEBHOOK_SECRET", ""),
		CallbackURL:   getEnv("MCX_CALLBACK_URL", ""),
	}))

	registry.Register(domain.ProviderVisaMastercard, adapter.NewVisaMastercardAdapter(adapter.VisaMastercardConfig{
		APIURL:        getEnv("CARD_API_URL", "https://api.acquirer.example.com/v1"),
		SecretKey:     getEnv("CARD_SECRET_KEY", ""),
		WebhookSecret: getEnv("CARD_WEBHOOK_SECRET", ""),
	}))

	registry.Register(domain.ProviderBankTransfer, adapter.NewBankTransferAdapter(adapter.BankTransferConfig{
		IBAN:        getEnv("BANK_IBAN", ""),
		BIC:         getEnv("BANK_BIC", ""),
		BankName:    getEnv("BANK_NAME", ""),
		Beneficiary: getEnv("BANK_BENEFICIARY", ""),
	}))

	return registry
}

// runExpirySweep periodically cancels payment intents whose deadline passed.
func runExpirySweep(ctx context.Context, expireHandler *command.ExpirePaymentsHandler) {
	interval := 1 * time.Minute
	if v := os.Getenv("PAYMENT_EXPIRY_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := expireHandler.Handle(ctx)
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Expiry sweep failed")
				continue
			}
			if expired > 0 {
				logger.Logger.Info().Int("expired", expired).Msg("Expired stale payments")
			}
		}
	}
}

func startHTTPServer(paymentHandler *handler.PaymentHandler, db *sql.DB, port string) {
	// Setup router
	router := mux.NewRouter()

	// Get middleware configuration
	middlewareConfig := paymentHandler.GetMiddlewareConfig()

	// Register all middlewares using middleware registration system
	handler.RegisterMiddlewares(router, middlewareConfig)

	// Register routes
	paymentHandler.RegisterRoutes(router)

	// Health check endpoint
	paymentHandler.RegisterHealthCheck(router, db)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Logger.Info().
		Str("port", port).
		Str("metrics_endpoint", "/metrics").
		Msg("HTTP server started")

	go func() {
		if err := http.ListenAndServe(":"+port, c.Handler(router)); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
