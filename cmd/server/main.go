package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/adapter"
	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/config"
	"github.com/glowbook/service-reservation/internal/database"
	"github.com/glowbook/service-reservation/internal/events"
	"github.com/glowbook/service-reservation/internal/handler"
	"github.com/glowbook/service-reservation/internal/health"
	"github.com/glowbook/service-reservation/internal/logger"
	"github.com/glowbook/service-reservation/internal/middleware"
	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/repository"
	"github.com/glowbook/service-reservation/internal/saga"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-reservation")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-reservation",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig.DSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := repository.AutoMigrate(db); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.URL(), cfg.MigrationsPath, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)

	// Initialize admission gate
	gate := ratelimit.NewGate(cfg.AdmissionPolicies)
	defer gate.Stop()

	// Initialize Kafka producer
	producer := events.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer producer.Close()

	// Initialize adapters
	provider := adapter.NewMockPaymentProvider(zapLogger)
	verifier := adapter.NewHMACVerifier(cfg.ProviderWebhookSecret)
	notifier := newNotifier(cfg, producer, zapLogger)

	// Initialize repositories
	cartRepo := repository.NewGormCartRepository(db)
	bookingRepo := repository.NewGormBookingRepository(db)
	promoRepo := repository.NewGormPromoRepository(db)
	accountRepo := repository.NewGormAccountRepository(db)
	rewardLedger := repository.NewGormRewardLedger(db)

	// Initialize saga service
	checkoutSaga := saga.NewCheckoutSagaService(bookingRepo, cartRepo, provider, producer, zapLogger)

	// Initialize application services
	cartService := application.NewCartService(cartRepo, zapLogger)
	accountService := application.NewAccountService(accountRepo, jwtManager, cartService, zapLogger)
	rewardService := application.NewRewardService(rewardLedger, accountRepo, cfg.ReferralRewardPoints, zapLogger)
	confirmService := application.NewConfirmationService(bookingRepo, promoRepo, rewardService, notifier, zapLogger)
	promoService := application.NewPromoService(promoRepo, zapLogger)
	bookingService := application.NewBookingService(bookingRepo, cartRepo, promoRepo, checkoutSaga, confirmService, zapLogger)

	// Initialize Kafka consumer for payment events
	paymentHandler := application.NewPaymentEventHandler(confirmService, zapLogger)
	consumer := events.NewConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"reservation-service",
		events.TopicPaymentEvents,
		zapLogger,
	)
	defer consumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting payment event consumer")
		if err := consumer.Consume(consumerCtx, paymentHandler.Handle); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("payment event consumer failed", zap.Error(err))
			}
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.Recovery(zapLogger))
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-reservation")
	healthHandler.RegisterRoutes(router)

	// Register API routes. Auth middleware runs inside each handler group
	// before admission, so the gate keys on the account identity when one
	// exists.
	apiV1 := router.Group("/api/v1")
	handler.NewAuthHandler(accountService).RegisterRoutes(apiV1, jwtManager, gate)
	handler.NewCartHandler(cartService).RegisterRoutes(apiV1, jwtManager, gate)
	handler.NewBookingHandler(bookingService).RegisterRoutes(apiV1, jwtManager, gate)
	handler.NewPromoHandler(promoService).RegisterRoutes(apiV1, jwtManager, gate)
	handler.NewAdminHandler(bookingService, promoService).RegisterRoutes(apiV1, jwtManager, gate)
	handler.NewWebhookHandler(verifier, confirmService, zapLogger).RegisterRoutes(apiV1)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-reservation...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-reservation stopped")
}

// newNotifier picks the notification transport: kafka-backed normally,
// log-only in development.
func newNotifier(cfg *config.ServiceConfig, producer *events.Producer, zapLogger *zap.Logger) adapter.Notifier {
	if cfg.AppEnv == "development" {
		return adapter.NewLogNotifier(zapLogger)
	}
	return adapter.NewKafkaNotifier(producer, zapLogger)
}
