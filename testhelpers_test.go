//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/glowbook/service-reservation/internal/adapter"
	"github.com/glowbook/service-reservation/internal/application"
	accountDomain "github.com/glowbook/service-reservation/internal/domain/account"
	bookingDomain "github.com/glowbook/service-reservation/internal/domain/booking"
	"github.com/glowbook/service-reservation/internal/events"
	"github.com/glowbook/service-reservation/internal/repository"
	"github.com/glowbook/service-reservation/internal/saga"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// reservationStack holds wired-up reservation service components.
type reservationStack struct {
	CartSvc         *application.CartService
	BookingSvc      *application.BookingService
	ConfirmSvc      *application.ConfirmationService
	RewardSvc       *application.RewardService
	Consumer        *events.Consumer
	Handler         *application.PaymentEventHandler
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_reservation",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_reservation sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, repository.AutoMigrate(db))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers,
		events.TopicPaymentEvents,
		events.TopicReservationEvents,
		events.TopicNotificationEvents,
	)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupReservationStack wires up the full reservation service stack.
func setupReservationStack(t *testing.T, db *gorm.DB, brokers []string) *reservationStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	cartRepo := repository.NewGormCartRepository(db)
	bookingRepo := repository.NewGormBookingRepository(db)
	promoRepo := repository.NewGormPromoRepository(db)
	accountRepo := repository.NewGormAccountRepository(db)
	rewardLedger := repository.NewGormRewardLedger(db)

	producer := events.NewProducer(brokers, logger)
	provider := adapter.NewMockPaymentProvider(logger)
	notifier := adapter.NewLogNotifier(logger)

	checkoutSaga := saga.NewCheckoutSagaService(bookingRepo, cartRepo, provider, producer, logger)
	cartSvc := application.NewCartService(cartRepo, logger)
	rewardSvc := application.NewRewardService(rewardLedger, accountRepo, 100, logger)
	confirmSvc := application.NewConfirmationService(bookingRepo, promoRepo, rewardSvc, notifier, logger)
	bookingSvc := application.NewBookingService(bookingRepo, cartRepo, promoRepo, checkoutSaga, confirmSvc, logger)

	handler := application.NewPaymentEventHandler(confirmSvc, logger)
	groupID := fmt.Sprintf("test-reservation-%s", uuid.New().String()[:8])
	consumer := events.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger)

	return &reservationStack{
		CartSvc:         cartSvc,
		BookingSvc:      bookingSvc,
		ConfirmSvc:      confirmSvc,
		RewardSvc:       rewardSvc,
		Consumer:        consumer,
		Handler:         handler,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedAccount inserts an account row directly.
func seedAccount(t *testing.T, db *gorm.DB, email, referralCode string, referredBy *uuid.UUID) uuid.UUID {
	t.Helper()
	a, err := accountDomain.New(email, "bcrypt-hash", "Test User", "+60120000000", "customer", referralCode, referredBy)
	require.NoError(t, err)
	repo := repository.NewGormAccountRepository(db)
	require.NoError(t, repo.Save(context.Background(), a))
	return a.ID()
}

// seedPendingBooking inserts a pending booking for the account.
func seedPendingBooking(t *testing.T, db *gorm.DB, accountID *uuid.UUID) uuid.UUID {
	t.Helper()
	b, err := bookingDomain.New(uuid.New(), "2026-09-15", "10:00-11:00",
		bookingDomain.Contact{Name: "Mia Tan", Phone: "+60123456789", Email: "mia@example.com"},
		bookingDomain.MethodCard, accountID, nil)
	require.NoError(t, err)
	repo := repository.NewGormBookingRepository(db)
	require.NoError(t, repo.Save(context.Background(), b))
	return b.ID()
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := events.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := events.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
