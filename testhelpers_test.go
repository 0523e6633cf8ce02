//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/config"
	"github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/kafka"
	"github.com/mindsettler/service-booking/internal/ratelimit"
	"github.com/mindsettler/service-booking/internal/repository"
)

// The partial unique indexes the schema relies on; AutoMigrate cannot
// express them, so the helpers apply them by hand like migrations do.
const (
	testActiveBookingIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_booking_email
		ON bookings (email)
		WHERE status IN ('DRAFT', 'PENDING', 'APPROVED', 'PAYMENT_PENDING', 'PAYMENT_FAILED', 'CONFIRMED')`
	testOpenPaymentSessionIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_open_payment_session
		ON payment_sessions (acknowledgement_id)
		WHERE status = 'INITIATED'`
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Redis        *goredis.Client
	Cleanup      func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Bookings        *application.BookingService
	Payments        *application.PaymentService
	Admin           *application.AdminService
	CleanupProducer func()
}

// setupContainers starts PostgreSQL, Kafka and Redis testcontainers and
// returns a connected GORM DB with the schema applied.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
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

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_booking sslmode=disable", pgHost, pgPort.Port())

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

	require.NoError(t, db.AutoMigrate(
		&repository.BookingModel{},
		&repository.TokenModel{},
		&repository.PaymentSessionModel{},
	))
	require.NoError(t, db.Exec(testActiveBookingIndexDDL).Error)
	require.NoError(t, db.Exec(testOpenPaymentSessionIndexDDL).Error)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, events.TopicBookingNotifications)

	// Start Redis for the rate limiter.
	redisContainer, err := redismodule.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	redisURL, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")
	redisOpts, err := goredis.ParseURL(redisURL)
	require.NoError(t, err)
	redisClient := goredis.NewClient(redisOpts)

	cleanup := func() {
		_ = redisClient.Close()
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
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
		Redis:        redisClient,
		Cleanup:      cleanup,
	}
}

// testBookingConfig returns lifecycle tunables sized for tests.
func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		VerificationTokenTTL: 48 * time.Hour,
		CancellationTokenTTL: 2 * time.Hour,
		CancellationCutoff:   24 * time.Hour,
		ResendThrottle:       time.Minute,
		OnlineAmountCents:    120000,
		OfflineAmountCents:   150000,
		DraftRateLimit:       100,
		DraftRateLimitWindow: time.Minute,
	}
}

// setupBookingStack wires up the full service stack against real containers.
func setupBookingStack(t *testing.T, infra *testInfra) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookingRepo := repository.NewGormBookingRepository(infra.DB)
	tokenRepo := repository.NewGormTokenRepository(infra.DB)
	sessionRepo := repository.NewGormPaymentSessionRepository(infra.DB)

	producer := kafka.NewProducer(infra.KafkaBrokers, logger)
	limiter := ratelimit.NewLimiter(infra.Redis, fmt.Sprintf("test-%s", uuid.New().String()[:8]))
	cfg := testBookingConfig()

	return &bookingStack{
		Bookings:        application.NewBookingService(bookingRepo, tokenRepo, producer, limiter, cfg, logger),
		Payments:        application.NewPaymentService(bookingRepo, sessionRepo, repository.NewGormTransactor(infra.DB), producer, cfg, logger),
		Admin:           application.NewAdminService(bookingRepo, producer, logger),
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// draftRequest builds a valid intake form for the given email.
func draftRequest(email string) application.CreateDraftRequest {
	return application.CreateDraftRequest{
		Email:           email,
		FullName:        "Asha Rao",
		PhoneNumber:     "+91 98765 43210",
		City:            "Bengaluru",
		State:           "Karnataka",
		Country:         "India",
		Age:             29,
		Gender:          "female",
		UserMessage:     "integration test",
		PreferredDate:   time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		PreferredPeriod: "MORNING",
		Mode:            "ONLINE",
		PaymentMode:     "ONLINE",
		ConsentGiven:    true,
		ConsentTerms:    true,
		ConsentPrivacy:  true,
		ConsentDisclaim: true,
	}
}

// latestTokenValue reads the newest unconsumed token of a kind for a booking
// straight from the table, standing in for the email the worker would send.
func latestTokenValue(t *testing.T, db *gorm.DB, ackID, kind string) string {
	t.Helper()
	var model repository.TokenModel
	require.Eventually(t, func() bool {
		err := db.Where("acknowledgement_id = ? AND kind = ? AND consumed = false", ackID, kind).
			Order("created_at DESC").
			First(&model).Error
		return err == nil
	}, 10*time.Second, 200*time.Millisecond, "no %s token found for %s", kind, ackID)
	return model.Value
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, ackID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		err := db.Where("acknowledgement_id = ?", ackID).First(&model).Error
		if err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not reach %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
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
