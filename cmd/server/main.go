package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/config"
	"github.com/mindsettler/service-booking/internal/database"
	bookingEvents "github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/handler"
	"github.com/mindsettler/service-booking/internal/health"
	"github.com/mindsettler/service-booking/internal/kafka"
	"github.com/mindsettler/service-booking/internal/logger"
	"github.com/mindsettler/service-booking/internal/middleware"
	"github.com/mindsettler/service-booking/internal/notification"
	"github.com/mindsettler/service-booking/internal/ratelimit"
	"github.com/mindsettler/service-booking/internal/repository"
)

// Partial unique indexes that AutoMigrate cannot express: one active booking
// per email, and one open payment session per booking. Production schemas get
// these from the migrations directory instead.
const (
	activeBookingIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_booking_email
		ON bookings (email)
		WHERE status IN ('DRAFT', 'PENDING', 'APPROVED', 'PAYMENT_PENDING', 'PAYMENT_FAILED', 'CONFIRMED')`
	openPaymentSessionIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_open_payment_session
		ON payment_sessions (acknowledgement_id)
		WHERE status = 'INITIATED'`
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.TokenModel{}, &repository.PaymentSessionModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		if err := db.Exec(activeBookingIndexDDL).Error; err != nil {
			log.Fatal("failed to create active booking index", zap.Error(err))
		}
		if err := db.Exec(openPaymentSessionIndexDDL).Error; err != nil {
			log.Fatal("failed to create open payment session index", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DB.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize Redis for rate limiting and resend throttles
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()
	limiter := ratelimit.NewLimiter(redisClient, "booking")

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	tokenRepo := repository.NewGormTokenRepository(db)
	sessionRepo := repository.NewGormPaymentSessionRepository(db)
	transactor := repository.NewGormTransactor(db)

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		tokenRepo,
		kafkaProducer,
		limiter,
		cfg.Booking,
		log,
	)
	paymentService := application.NewPaymentService(
		bookingRepo,
		sessionRepo,
		transactor,
		kafkaProducer,
		cfg.Booking,
		log,
	)
	adminService := application.NewAdminService(bookingRepo, kafkaProducer, log)

	// Initialize and start the notification consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := notification.NewSMTPMailer(cfg.SMTP, log)
	templates := notification.NewTemplates(cfg.FrontendURL)
	groupID := cfg.Kafka.GroupPrefix + "booking-notifications"
	notificationConsumer := bookingEvents.NewNotificationConsumer(
		cfg.Kafka.Brokers,
		groupID,
		mailer,
		templates,
		log,
	)
	defer func() { _ = notificationConsumer.Close() }()

	go func() {
		log.Info("starting notification consumer")
		if err := notificationConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("notification consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	adminHandler := handler.NewAdminHandler(adminService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.FrontendURL))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-booking")
	healthHandler.RegisterRoutes(router)

	// Register routes
	api := router.Group("/api/v1")
	bookingHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)
	adminHandler.RegisterRoutes(api, cfg.AdminAPIKey)

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
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
