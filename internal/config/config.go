package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port   string
	AppEnv string

	DB      DatabaseConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
	SMTP    SMTPConfig
	Booking BookingConfig

	FrontendURL string
	AdminAPIKey string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the GORM connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// DatabaseURL returns the migration connection URL.
func (c DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// KafkaConfig holds Kafka broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds Redis connection settings for rate limiting and throttles.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig holds outbound mail settings. An empty host degrades the mailer
// to logged mock sends.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// BookingConfig holds lifecycle tunables.
type BookingConfig struct {
	VerificationTokenTTL time.Duration
	CancellationTokenTTL time.Duration
	CancellationCutoff   time.Duration
	ResendThrottle       time.Duration
	OnlineAmountCents    int64
	OfflineAmountCents   int64
	DraftRateLimit       int
	DraftRateLimitWindow time.Duration
}

// Load reads configuration from the environment with the BOOKING prefix.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8084")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mindsettler_booking")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "mindsettler.")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "MindSettler <no-reply@mindsettler.example>")

	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("ADMIN_API_KEY", "")

	v.SetDefault("VERIFICATION_TOKEN_TTL", "48h")
	v.SetDefault("CANCELLATION_TOKEN_TTL", "2h")
	v.SetDefault("CANCELLATION_CUTOFF", "24h")
	v.SetDefault("RESEND_THROTTLE", "60s")
	v.SetDefault("ONLINE_AMOUNT_CENTS", 120000)
	v.SetDefault("OFFLINE_AMOUNT_CENTS", 150000)
	v.SetDefault("DRAFT_RATE_LIMIT", 5)
	v.SetDefault("DRAFT_RATE_LIMIT_WINDOW", "10m")

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("APP_ENV"),
		DB: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Booking: BookingConfig{
			VerificationTokenTTL: v.GetDuration("VERIFICATION_TOKEN_TTL"),
			CancellationTokenTTL: v.GetDuration("CANCELLATION_TOKEN_TTL"),
			CancellationCutoff:   v.GetDuration("CANCELLATION_CUTOFF"),
			ResendThrottle:       v.GetDuration("RESEND_THROTTLE"),
			OnlineAmountCents:    v.GetInt64("ONLINE_AMOUNT_CENTS"),
			OfflineAmountCents:   v.GetInt64("OFFLINE_AMOUNT_CENTS"),
			DraftRateLimit:       v.GetInt("DRAFT_RATE_LIMIT"),
			DraftRateLimitWindow: v.GetDuration("DRAFT_RATE_LIMIT_WINDOW"),
		},
		FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		AdminAPIKey: v.GetString("ADMIN_API_KEY"),
	}, nil
}
