package application

import (
	"context"
	"time"

	"github.com/mindsettler/service-booking/internal/kafka"
)

// EventPublisher is the slice of the Kafka producer the services need.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// Transactor runs fn inside one database transaction. Repository calls made
// with the context fn receives share that transaction, so either every write
// commits or none do.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// RateLimiter is the slice of the Redis limiter the draft flow needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Throttle(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
