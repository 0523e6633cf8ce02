package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByAcknowledgementID retrieves a booking by its acknowledgement identifier.
	FindByAcknowledgementID(ctx context.Context, ackID string) (*Booking, error)

	// FindActiveByEmail retrieves the email's current non-terminal booking,
	// or nil when the email has none.
	FindActiveByEmail(ctx context.Context, email string) (*Booking, error)

	// ListByStatus retrieves bookings in the given status with pagination.
	// An empty status lists every booking.
	ListByStatus(ctx context.Context, status BookingStatus, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking. A concurrent active booking for the same
	// email surfaces as a conflict error.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
