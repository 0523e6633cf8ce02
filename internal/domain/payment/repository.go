package payment

import "context"

// SessionRepository defines the persistence contract for payment sessions.
type SessionRepository interface {
	// Save persists a new session. Saving a second INITIATED session for the
	// same booking surfaces as a conflict error.
	Save(ctx context.Context, s *Session) error

	// FindByReference retrieves a session by its payment reference.
	FindByReference(ctx context.Context, reference string) (*Session, error)

	// FindInitiatedByAcknowledgementID retrieves the booking's currently
	// INITIATED session, or nil when there is none.
	FindInitiatedByAcknowledgementID(ctx context.Context, ackID string) (*Session, error)

	// Update persists changes to an existing session. Settling a session is
	// guarded so that exactly one concurrent writer wins.
	Update(ctx context.Context, s *Session) error
}
