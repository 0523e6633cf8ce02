package payment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindsettler/service-booking/internal/domain"
)

// SessionStatus is the lifecycle state of a payment session.
type SessionStatus string

const (
	SessionInitiated SessionStatus = "INITIATED"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionFailed    SessionStatus = "FAILED"
)

// IsTerminal returns true once a session can no longer change.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// Session tracks one payment attempt against an approved booking. At most one
// INITIATED session may exist per booking at a time.
type Session struct {
	id                uuid.UUID
	paymentReference  string
	acknowledgementID string
	amountCents       int64
	currency          string
	status            SessionStatus
	failureReason     string
	completedAt       *time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// generatePaymentReference creates a reference in the format "PAY-XXXXXXXXXXXX".
func generatePaymentReference() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate payment reference: %w", err)
	}
	return "PAY-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// NewSession creates an INITIATED session for the given booking and amount.
func NewSession(acknowledgementID string, amountCents int64, currency string) (*Session, error) {
	if acknowledgementID == "" {
		return nil, domain.NewValidationError("acknowledgement ID is required")
	}
	if amountCents <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}
	ref, err := generatePaymentReference()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		id:                uuid.New(),
		paymentReference:  ref,
		acknowledgementID: acknowledgementID,
		amountCents:       amountCents,
		currency:          currency,
		status:            SessionInitiated,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructSession rebuilds a Session from persistence data.
func ReconstructSession(
	id uuid.UUID,
	paymentReference string,
	acknowledgementID string,
	amountCents int64,
	currency string,
	status SessionStatus,
	failureReason string,
	completedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Session {
	return &Session{
		id:                id,
		paymentReference:  paymentReference,
		acknowledgementID: acknowledgementID,
		amountCents:       amountCents,
		currency:          currency,
		status:            status,
		failureReason:     failureReason,
		completedAt:       completedAt,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// PaymentReference returns the opaque reference handed to the gateway.
func (s *Session) PaymentReference() string { return s.paymentReference }

// AcknowledgementID returns the booking the session is bound to.
func (s *Session) AcknowledgementID() string { return s.acknowledgementID }

// AmountCents returns the amount in paise.
func (s *Session) AmountCents() int64 { return s.amountCents }

// Currency returns the currency code.
func (s *Session) Currency() string { return s.currency }

// Status returns the session status.
func (s *Session) Status() SessionStatus { return s.status }

// FailureReason returns the gateway's failure reason, if any.
func (s *Session) FailureReason() string { return s.failureReason }

// CompletedAt returns when the session reached a terminal status.
func (s *Session) CompletedAt() *time.Time { return s.completedAt }

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// Complete marks the session COMPLETED.
func (s *Session) Complete() error {
	if s.status.IsTerminal() {
		return domain.NewConflictError("payment session already settled")
	}
	now := time.Now().UTC()
	s.status = SessionCompleted
	s.completedAt = &now
	s.updatedAt = now
	return nil
}

// Fail marks the session FAILED with the gateway's reason.
func (s *Session) Fail(reason string) error {
	if s.status.IsTerminal() {
		return domain.NewConflictError("payment session already settled")
	}
	now := time.Now().UTC()
	s.status = SessionFailed
	s.failureReason = reason
	s.completedAt = &now
	s.updatedAt = now
	return nil
}
