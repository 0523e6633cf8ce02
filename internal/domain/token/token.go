package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes what a token authorizes.
type Kind string

const (
	KindVerification Kind = "verification"
	KindCancellation Kind = "cancellation"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	return k == KindVerification || k == KindCancellation
}

// Token is a single-use, time-limited credential bound to one booking. Tokens
// are the only authentication for state-changing booking actions, so the
// value carries 256 bits of entropy. Consumed tokens are kept for audit.
type Token struct {
	id                uuid.UUID
	value             string
	kind              Kind
	acknowledgementID string
	expiresAt         time.Time
	consumed          bool
	consumedAt        *time.Time
	createdAt         time.Time
}

// generateValue creates an unguessable token string.
func generateValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewToken mints a token of the given kind for one acknowledgement ID.
func NewToken(kind Kind, acknowledgementID string, ttl time.Duration) (*Token, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid token kind: %s", kind)
	}
	value, err := generateValue()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Token{
		id:                uuid.New(),
		value:             value,
		kind:              kind,
		acknowledgementID: acknowledgementID,
		expiresAt:         now.Add(ttl),
		createdAt:         now,
	}, nil
}

// ReconstructToken rebuilds a Token from persistence data.
func ReconstructToken(
	id uuid.UUID,
	value string,
	kind Kind,
	acknowledgementID string,
	expiresAt time.Time,
	consumed bool,
	consumedAt *time.Time,
	createdAt time.Time,
) *Token {
	return &Token{
		id:                id,
		value:             value,
		kind:              kind,
		acknowledgementID: acknowledgementID,
		expiresAt:         expiresAt,
		consumed:          consumed,
		consumedAt:        consumedAt,
		createdAt:         createdAt,
	}
}

// ID returns the token's unique identifier.
func (t *Token) ID() uuid.UUID { return t.id }

// Value returns the opaque token string.
func (t *Token) Value() string { return t.value }

// Kind returns what the token authorizes.
func (t *Token) Kind() Kind { return t.kind }

// AcknowledgementID returns the booking the token is bound to.
func (t *Token) AcknowledgementID() string { return t.acknowledgementID }

// ExpiresAt returns the expiry timestamp.
func (t *Token) ExpiresAt() time.Time { return t.expiresAt }

// Consumed returns true once the token was redeemed.
func (t *Token) Consumed() bool { return t.consumed }

// ConsumedAt returns when the token was redeemed, or nil.
func (t *Token) ConsumedAt() *time.Time { return t.consumedAt }

// CreatedAt returns the creation timestamp.
func (t *Token) CreatedAt() time.Time { return t.createdAt }

// Expired reports whether the token is past its expiry at the given time.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.expiresAt)
}
