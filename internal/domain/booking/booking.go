package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindsettler/service-booking/internal/domain"
)

const ackIDChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the booking domain. Every status mutation
// goes through a behavior method so the transition table cannot be bypassed.
type Booking struct {
	id                uuid.UUID
	acknowledgementID string
	email             string
	client            ClientDetails
	consent           Consent
	status            BookingStatus
	preference        SessionPreference
	paymentMode       PaymentMode

	approvedSlotStart *time.Time
	approvedSlotEnd   *time.Time
	amountCents       *int64
	currency          string

	rejectionReason    string
	alternateSlots     string
	cancellationReason string
	cancelledBy        CancelActor
	cancelledAt        *time.Time
	emailVerifiedAt    *time.Time

	timeline  []TimelineEntry
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// GenerateAcknowledgementID creates an acknowledgement ID in the format "MS-XXXXXX".
func GenerateAcknowledgementID() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(ackIDChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate acknowledgement ID: %w", err)
		}
		result[i] = ackIDChars[n.Int64()]
	}
	return "MS-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=DRAFT.
func NewBooking(
	email string,
	client ClientDetails,
	consent Consent,
	preference SessionPreference,
	paymentMode PaymentMode,
) (*Booking, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.NewValidationError("email is required")
	}
	if client.FullName == "" {
		return nil, domain.NewValidationError("full name is required")
	}
	if client.PhoneNumber == "" {
		return nil, domain.NewValidationError("phone number is required")
	}
	if client.Age <= 0 {
		return nil, domain.NewValidationError("age must be positive")
	}
	if !client.Gender.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid gender: %s", client.Gender))
	}
	if !consent.Complete() {
		return nil, domain.NewValidationError("all policy consents are required")
	}
	if preference.Date.IsZero() {
		return nil, domain.NewValidationError("preferred date is required")
	}
	if !preference.Period.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid preferred period: %s", preference.Period))
	}
	if !preference.Mode.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid session mode: %s", preference.Mode))
	}
	if !paymentMode.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid payment mode: %s", paymentMode))
	}
	if preference.Mode == ModeOnline && paymentMode != PaymentOnline {
		return nil, domain.NewValidationError("online sessions require online payment")
	}
	if preference.Period == PeriodCustom {
		if preference.TimeStart == nil || preference.TimeEnd == nil {
			return nil, domain.NewValidationError("custom period requires start and end times")
		}
		if *preference.TimeStart >= *preference.TimeEnd {
			return nil, domain.NewValidationError("preferred start time must be before end time")
		}
	} else if preference.TimeStart != nil || preference.TimeEnd != nil {
		return nil, domain.NewValidationError("preferred times are only allowed with a custom period")
	}

	ackID, err := GenerateAcknowledgementID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	consent.GivenAt = &now
	return &Booking{
		id:                uuid.New(),
		acknowledgementID: ackID,
		email:             email,
		client:            client,
		consent:           consent,
		status:            StatusDraft,
		preference:        preference,
		paymentMode:       paymentMode,
		currency:          "INR",
		timeline:          []TimelineEntry{{Status: StatusDraft, RecordedAt: now}},
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	acknowledgementID string,
	email string,
	client ClientDetails,
	consent Consent,
	status BookingStatus,
	preference SessionPreference,
	paymentMode PaymentMode,
	approvedSlotStart *time.Time,
	approvedSlotEnd *time.Time,
	amountCents *int64,
	currency string,
	rejectionReason string,
	alternateSlots string,
	cancellationReason string,
	cancelledBy CancelActor,
	cancelledAt *time.Time,
	emailVerifiedAt *time.Time,
	timeline []TimelineEntry,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:                 id,
		acknowledgementID:  acknowledgementID,
		email:              email,
		client:             client,
		consent:            consent,
		status:             status,
		preference:         preference,
		paymentMode:        paymentMode,
		approvedSlotStart:  approvedSlotStart,
		approvedSlotEnd:    approvedSlotEnd,
		amountCents:        amountCents,
		currency:           currency,
		rejectionReason:    rejectionReason,
		alternateSlots:     alternateSlots,
		cancellationReason: cancellationReason,
		cancelledBy:        cancelledBy,
		cancelledAt:        cancelledAt,
		emailVerifiedAt:    emailVerifiedAt,
		timeline:           timeline,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// AcknowledgementID returns the human-readable acknowledgement identifier.
func (b *Booking) AcknowledgementID() string { return b.acknowledgementID }

// Email returns the submitter's email address.
func (b *Booking) Email() string { return b.email }

// Client returns the intake identity details.
func (b *Booking) Client() ClientDetails { return b.client }

// Consent returns the policy acceptance record.
func (b *Booking) Consent() Consent { return b.consent }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Preference returns the requested session preference.
func (b *Booking) Preference() SessionPreference { return b.preference }

// PaymentMode returns the chosen payment mode.
func (b *Booking) PaymentMode() PaymentMode { return b.paymentMode }

// ApprovedSlotStart returns the admin-assigned slot start, or nil before approval.
func (b *Booking) ApprovedSlotStart() *time.Time { return b.approvedSlotStart }

// ApprovedSlotEnd returns the admin-assigned slot end, or nil before approval.
func (b *Booking) ApprovedSlotEnd() *time.Time { return b.approvedSlotEnd }

// AmountCents returns the payable amount in paise, or nil before payment is initiated.
func (b *Booking) AmountCents() *int64 { return b.amountCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// RejectionReason returns the admin's rejection reason.
func (b *Booking) RejectionReason() string { return b.rejectionReason }

// AlternateSlots returns free-text alternate slot suggestions from the admin.
func (b *Booking) AlternateSlots() string { return b.alternateSlots }

// CancellationReason returns the recorded cancellation reason.
func (b *Booking) CancellationReason() string { return b.cancellationReason }

// CancelledBy returns who cancelled the booking, or empty if not cancelled.
func (b *Booking) CancelledBy() CancelActor { return b.cancelledBy }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// EmailVerifiedAt returns the time the submitter verified their email.
func (b *Booking) EmailVerifiedAt() *time.Time { return b.emailVerifiedAt }

// Timeline returns the append-only status history in commit order.
func (b *Booking) Timeline() []TimelineEntry { return b.timeline }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// EmailVerified returns true once the verification token was redeemed.
func (b *Booking) EmailVerified() bool { return b.emailVerifiedAt != nil }

// --- Behavior ---

// transition moves the booking to target and appends the timeline entry.
// Callers must have validated the transition already.
func (b *Booking) transition(target BookingStatus, at time.Time) {
	b.status = target
	b.timeline = append(b.timeline, TimelineEntry{Status: target, RecordedAt: at})
	b.updatedAt = at
}

// guard returns an InvalidTransition error unless the target is reachable.
func (b *Booking) guard(target BookingStatus) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidTransitionError(string(b.status), string(target))
	}
	return nil
}

// Submit transitions the booking from DRAFT to PENDING after email verification.
func (b *Booking) Submit() error {
	if err := b.guard(StatusPending); err != nil {
		return err
	}
	now := time.Now().UTC()
	b.emailVerifiedAt = &now
	b.transition(StatusPending, now)
	return nil
}

// RejectAsDuplicate rejects a DRAFT whose verification found another active
// booking for the same email.
func (b *Booking) RejectAsDuplicate() error {
	if b.status != StatusDraft {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusRejected))
	}
	now := time.Now().UTC()
	b.rejectionReason = "Another active booking exists for this email"
	b.transition(StatusRejected, now)
	return nil
}

// Approve transitions PENDING to APPROVED with the admin-assigned slot.
func (b *Booking) Approve(slotStart, slotEnd time.Time) error {
	if b.status != StatusPending {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusApproved))
	}
	if !slotStart.Before(slotEnd) {
		return domain.NewValidationError("approved slot start must be before slot end")
	}
	now := time.Now().UTC()
	if !slotStart.After(now) {
		return domain.NewValidationError("approved slot must be in the future")
	}
	b.approvedSlotStart = &slotStart
	b.approvedSlotEnd = &slotEnd
	b.transition(StatusApproved, now)
	return nil
}

// Reject transitions PENDING or APPROVED to REJECTED.
func (b *Booking) Reject(reason, alternateSlots string) error {
	if err := b.guard(StatusRejected); err != nil {
		return err
	}
	if reason == "" {
		return domain.NewValidationError("rejection reason is required")
	}
	b.rejectionReason = reason
	b.alternateSlots = alternateSlots
	b.transition(StatusRejected, time.Now().UTC())
	return nil
}

// StartPayment transitions APPROVED or PAYMENT_FAILED to PAYMENT_PENDING and
// fixes the payable amount.
func (b *Booking) StartPayment(amountCents int64) error {
	if b.status != StatusApproved && b.status != StatusPaymentFailed {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusPaymentPending))
	}
	if amountCents <= 0 {
		return domain.NewValidationError("amount must be positive")
	}
	b.amountCents = &amountCents
	b.transition(StatusPaymentPending, time.Now().UTC())
	return nil
}

// ConfirmPayment transitions PAYMENT_PENDING to CONFIRMED.
func (b *Booking) ConfirmPayment() error {
	if err := b.guard(StatusConfirmed); err != nil {
		return err
	}
	b.transition(StatusConfirmed, time.Now().UTC())
	return nil
}

// FailPayment transitions PAYMENT_PENDING to PAYMENT_FAILED.
func (b *Booking) FailPayment() error {
	if err := b.guard(StatusPaymentFailed); err != nil {
		return err
	}
	b.transition(StatusPaymentFailed, time.Now().UTC())
	return nil
}

// Complete transitions CONFIRMED to COMPLETED (the session took place).
func (b *Booking) Complete() error {
	if b.status != StatusConfirmed {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusCompleted))
	}
	b.transition(StatusCompleted, time.Now().UTC())
	return nil
}

// CancelByUser cancels an APPROVED booking immediately, or a CONFIRMED booking
// after its cancellation token was redeemed. The cutoff window for CONFIRMED
// bookings is enforced by the caller against WithinCancellationWindow.
func (b *Booking) CancelByUser(reason string) error {
	if b.status != StatusApproved && b.status != StatusConfirmed {
		return domain.NewInvalidTransitionError(string(b.status), string(StatusCancelled))
	}
	if reason == "" {
		reason = "Cancelled by user"
	}
	b.cancel(CancelledByUser, reason)
	return nil
}

// CancelByAdmin cancels a booking from any active post-approval status.
func (b *Booking) CancelByAdmin(reason string) error {
	if err := b.guard(StatusCancelled); err != nil {
		return err
	}
	if reason == "" {
		reason = "Cancelled by admin"
	}
	b.cancel(CancelledByAdmin, reason)
	return nil
}

func (b *Booking) cancel(actor CancelActor, reason string) {
	now := time.Now().UTC()
	b.cancellationReason = reason
	b.cancelledBy = actor
	b.cancelledAt = &now
	b.transition(StatusCancelled, now)
}

// WithinCancellationWindow reports whether now is still before the cutoff for
// cancelling a paid session. Applies only to bookings with an approved slot.
func (b *Booking) WithinCancellationWindow(now time.Time, cutoff time.Duration) bool {
	if b.approvedSlotStart == nil {
		return false
	}
	return now.Before(b.approvedSlotStart.Add(-cutoff))
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
