package application

import (
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// CreateDraftRequest holds the intake form data for a new booking draft.
type CreateDraftRequest struct {
	Email              string  `json:"email" binding:"required,email"`
	FullName           string  `json:"full_name" binding:"required"`
	PhoneNumber        string  `json:"phone_number" binding:"required"`
	City               string  `json:"city" binding:"required"`
	State              string  `json:"state"`
	Country            string  `json:"country"`
	Age                int     `json:"age" binding:"required"`
	Gender             string  `json:"gender" binding:"required"`
	EmergencyContact   string  `json:"emergency_contact"`
	UserMessage        string  `json:"user_message"`
	PreferredDate      string  `json:"preferred_date" binding:"required"`
	PreferredPeriod    string  `json:"preferred_period" binding:"required"`
	PreferredTimeStart *string `json:"preferred_time_start"`
	PreferredTimeEnd   *string `json:"preferred_time_end"`
	Mode               string  `json:"mode" binding:"required"`
	PaymentMode        string  `json:"payment_mode" binding:"required"`
	ConsentGiven       bool    `json:"consent_given"`
	ConsentTerms       bool    `json:"consent_terms"`
	ConsentPrivacy     bool    `json:"consent_privacy"`
	ConsentDisclaim    bool    `json:"consent_disclaimer"`
}

// Draft outcomes distinguish a fresh draft from a resend against one that
// already exists for the email.
const (
	DraftOutcomeCreated  = "created"
	DraftOutcomeExisting = "existing"
)

// DraftResult is the response to a draft submission.
type DraftResult struct {
	Outcome           string `json:"outcome"`
	AcknowledgementID string `json:"acknowledgement_id"`
	Status            string `json:"status"`
	Message           string `json:"message"`
}

// VerifiedBookingDTO is the booking summary returned with a verification
// outcome.
type VerifiedBookingDTO struct {
	AcknowledgementID string     `json:"acknowledgement_id"`
	Status            string     `json:"status"`
	ApprovedSlotStart *time.Time `json:"approved_slot_start,omitempty"`
	ApprovedSlotEnd   *time.Time `json:"approved_slot_end,omitempty"`
}

// VerifyEmailResult is the response to verification link redemption.
type VerifyEmailResult struct {
	Message string             `json:"message"`
	Booking VerifiedBookingDTO `json:"booking"`
}

// CancellationResult is the response to a cancellation request or confirmation.
type CancellationResult struct {
	AcknowledgementID string `json:"acknowledgement_id"`
	Status            string `json:"status"`
	Message           string `json:"message"`
}

// BookingDTO is the full response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID                        `json:"id"`
	AcknowledgementID  string                           `json:"acknowledgement_id"`
	Email              string                           `json:"email"`
	Client             bookingDomain.ClientDetails      `json:"client"`
	Consent            bookingDomain.Consent            `json:"consent"`
	Status             string                           `json:"status"`
	Preference         bookingDomain.SessionPreference  `json:"preference"`
	PaymentMode        string                           `json:"payment_mode"`
	ApprovedSlotStart  *time.Time                       `json:"approved_slot_start,omitempty"`
	ApprovedSlotEnd    *time.Time                       `json:"approved_slot_end,omitempty"`
	AmountCents        *int64                           `json:"amount_cents,omitempty"`
	Currency           string                           `json:"currency"`
	RejectionReason    string                           `json:"rejection_reason,omitempty"`
	AlternateSlots     string                           `json:"alternate_slots,omitempty"`
	CancellationReason string                           `json:"cancellation_reason,omitempty"`
	CancelledBy        string                           `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time                       `json:"cancelled_at,omitempty"`
	EmailVerifiedAt    *time.Time                       `json:"email_verified_at,omitempty"`
	Timeline           []bookingDomain.TimelineEntry    `json:"timeline"`
	Version            int64                            `json:"version"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
}

// StatusDTO is the public status projection keyed by acknowledgement ID. It
// deliberately omits intake details beyond what the status page renders.
type StatusDTO struct {
	AcknowledgementID  string                        `json:"acknowledgement_id"`
	Status             string                        `json:"status"`
	PreferredDate      string                        `json:"preferred_date"`
	PreferredPeriod    string                        `json:"preferred_period"`
	PreferredTimeStart *string                       `json:"preferred_time_start,omitempty"`
	PreferredTimeEnd   *string                       `json:"preferred_time_end,omitempty"`
	Mode               string                        `json:"mode"`
	PaymentMode        string                        `json:"payment_mode"`
	ApprovedSlotStart  *time.Time                    `json:"approved_slot_start,omitempty"`
	ApprovedSlotEnd    *time.Time                    `json:"approved_slot_end,omitempty"`
	AmountCents        *int64                        `json:"amount_cents,omitempty"`
	Currency           string                        `json:"currency"`
	RejectionReason    string                        `json:"rejection_reason,omitempty"`
	AlternateSlots     string                        `json:"alternate_slots,omitempty"`
	CancelledBy        string                        `json:"cancelled_by,omitempty"`
	Timeline           []bookingDomain.TimelineEntry `json:"timeline"`
	CreatedAt          time.Time                     `json:"created_at"`
}

// PaymentSessionDTO is the response representation of a payment session.
type PaymentSessionDTO struct {
	PaymentReference  string     `json:"payment_reference"`
	AcknowledgementID string     `json:"acknowledgement_id"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:                 bk.ID(),
		AcknowledgementID:  bk.AcknowledgementID(),
		Email:              bk.Email(),
		Client:             bk.Client(),
		Consent:            bk.Consent(),
		Status:             string(bk.Status()),
		Preference:         bk.Preference(),
		PaymentMode:        string(bk.PaymentMode()),
		ApprovedSlotStart:  bk.ApprovedSlotStart(),
		ApprovedSlotEnd:    bk.ApprovedSlotEnd(),
		AmountCents:        bk.AmountCents(),
		Currency:           bk.Currency(),
		RejectionReason:    bk.RejectionReason(),
		AlternateSlots:     bk.AlternateSlots(),
		CancellationReason: bk.CancellationReason(),
		CancelledBy:        string(bk.CancelledBy()),
		CancelledAt:        bk.CancelledAt(),
		EmailVerifiedAt:    bk.EmailVerifiedAt(),
		Timeline:           bk.Timeline(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}

func toVerifiedBookingDTO(bk *bookingDomain.Booking) VerifiedBookingDTO {
	return VerifiedBookingDTO{
		AcknowledgementID: bk.AcknowledgementID(),
		Status:            string(bk.Status()),
		ApprovedSlotStart: bk.ApprovedSlotStart(),
		ApprovedSlotEnd:   bk.ApprovedSlotEnd(),
	}
}

func toStatusDTO(bk *bookingDomain.Booking) StatusDTO {
	pref := bk.Preference()
	return StatusDTO{
		AcknowledgementID:  bk.AcknowledgementID(),
		Status:             string(bk.Status()),
		PreferredDate:      pref.Date.Format(preferredDateLayout),
		PreferredPeriod:    string(pref.Period),
		PreferredTimeStart: pref.TimeStart,
		PreferredTimeEnd:   pref.TimeEnd,
		Mode:               string(pref.Mode),
		PaymentMode:        string(bk.PaymentMode()),
		ApprovedSlotStart:  bk.ApprovedSlotStart(),
		ApprovedSlotEnd:    bk.ApprovedSlotEnd(),
		AmountCents:        bk.AmountCents(),
		Currency:           bk.Currency(),
		RejectionReason:    bk.RejectionReason(),
		AlternateSlots:     bk.AlternateSlots(),
		CancelledBy:        string(bk.CancelledBy()),
		Timeline:           bk.Timeline(),
		CreatedAt:          bk.CreatedAt(),
	}
}
