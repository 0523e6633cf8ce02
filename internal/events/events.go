package events

import "time"

// TopicBookingNotifications carries every email-worthy booking event. The
// notification worker is the only consumer; publishing is fire-and-forget
// from the booking lifecycle's perspective.
const TopicBookingNotifications = "booking.notifications"

// Event types on the notifications topic.
const (
	VerificationRequested = "booking.verification.requested"
	CancellationRequested = "booking.cancellation.requested"
	StatusChanged         = "booking.status.changed"
)

// EventSource identifies this service in CloudEvent envelopes.
const EventSource = "service-booking"

// VerificationRequestedEvent asks the worker to email a verification link.
type VerificationRequestedEvent struct {
	AcknowledgementID string    `json:"acknowledgement_id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	Token             string    `json:"token"`
	ExpiresAt         time.Time `json:"expires_at"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// CancellationRequestedEvent asks the worker to email a cancellation-confirm link.
type CancellationRequestedEvent struct {
	AcknowledgementID string     `json:"acknowledgement_id"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	Token             string     `json:"token"`
	ExpiresAt         time.Time  `json:"expires_at"`
	SlotStart         *time.Time `json:"slot_start,omitempty"`
	OccurredAt        time.Time  `json:"occurred_at"`
}

// StatusChangedEvent asks the worker to email a status notice.
type StatusChangedEvent struct {
	AcknowledgementID string     `json:"acknowledgement_id"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	Status            string     `json:"status"`
	SlotStart         *time.Time `json:"slot_start,omitempty"`
	SlotEnd           *time.Time `json:"slot_end,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	OccurredAt        time.Time  `json:"occurred_at"`
}
