package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusDraft          BookingStatus = "DRAFT"
	StatusPending        BookingStatus = "PENDING"
	StatusApproved       BookingStatus = "APPROVED"
	StatusPaymentPending BookingStatus = "PAYMENT_PENDING"
	StatusConfirmed      BookingStatus = "CONFIRMED"
	StatusCompleted      BookingStatus = "COMPLETED"
	StatusRejected       BookingStatus = "REJECTED"
	StatusCancelled      BookingStatus = "CANCELLED"
	StatusPaymentFailed  BookingStatus = "PAYMENT_FAILED"
)

// validTransitions defines the state machine for booking status transitions.
//
// DRAFT is rejected (not cancelled) when email verification discovers another
// active booking for the same address. CONFIRMED reaches CANCELLED only
// through the cancellation-token round trip.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusDraft:          {StatusPending, StatusRejected},
	StatusPending:        {StatusApproved, StatusRejected},
	StatusApproved:       {StatusPaymentPending, StatusCancelled, StatusRejected},
	StatusPaymentPending: {StatusConfirmed, StatusPaymentFailed, StatusCancelled},
	StatusPaymentFailed:  {StatusPaymentPending, StatusCancelled},
	StatusConfirmed:      {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusRejected:       {},
	StatusCancelled:      {},
}

// ActiveStatuses is the set of non-terminal statuses. At most one booking per
// email may hold one of these at any time.
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{
		StatusDraft,
		StatusPending,
		StatusApproved,
		StatusPaymentPending,
		StatusPaymentFailed,
		StatusConfirmed,
	}
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// IsActive returns true if the status counts against the one-active-booking
// invariant.
func (s BookingStatus) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
