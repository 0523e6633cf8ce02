package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/domain"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	paymentDomain "github.com/mindsettler/service-booking/internal/domain/payment"
	"github.com/mindsettler/service-booking/internal/events"
)

type paymentServiceFixture struct {
	service   *PaymentService
	bookings  *fakeBookingRepo
	sessions  *fakeSessionRepo
	publisher *fakePublisher
}

func newPaymentServiceFixture() *paymentServiceFixture {
	bookings := newFakeBookingRepo()
	sessions := newFakeSessionRepo()
	publisher := &fakePublisher{}

	tx := &fakeTransactor{bookings: bookings, sessions: sessions}
	service := NewPaymentService(bookings, sessions, tx, publisher, testBookingConfig(), zap.NewNop())
	return &paymentServiceFixture{
		service:   service,
		bookings:  bookings,
		sessions:  sessions,
		publisher: publisher,
	}
}

func TestInitiate(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusApproved, 72*time.Hour)

	session, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)

	assert.Equal(t, string(paymentDomain.SessionInitiated), session.Status)
	assert.Equal(t, int64(120000), session.AmountCents)
	assert.Equal(t, "INR", session.Currency)
	assert.NotEmpty(t, session.PaymentReference)

	assert.Equal(t, bookingDomain.StatusPaymentPending, bk.Status())
	require.NotNil(t, bk.AmountCents())
	assert.Equal(t, int64(120000), *bk.AmountCents())
	assert.Len(t, f.publisher.eventsOfType(events.StatusChanged), 1)
}

func TestInitiate_Idempotent(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusApproved, 72*time.Hour)

	first, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)

	second, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)

	assert.Equal(t, first.PaymentReference, second.PaymentReference)
	assert.Len(t, f.sessions.sessions, 1)
	// Only the first call moves the booking.
	assert.Len(t, f.publisher.eventsOfType(events.StatusChanged), 1)
}

func TestInitiate_WrongStatus(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusPending, 0)

	_, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConflict, kind)
}

func TestInitiate_UnknownBooking(t *testing.T) {
	f := newPaymentServiceFixture()

	_, err := f.service.Initiate(context.Background(), "MS-ZZZZZZ")
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindNotFound, kind)
}

func TestComplete(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusApproved, 72*time.Hour)

	session, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)

	settled, err := f.service.Complete(context.Background(), session.PaymentReference)
	require.NoError(t, err)

	assert.Equal(t, string(paymentDomain.SessionCompleted), settled.Status)
	assert.NotNil(t, settled.CompletedAt)
	assert.Equal(t, bookingDomain.StatusConfirmed, bk.Status())
	assert.Len(t, f.publisher.eventsOfType(events.StatusChanged), 2)
}

func TestComplete_AlreadySettled(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusApproved, 72*time.Hour)

	session, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)
	_, err = f.service.Complete(context.Background(), session.PaymentReference)
	require.NoError(t, err)

	_, err = f.service.Complete(context.Background(), session.PaymentReference)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConflict, kind)
}

func TestComplete_RolledBackWhenBookingCancelled(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusApproved, 72*time.Hour)

	session, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)

	// Admin cancels while the gateway's completion is in flight.
	require.NoError(t, bk.CancelByAdmin("therapist unavailable"))
	bk.IncrementVersion()
	require.NoError(t, f.bookings.Update(context.Background(), bk))

	_, err = f.service.Complete(context.Background(), session.PaymentReference)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConflict, kind)

	// The settle rolled back with the failed confirmation: the session must
	// not read COMPLETED against a booking that never reached CONFIRMED.
	stored, err := f.sessions.FindByReference(context.Background(), session.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.SessionInitiated, stored.Status())

	assert.Equal(t, bookingDomain.StatusCancelled, bk.Status())
	for _, entry := range bk.Timeline() {
		assert.NotEqual(t, bookingDomain.StatusConfirmed, entry.Status)
	}
	for _, e := range f.publisher.eventsOfType(events.StatusChanged) {
		var evt events.StatusChangedEvent
		require.NoError(t, e.ParseData(&evt))
		assert.NotEqual(t, "CONFIRMED", evt.Status)
	}
}

func TestFail_AllowsRetry(t *testing.T) {
	f := newPaymentServiceFixture()
	bk := seedBooking(t, f.bookings, "asha@example.com", bookingDomain.StatusApproved, 72*time.Hour)

	session, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)

	failed, err := f.service.Fail(context.Background(), session.PaymentReference, "card declined")
	require.NoError(t, err)

	assert.Equal(t, string(paymentDomain.SessionFailed), failed.Status)
	assert.Equal(t, "card declined", failed.FailureReason)
	assert.Equal(t, bookingDomain.StatusPaymentFailed, bk.Status())

	// A fresh initiate opens a new session and the flow can complete.
	retry, err := f.service.Initiate(context.Background(), bk.AcknowledgementID())
	require.NoError(t, err)
	assert.NotEqual(t, session.PaymentReference, retry.PaymentReference)

	_, err = f.service.Complete(context.Background(), retry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusConfirmed, bk.Status())
}
