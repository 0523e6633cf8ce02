package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mindsettler/service-booking/internal/config"
	"github.com/mindsettler/service-booking/internal/domain"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	paymentDomain "github.com/mindsettler/service-booking/internal/domain/payment"
	tokenDomain "github.com/mindsettler/service-booking/internal/domain/token"
	"github.com/mindsettler/service-booking/internal/kafka"
)

// --- In-memory repository fakes ---

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*bookingDomain.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*bookingDomain.Booking)}
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.ID() == id {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", id.String())
}

func (r *fakeBookingRepo) FindByAcknowledgementID(_ context.Context, ackID string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[ackID]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", ackID)
	}
	return bk, nil
}

func (r *fakeBookingRepo) FindActiveByEmail(_ context.Context, email string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Prefer the furthest-along booking so draft-vs-active races resolve the
	// way the database index would.
	var found *bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.Email() != email || !bk.Status().IsActive() {
			continue
		}
		if found == nil || found.Status() == bookingDomain.StatusDraft {
			found = bk
		}
	}
	return found, nil
}

func (r *fakeBookingRepo) ListByStatus(_ context.Context, status bookingDomain.BookingStatus, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if status == "" || bk.Status() == status {
			result = append(result, bk)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *fakeBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.Email() == bk.Email() && existing.Status().IsActive() {
			return domain.NewConflictError("an active booking already exists for this email")
		}
	}
	r.bookings[bk.AcknowledgementID()] = bk
	return nil
}

func (r *fakeBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[bk.AcknowledgementID()]; !ok {
		return domain.NewNotFoundError("Booking", bk.AcknowledgementID())
	}
	r.bookings[bk.AcknowledgementID()] = bk
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*tokenDomain.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*tokenDomain.Token)}
}

func (r *fakeTokenRepo) Save(_ context.Context, t *tokenDomain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Value()] = t
	return nil
}

func (r *fakeTokenRepo) FindByValue(_ context.Context, value string) (*tokenDomain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[value]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return t, nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[value]
	if !ok {
		return domain.ErrTokenNotFound
	}
	if t.Consumed() {
		return domain.ErrTokenAlreadyUsed
	}
	now := time.Now().UTC()
	r.tokens[value] = tokenDomain.ReconstructToken(
		t.ID(), t.Value(), t.Kind(), t.AcknowledgementID(), t.ExpiresAt(), true, &now, t.CreatedAt(),
	)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*paymentDomain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*paymentDomain.Session)}
}

// cloneSession copies a session the way a row read does, so callers mutate
// their copy and the stored state only changes through Save/Update.
func cloneSession(s *paymentDomain.Session) *paymentDomain.Session {
	return paymentDomain.ReconstructSession(
		s.ID(), s.PaymentReference(), s.AcknowledgementID(), s.AmountCents(),
		s.Currency(), s.Status(), s.FailureReason(), s.CompletedAt(),
		s.CreatedAt(), s.UpdatedAt(),
	)
}

func (r *fakeSessionRepo) Save(_ context.Context, s *paymentDomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.AcknowledgementID() == s.AcknowledgementID() && existing.Status() == paymentDomain.SessionInitiated {
			return domain.NewConflictError("a payment session is already open for this booking")
		}
	}
	r.sessions[s.PaymentReference()] = cloneSession(s)
	return nil
}

func (r *fakeSessionRepo) FindByReference(_ context.Context, reference string) (*paymentDomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[reference]
	if !ok {
		return nil, domain.NewNotFoundError("PaymentSession", reference)
	}
	return cloneSession(s), nil
}

func (r *fakeSessionRepo) FindInitiatedByAcknowledgementID(_ context.Context, ackID string) (*paymentDomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.AcknowledgementID() == ackID && s.Status() == paymentDomain.SessionInitiated {
			return cloneSession(s), nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *paymentDomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.PaymentReference()]; !ok {
		return domain.NewNotFoundError("PaymentSession", s.PaymentReference())
	}
	r.sessions[s.PaymentReference()] = cloneSession(s)
	return nil
}

// fakeTransactor restores the fake repositories to their pre-transaction
// state when the wrapped function fails, mirroring a database rollback.
type fakeTransactor struct {
	bookings *fakeBookingRepo
	sessions *fakeSessionRepo
}

func (t *fakeTransactor) Transact(_ context.Context, fn func(ctx context.Context) error) error {
	bookingSnap := make(map[string]*bookingDomain.Booking, len(t.bookings.bookings))
	for k, v := range t.bookings.bookings {
		bookingSnap[k] = v
	}
	sessionSnap := make(map[string]*paymentDomain.Session, len(t.sessions.sessions))
	for k, v := range t.sessions.sessions {
		sessionSnap[k] = v
	}

	if err := fn(context.Background()); err != nil {
		t.bookings.mu.Lock()
		t.bookings.bookings = bookingSnap
		t.bookings.mu.Unlock()
		t.sessions.mu.Lock()
		t.sessions.sessions = sessionSnap
		t.sessions.mu.Unlock()
		return err
	}
	return nil
}

// --- Publisher and limiter fakes ---

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) eventsOfType(eventType string) []kafka.CloudEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []kafka.CloudEvent
	for _, e := range p.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

type fakeLimiter struct {
	allow    bool
	throttle bool
}

func (l *fakeLimiter) Allow(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	return l.allow, nil
}

func (l *fakeLimiter) Throttle(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return l.throttle, nil
}

// --- Shared test data ---

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		VerificationTokenTTL: 48 * time.Hour,
		CancellationTokenTTL: 2 * time.Hour,
		CancellationCutoff:   24 * time.Hour,
		ResendThrottle:       time.Minute,
		OnlineAmountCents:    120000,
		OfflineAmountCents:   150000,
		DraftRateLimit:       5,
		DraftRateLimitWindow: 10 * time.Minute,
	}
}

func validDraftRequest(email string) CreateDraftRequest {
	return CreateDraftRequest{
		Email:           email,
		FullName:        "Asha Kapoor",
		PhoneNumber:     "+919876543210",
		City:            "Pune",
		Age:             29,
		Gender:          "FEMALE",
		PreferredDate:   time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		PreferredPeriod: "MORNING",
		Mode:            "ONLINE",
		PaymentMode:     "ONLINE",
		ConsentGiven:    true,
		ConsentTerms:    true,
		ConsentPrivacy:  true,
		ConsentDisclaim: true,
	}
}

// seedBooking inserts a booking driven to the given status, with the approved
// slot placed slotFromNow in the future where the lifecycle reaches it.
func seedBooking(t *testing.T, repo *fakeBookingRepo, email string, status bookingDomain.BookingStatus, slotFromNow time.Duration) *bookingDomain.Booking {
	t.Helper()

	client := bookingDomain.ClientDetails{
		FullName:    "Asha Kapoor",
		PhoneNumber: "+919876543210",
		City:        "Pune",
		Age:         29,
		Gender:      bookingDomain.GenderFemale,
	}
	consent := bookingDomain.Consent{Given: true, Terms: true, Privacy: true, Disclaimer: true}
	preference := bookingDomain.SessionPreference{
		Date:   time.Now().AddDate(0, 0, 7),
		Period: bookingDomain.PeriodMorning,
		Mode:   bookingDomain.ModeOnline,
	}

	bk, err := bookingDomain.NewBooking(email, client, consent, preference, bookingDomain.PaymentOnline)
	require.NoError(t, err)

	if status != bookingDomain.StatusDraft {
		require.NoError(t, bk.Submit())
	}
	switch status {
	case bookingDomain.StatusApproved, bookingDomain.StatusPaymentPending,
		bookingDomain.StatusConfirmed, bookingDomain.StatusCompleted, bookingDomain.StatusCancelled:
		slot := time.Now().UTC().Add(slotFromNow)
		require.NoError(t, bk.Approve(slot, slot.Add(time.Hour)))
	case bookingDomain.StatusRejected:
		require.NoError(t, bk.Reject("no availability", ""))
	}
	switch status {
	case bookingDomain.StatusPaymentPending, bookingDomain.StatusConfirmed, bookingDomain.StatusCompleted:
		require.NoError(t, bk.StartPayment(120000))
	}
	switch status {
	case bookingDomain.StatusConfirmed, bookingDomain.StatusCompleted:
		require.NoError(t, bk.ConfirmPayment())
	}
	switch status {
	case bookingDomain.StatusCompleted:
		require.NoError(t, bk.Complete())
	case bookingDomain.StatusCancelled:
		require.NoError(t, bk.CancelByUser(""))
	}

	require.Equal(t, status, bk.Status())
	repo.bookings[bk.AcknowledgementID()] = bk
	return bk
}
