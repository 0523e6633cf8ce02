package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/config"
	"github.com/mindsettler/service-booking/internal/domain"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	tokenDomain "github.com/mindsettler/service-booking/internal/domain/token"
	"github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/kafka"
)

const preferredDateLayout = "2006-01-02"

// BookingService orchestrates the public booking lifecycle: draft intake,
// email verification, status lookup and cancellation.
type BookingService struct {
	bookings bookingDomain.BookingRepository
	tokens   tokenDomain.TokenRepository
	producer EventPublisher
	limiter  RateLimiter
	cfg      config.BookingConfig
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.BookingRepository,
	tokens tokenDomain.TokenRepository,
	producer EventPublisher,
	limiter RateLimiter,
	cfg config.BookingConfig,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		tokens:   tokens,
		producer: producer,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateDraft records a booking draft and emails a verification link. When the
// email already has an active booking no new draft is created: a DRAFT gets
// its verification link resent (throttled), anything further along is simply
// reported back.
func (s *BookingService) CreateDraft(ctx context.Context, clientIP string, req CreateDraftRequest) (*DraftResult, error) {
	allowed, err := s.limiter.Allow(ctx, "draft:"+clientIP, s.cfg.DraftRateLimit, s.cfg.DraftRateLimitWindow)
	if err != nil {
		s.logger.Warn("draft rate limiter unavailable", zap.Error(err))
	}
	if !allowed {
		return nil, domain.NewRateLimitedError("too many booking attempts, please try again later")
	}

	bk, err := buildDraft(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.bookings.FindActiveByEmail(ctx, bk.Email())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.handleExistingDraft(ctx, existing)
	}

	if err := s.bookings.Save(ctx, bk); err != nil {
		if kind, ok := domain.KindOf(err); ok && kind == domain.KindConflict {
			// Lost the race against a concurrent draft for the same email.
			if winner, findErr := s.bookings.FindActiveByEmail(ctx, bk.Email()); findErr == nil && winner != nil {
				return s.handleExistingDraft(ctx, winner)
			}
		}
		return nil, err
	}

	if err := s.sendVerification(ctx, bk); err != nil {
		return nil, err
	}

	s.logger.Info("booking draft created",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
	)

	return &DraftResult{
		Outcome:           DraftOutcomeCreated,
		AcknowledgementID: bk.AcknowledgementID(),
		Status:            string(bk.Status()),
		Message:           "Check your email to verify your booking request.",
	}, nil
}

// handleExistingDraft reports the email's active booking back to the caller,
// resending the verification link when the booking is still an unverified
// draft. The resend is throttled per email.
func (s *BookingService) handleExistingDraft(ctx context.Context, existing *bookingDomain.Booking) (*DraftResult, error) {
	message := "An active booking already exists for this email."
	if existing.Status() == bookingDomain.StatusDraft {
		ok, err := s.limiter.Throttle(ctx, "resend:"+existing.Email(), s.cfg.ResendThrottle)
		if err != nil {
			s.logger.Warn("resend throttle unavailable", zap.Error(err))
		}
		if ok {
			if err := s.sendVerification(ctx, existing); err != nil {
				return nil, err
			}
			message = "A verification link was resent to your email."
		} else {
			message = "A verification link was sent recently, please check your inbox."
		}
	}

	return &DraftResult{
		Outcome:           DraftOutcomeExisting,
		AcknowledgementID: existing.AcknowledgementID(),
		Status:            string(existing.Status()),
		Message:           message,
	}, nil
}

// sendVerification mints a verification token and asks the notification
// worker to email the link.
func (s *BookingService) sendVerification(ctx context.Context, bk *bookingDomain.Booking) error {
	t, err := tokenDomain.NewToken(tokenDomain.KindVerification, bk.AcknowledgementID(), s.cfg.VerificationTokenTTL)
	if err != nil {
		return err
	}
	if err := s.tokens.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to save verification token: %w", err)
	}

	evt := events.VerificationRequestedEvent{
		AcknowledgementID: bk.AcknowledgementID(),
		Email:             bk.Email(),
		FullName:          bk.Client().FullName,
		Token:             t.Value(),
		ExpiresAt:         t.ExpiresAt(),
		OccurredAt:        time.Now().UTC(),
	}
	s.publishEvent(ctx, events.VerificationRequested, evt)
	return nil
}

// VerifyEmail redeems a verification token and submits the draft for review.
/// The duplicate-email check is repeated here: a second draft whose link is
// clicked after another booking went active is rejected instead of submitted.
func (s *BookingService) VerifyEmail(ctx context.Context, tokenValue string) (*VerifyEmailResult, error) {
	t, err := s.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if t.Kind() != tokenDomain.KindVerification {
		return nil, domain.ErrTokenNotFound
	}
	if t.Expired(time.Now().UTC()) {
		return nil, domain.ErrTokenExpired
	}
	if err := s.tokens.Consume(ctx, tokenValue); err != nil {
		return nil, err
	}

	bk, err := s.bookings.FindByAcknowledgementID(ctx, t.AcknowledgementID())
	if err != nil {
		return nil, err
	}

	other, err := s.bookings.FindActiveByEmail(ctx, bk.Email())
	if err != nil {
		return nil, err
	}
	if other != nil && other.ID() != bk.ID() {
		if err := bk.RejectAsDuplicate(); err != nil {
			return nil, err
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			return nil, err
		}
		return &VerifyEmailResult{
			Message: "Another active booking already exists for this email.",
			Booking: toVerifiedBookingDTO(bk),
		}, nil
	}

	if err := bk.Submit(); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, bk)
	s.logger.Info("booking submitted for review",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
	)

	return &VerifyEmailResult{
		Message: "Email verified, your booking is awaiting review.",
		Booking: toVerifiedBookingDTO(bk),
	}, nil
}

// GetStatus returns the public status projection for an acknowledgement ID.
func (s *BookingService) GetStatus(ctx context.Context, ackID string) (*StatusDTO, error) {
	bk, err := s.bookings.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}
	result := toStatusDTO(bk)
	return &result, nil
}

// RequestCancellation starts a user cancellation. An APPROVED booking is
// cancelled on the spot; a CONFIRMED one needs the emailed link confirmed
// within the token's lifetime, and only before the cutoff ahead of the slot.
func (s *BookingService) RequestCancellation(ctx context.Context, ackID, email string) (*CancellationResult, error) {
	bk, err := s.bookings.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}
	if bk.Email() != normalizeEmail(email) {
		return nil, domain.NewForbiddenError("email does not match this booking")
	}

	switch bk.Status() {
	case bookingDomain.StatusApproved:
		if err := bk.CancelByUser(""); err != nil {
			return nil, err
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			return nil, err
		}
		s.publishStatusChanged(ctx, bk)
		return &CancellationResult{
			AcknowledgementID: bk.AcknowledgementID(),
			Status:            string(bk.Status()),
			Message:           "Your booking has been cancelled.",
		}, nil

	case bookingDomain.StatusConfirmed:
		if !bk.WithinCancellationWindow(time.Now().UTC(), s.cfg.CancellationCutoff) {
			return nil, domain.NewForbiddenError("the cancellation window for this booking has closed")
		}

		t, err := tokenDomain.NewToken(tokenDomain.KindCancellation, bk.AcknowledgementID(), s.cfg.CancellationTokenTTL)
		if err != nil {
			return nil, err
		}
		if err := s.tokens.Save(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to save cancellation token: %w", err)
		}

		evt := events.CancellationRequestedEvent{
			AcknowledgementID: bk.AcknowledgementID(),
			Email:             bk.Email(),
			FullName:          bk.Client().FullName,
			Token:             t.Value(),
			ExpiresAt:         t.ExpiresAt(),
			SlotStart:         bk.ApprovedSlotStart(),
			OccurredAt:        time.Now().UTC(),
		}
		s.publishEvent(ctx, events.CancellationRequested, evt)

		return &CancellationResult{
			AcknowledgementID: bk.AcknowledgementID(),
			Status:            string(bk.Status()),
			Message:           "Check your email to confirm the cancellation.",
		}, nil

	default:
		return nil, domain.NewConflictError(
			fmt.Sprintf("a booking in status %s cannot be cancelled by the user", bk.Status()),
		)
	}
}

// VerifyCancellation redeems a cancellation token and cancels the booking.
// The cutoff is re-checked at redemption time: a token issued inside the
// window does not extend it.
func (s *BookingService) VerifyCancellation(ctx context.Context, tokenValue string) (*CancellationResult, error) {
	t, err := s.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if t.Kind() != tokenDomain.KindCancellation {
		return nil, domain.ErrTokenNotFound
	}
	if t.Expired(time.Now().UTC()) {
		return nil, domain.ErrTokenExpired
	}

	bk, err := s.bookings.FindByAcknowledgementID(ctx, t.AcknowledgementID())
	if err != nil {
		return nil, err
	}
	if bk.Status() != bookingDomain.StatusConfirmed {
		return nil, domain.NewConflictError(
			fmt.Sprintf("booking is no longer cancellable in status %s", bk.Status()),
		)
	}
	if !bk.WithinCancellationWindow(time.Now().UTC(), s.cfg.CancellationCutoff) {
		return nil, domain.NewForbiddenError("the cancellation window for this booking has closed")
	}

	if err := s.tokens.Consume(ctx, tokenValue); err != nil {
		return nil, err
	}

	if err := bk.CancelByUser(""); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, bk)
	s.logger.Info("booking cancelled by user",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
	)

	return &CancellationResult{
		AcknowledgementID: bk.AcknowledgementID(),
		Status:            string(bk.Status()),
		Message:           "Your booking has been cancelled.",
	}, nil
}

// --- Helpers ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func buildDraft(req CreateDraftRequest) (*bookingDomain.Booking, error) {
	date, err := time.Parse(preferredDateLayout, req.PreferredDate)
	if err != nil {
		return nil, domain.NewValidationError("preferred date must be in YYYY-MM-DD format")
	}

	client := bookingDomain.ClientDetails{
		FullName:         req.FullName,
		PhoneNumber:      req.PhoneNumber,
		City:             req.City,
		State:            req.State,
		Country:          req.Country,
		Age:              req.Age,
		Gender:           bookingDomain.Gender(req.Gender),
		EmergencyContact: req.EmergencyContact,
		UserMessage:      req.UserMessage,
	}
	consent := bookingDomain.Consent{
		Given:      req.ConsentGiven,
		Terms:      req.ConsentTerms,
		Privacy:    req.ConsentPrivacy,
		Disclaimer: req.ConsentDisclaim,
	}
	preference := bookingDomain.SessionPreference{
		Date:      date,
		Period:    bookingDomain.Period(req.PreferredPeriod),
		TimeStart: req.PreferredTimeStart,
		TimeEnd:   req.PreferredTimeEnd,
		Mode:      bookingDomain.SessionMode(req.Mode),
	}

	return bookingDomain.NewBooking(req.Email, client, consent, preference, bookingDomain.PaymentMode(req.PaymentMode))
}

func (s *BookingService) publishStatusChanged(ctx context.Context, bk *bookingDomain.Booking) {
	reason := bk.RejectionReason()
	if bk.Status() == bookingDomain.StatusCancelled {
		reason = bk.CancellationReason()
	}
	evt := events.StatusChangedEvent{
		AcknowledgementID: bk.AcknowledgementID(),
		Email:             bk.Email(),
		FullName:          bk.Client().FullName,
		Status:            string(bk.Status()),
		SlotStart:         bk.ApprovedSlotStart(),
		SlotEnd:           bk.ApprovedSlotEnd(),
		Reason:            reason,
		OccurredAt:        time.Now().UTC(),
	}
	s.publishEvent(ctx, events.StatusChanged, evt)
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(events.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, events.TopicBookingNotifications, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", events.TopicBookingNotifications),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
