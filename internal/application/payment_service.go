package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/config"
	"github.com/mindsettler/service-booking/internal/domain"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	paymentDomain "github.com/mindsettler/service-booking/internal/domain/payment"
	"github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/kafka"
)

// PaymentService orchestrates payment sessions against approved bookings.
// The gateway itself is external; this service tracks sessions and moves the
// booking between PAYMENT_PENDING, CONFIRMED and PAYMENT_FAILED.
type PaymentService struct {
	bookings bookingDomain.BookingRepository
	sessions paymentDomain.SessionRepository
	tx       Transactor
	producer EventPublisher
	cfg      config.BookingConfig
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	bookings bookingDomain.BookingRepository,
	sessions paymentDomain.SessionRepository,
	tx Transactor,
	producer EventPublisher,
	cfg config.BookingConfig,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		sessions: sessions,
		tx:       tx,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Initiate opens a payment session for an approved booking. The booking's
// move to PAYMENT_PENDING and the session insert commit together, so a
// PAYMENT_PENDING booking always has exactly one open session. Repeat calls
// while that session is open return it unchanged, so the frontend can safely
// retry.
func (s *PaymentService) Initiate(ctx context.Context, ackID string) (*PaymentSessionDTO, error) {
	bk, err := s.bookings.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}

	if bk.Status() == bookingDomain.StatusPaymentPending {
		open, err := s.sessions.FindInitiatedByAcknowledgementID(ctx, ackID)
		if err != nil {
			return nil, err
		}
		if open == nil {
			return nil, domain.NewConflictError("no open payment session for this booking")
		}
		result := toSessionDTO(open)
		return &result, nil
	}

	var session *paymentDomain.Session
	err = s.tx.Transact(ctx, func(ctx context.Context) error {
		if err := bk.StartPayment(s.amountFor(bk)); err != nil {
			return err
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			return err
		}
		var err error
		session, err = paymentDomain.NewSession(bk.AcknowledgementID(), *bk.AmountCents(), bk.Currency())
		if err != nil {
			return err
		}
		return s.sessions.Save(ctx, session)
	})
	if err != nil {
		if kind, ok := domain.KindOf(err); ok && kind == domain.KindConflict {
			// A concurrent initiate won; hand back its session.
			open, findErr := s.sessions.FindInitiatedByAcknowledgementID(ctx, ackID)
			if findErr == nil && open != nil {
				result := toSessionDTO(open)
				return &result, nil
			}
		}
		return nil, err
	}
	s.publishStatusChanged(ctx, bk)

	s.logger.Info("payment session opened",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
		zap.String("payment_reference", session.PaymentReference()),
		zap.Int64("amount_cents", session.AmountCents()),
	)

	result := toSessionDTO(session)
	return &result, nil
}

// Complete settles a session as paid and confirms the booking in one
// transaction: a session never ends up COMPLETED against a booking that was
// not CONFIRMED. The session settle carries a status guard, so of any number
// of concurrent complete and fail calls exactly one wins.
func (s *PaymentService) Complete(ctx context.Context, reference string) (*PaymentSessionDTO, error) {
	var session *paymentDomain.Session
	var bk *bookingDomain.Booking
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.sessions.FindByReference(ctx, reference)
		if err != nil {
			return err
		}
		if err := session.Complete(); err != nil {
			return err
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}

		bk, err = s.bookings.FindByAcknowledgementID(ctx, session.AcknowledgementID())
		if err != nil {
			return err
		}
		if err := bk.ConfirmPayment(); err != nil {
			return err
		}
		bk.IncrementVersion()
		return s.bookings.Update(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, bk)
	s.logger.Info("payment completed",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
		zap.String("payment_reference", reference),
	)

	result := toSessionDTO(session)
	return &result, nil
}

// Fail settles a session as failed, typically from a gateway callback. The
// session settle and the booking's drop to PAYMENT_FAILED commit together; a
// fresh initiate then starts a new session.
func (s *PaymentService) Fail(ctx context.Context, reference, reason string) (*PaymentSessionDTO, error) {
	var session *paymentDomain.Session
	var bk *bookingDomain.Booking
	err := s.tx.Transact(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.sessions.FindByReference(ctx, reference)
		if err != nil {
			return err
		}
		if err := session.Fail(reason); err != nil {
			return err
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}

		bk, err = s.bookings.FindByAcknowledgementID(ctx, session.AcknowledgementID())
		if err != nil {
			return err
		}
		if err := bk.FailPayment(); err != nil {
			return err
		}
		bk.IncrementVersion()
		return s.bookings.Update(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("payment failed",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
		zap.String("payment_reference", reference),
		zap.String("reason", reason),
	)

	result := toSessionDTO(session)
	return &result, nil
}

// amountFor returns the session fee in paise for the booking's session mode.
func (s *PaymentService) amountFor(bk *bookingDomain.Booking) int64 {
	if bk.Preference().Mode == bookingDomain.ModeOffline {
		return s.cfg.OfflineAmountCents
	}
	return s.cfg.OnlineAmountCents
}

func (s *PaymentService) publishStatusChanged(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.StatusChangedEvent{
		AcknowledgementID: bk.AcknowledgementID(),
		Email:             bk.Email(),
		FullName:          bk.Client().FullName,
		Status:            string(bk.Status()),
		SlotStart:         bk.ApprovedSlotStart(),
		SlotEnd:           bk.ApprovedSlotEnd(),
		OccurredAt:        time.Now().UTC(),
	}

	cloudEvent, err := kafka.NewCloudEvent(events.EventSource, events.StatusChanged, evt)
	if err != nil {
		s.logger.Error("failed to create cloud event", zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicBookingNotifications, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", events.StatusChanged),
			zap.Error(err),
		)
	}
}

func toSessionDTO(session *paymentDomain.Session) PaymentSessionDTO {
	return PaymentSessionDTO{
		PaymentReference:  session.PaymentReference(),
		AcknowledgementID: session.AcknowledgementID(),
		AmountCents:       session.AmountCents(),
		Currency:          session.Currency(),
		Status:            string(session.Status()),
		FailureReason:     session.FailureReason(),
		CompletedAt:       session.CompletedAt(),
		CreatedAt:         session.CreatedAt(),
	}
}
