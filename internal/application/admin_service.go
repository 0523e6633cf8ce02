package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/domain"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/kafka"
)

// AdminService covers the reviewer's side of the lifecycle: approving,
// rejecting, cancelling and completing bookings, plus dashboard listings.
type AdminService struct {
	bookings bookingDomain.BookingRepository
	producer EventPublisher
	logger   *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	bookings bookingDomain.BookingRepository,
	producer EventPublisher,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		bookings: bookings,
		producer: producer,
		logger:   logger,
	}
}

// ApproveRequest holds the slot assigned by the reviewer.
type ApproveRequest struct {
	SlotStart time.Time `json:"slot_start" binding:"required"`
	SlotEnd   time.Time `json:"slot_end" binding:"required"`
}

// RejectRequest holds the reviewer's rejection details.
type RejectRequest struct {
	Reason         string `json:"reason" binding:"required"`
	AlternateSlots string `json:"alternate_slots"`
}

// CancelRequest holds the reviewer's cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// Approve assigns a slot to a pending booking.
func (s *AdminService) Approve(ctx context.Context, ackID string, req ApproveRequest) (*BookingDTO, error) {
	return s.mutate(ctx, ackID, func(bk *bookingDomain.Booking) error {
		return bk.Approve(req.SlotStart, req.SlotEnd)
	})
}

// Reject declines a booking with a reason and optional alternate slots.
func (s *AdminService) Reject(ctx context.Context, ackID string, req RejectRequest) (*BookingDTO, error) {
	return s.mutate(ctx, ackID, func(bk *bookingDomain.Booking) error {
		return bk.Reject(req.Reason, req.AlternateSlots)
	})
}

// Cancel cancels a booking on the reviewer's behalf.
func (s *AdminService) Cancel(ctx context.Context, ackID string, req CancelRequest) (*BookingDTO, error) {
	return s.mutate(ctx, ackID, func(bk *bookingDomain.Booking) error {
		return bk.CancelByAdmin(req.Reason)
	})
}

// Complete marks a confirmed booking's session as held.
func (s *AdminService) Complete(ctx context.Context, ackID string) (*BookingDTO, error) {
	return s.mutate(ctx, ackID, func(bk *bookingDomain.Booking) error {
		return bk.Complete()
	})
}

// mutate loads the booking, applies the transition, persists it with
// optimistic locking and notifies the client of the new status.
func (s *AdminService) mutate(ctx context.Context, ackID string, apply func(*bookingDomain.Booking) error) (*BookingDTO, error) {
	bk, err := s.bookings.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}

	if err := apply(bk); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, bk)
	s.logger.Info("booking updated by admin",
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
		zap.String("status", string(bk.Status())),
	)

	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings returns a paginated booking list, optionally filtered by status.
func (s *AdminService) ListBookings(ctx context.Context, status string, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	var filter bookingDomain.BookingStatus
	if status != "" {
		parsed, err := bookingDomain.ParseBookingStatus(status)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid status filter: %s", status))
		}
		filter = parsed
	}

	bookings, total, err := s.bookings.ListByStatus(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GetBooking returns the full booking record for review.
func (s *AdminService) GetBooking(ctx context.Context, ackID string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetStats returns aggregate booking counts for the dashboard.
func (s *AdminService) GetStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

func (s *AdminService) publishStatusChanged(ctx context.Context, bk *bookingDomain.Booking) {
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
