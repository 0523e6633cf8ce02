package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindsettler/service-booking/internal/domain"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AcknowledgementID  string          `gorm:"uniqueIndex;not null;size:20"`
	Email              string          `gorm:"index;not null;size:255"`
	Client             json.RawMessage `gorm:"type:jsonb;not null"`
	Consent            json.RawMessage `gorm:"type:jsonb;not null"`
	Status             string          `gorm:"not null;size:30;index"`
	Preference         json.RawMessage `gorm:"type:jsonb;not null"`
	PaymentMode        string          `gorm:"not null;size:10"`
	ApprovedSlotStart  *time.Time      `gorm:""`
	ApprovedSlotEnd    *time.Time      `gorm:""`
	AmountCents        *int64          `gorm:""`
	Currency           string          `gorm:"not null;size:3;default:'INR'"`
	RejectionReason    string          `gorm:"size:1000"`
	AlternateSlots     string          `gorm:"size:1000"`
	CancellationReason string          `gorm:"size:1000"`
	CancelledBy        string          `gorm:"size:10"`
	CancelledAt        *time.Time      `gorm:""`
	EmailVerifiedAt    *time.Time      `gorm:""`
	Timeline           json.RawMessage `gorm:"type:jsonb;not null"`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
//
// The one-active-booking-per-email invariant is enforced by a partial unique
// index on email over non-terminal statuses; a violation surfaces through
// gorm.ErrDuplicatedKey and is mapped to a conflict error here.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByAcknowledgementID retrieves a booking by its acknowledgement identifier.
func (r *GormBookingRepository) FindByAcknowledgementID(ctx context.Context, ackID string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := conn(ctx, r.db).Where("acknowledgement_id = ?", ackID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", ackID)
		}
		return nil, fmt.Errorf("failed to find booking by acknowledgement ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindActiveByEmail retrieves the email's current non-terminal booking, or nil
// when the email has none.
func (r *GormBookingRepository) FindActiveByEmail(ctx context.Context, email string) (*bookingDomain.Booking, error) {
	statuses := bookingDomain.ActiveStatuses()
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var model BookingModel
	err := conn(ctx, r.db).
		Where("email = ? AND status IN ?", email, values).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active booking by email: %w", err)
	}
	return toDomainBooking(&model)
}

// ListByStatus retrieves bookings in the given status with pagination. An
// empty status lists every booking.
func (r *GormBookingRepository) ListByStatus(ctx context.Context, status bookingDomain.BookingStatus, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	query := conn(ctx, r.db).Model(&BookingModel{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := conn(ctx, r.db).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("an active booking already exists for this email")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := bk.Version() - 1
	result := conn(ctx, r.db).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"approved_slot_start": model.ApprovedSlotStart,
			"approved_slot_end":   model.ApprovedSlotEnd,
			"amount_cents":        model.AmountCents,
			"currency":            model.Currency,
			"rejection_reason":    model.RejectionReason,
			"alternate_slots":     model.AlternateSlots,
			"cancellation_reason": model.CancellationReason,
			"cancelled_by":        model.CancelledBy,
			"cancelled_at":        model.CancelledAt,
			"email_verified_at":   model.EmailVerifiedAt,
			"timeline":            model.Timeline,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("an active booking already exists for this email")
		}
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	clientJSON, err := json.Marshal(bk.Client())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal client details: %w", err)
	}

	consentJSON, err := json.Marshal(bk.Consent())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal consent: %w", err)
	}

	preferenceJSON, err := json.Marshal(bk.Preference())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session preference: %w", err)
	}

	timelineJSON, err := json.Marshal(bk.Timeline())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timeline: %w", err)
	}

	return &BookingModel{
		ID:                 bk.ID(),
		AcknowledgementID:  bk.AcknowledgementID(),
		Email:              bk.Email(),
		Client:             clientJSON,
		Consent:            consentJSON,
		Status:             string(bk.Status()),
		Preference:         preferenceJSON,
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
		Timeline:           timelineJSON,
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var client bookingDomain.ClientDetails
	if err := json.Unmarshal(m.Client, &client); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client details: %w", err)
	}

	var consent bookingDomain.Consent
	if err := json.Unmarshal(m.Consent, &consent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consent: %w", err)
	}

	var preference bookingDomain.SessionPreference
	if err := json.Unmarshal(m.Preference, &preference); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session preference: %w", err)
	}

	var timeline []bookingDomain.TimelineEntry
	if err := json.Unmarshal(m.Timeline, &timeline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.AcknowledgementID,
		m.Email,
		client,
		consent,
		status,
		preference,
		bookingDomain.PaymentMode(m.PaymentMode),
		m.ApprovedSlotStart,
		m.ApprovedSlotEnd,
		m.AmountCents,
		m.Currency,
		m.RejectionReason,
		m.AlternateSlots,
		m.CancellationReason,
		bookingDomain.CancelActor(m.CancelledBy),
		m.CancelledAt,
		m.EmailVerifiedAt,
		timeline,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
