package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindsettler/service-booking/internal/domain"
	paymentDomain "github.com/mindsettler/service-booking/internal/domain/payment"
)

// PaymentSessionModel is the GORM model for the payment_sessions table.
type PaymentSessionModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PaymentReference  string     `gorm:"uniqueIndex;not null;size:20"`
	AcknowledgementID string     `gorm:"index;not null;size:20"`
	AmountCents       int64      `gorm:"not null"`
	Currency          string     `gorm:"not null;size:3"`
	Status            string     `gorm:"not null;size:20"`
	FailureReason     string     `gorm:"size:500"`
	CompletedAt       *time.Time `gorm:""`
	CreatedAt         time.Time  `gorm:"not null"`
	UpdatedAt         time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PaymentSessionModel) TableName() string {
	return "payment_sessions"
}

// GormPaymentSessionRepository is the GORM-based implementation of
// SessionRepository.
//
// A partial unique index on acknowledgement_id over status = 'INITIATED'
// keeps concurrent initiations from creating two open sessions for the same
// booking; violations surface as gorm.ErrDuplicatedKey.
type GormPaymentSessionRepository struct {
	db *gorm.DB
}

// NewGormPaymentSessionRepository creates a new GormPaymentSessionRepository.
func NewGormPaymentSessionRepository(db *gorm.DB) *GormPaymentSessionRepository {
	return &GormPaymentSessionRepository{db: db}
}

// Save persists a new session.
func (r *GormPaymentSessionRepository) Save(ctx context.Context, s *paymentDomain.Session) error {
	model := toSessionModel(s)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("a payment session is already open for this booking")
		}
		return fmt.Errorf("failed to save payment session: %w", err)
	}
	return nil
}

// FindByReference retrieves a session by its payment reference.
func (r *GormPaymentSessionRepository) FindByReference(ctx context.Context, reference string) (*paymentDomain.Session, error) {
	var model PaymentSessionModel
	if err := conn(ctx, r.db).Where("payment_reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PaymentSession", reference)
		}
		return nil, fmt.Errorf("failed to find payment session: %w", err)
	}
	return toDomainSession(&model), nil
}

// FindInitiatedByAcknowledgementID retrieves the booking's currently INITIATED
// session, or nil when there is none.
func (r *GormPaymentSessionRepository) FindInitiatedByAcknowledgementID(ctx context.Context, ackID string) (*paymentDomain.Session, error) {
	var model PaymentSessionModel
	err := conn(ctx, r.db).
		Where("acknowledgement_id = ? AND status = ?", ackID, string(paymentDomain.SessionInitiated)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find initiated payment session: %w", err)
	}
	return toDomainSession(&model), nil
}

// Update persists a settlement. The status guard in the WHERE clause makes
// settling first-writer-wins under concurrent completion and failure.
func (r *GormPaymentSessionRepository) Update(ctx context.Context, s *paymentDomain.Session) error {
	model := toSessionModel(s)
	result := conn(ctx, r.db).
		Model(&PaymentSessionModel{}).
		Where("id = ? AND status = ?", model.ID, string(paymentDomain.SessionInitiated)).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"failure_reason": model.FailureReason,
			"completed_at":   model.CompletedAt,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update payment session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("payment session already settled")
	}

	return nil
}

// --- Conversion Helpers ---

func toSessionModel(s *paymentDomain.Session) *PaymentSessionModel {
	return &PaymentSessionModel{
		ID:                s.ID(),
		PaymentReference:  s.PaymentReference(),
		AcknowledgementID: s.AcknowledgementID(),
		AmountCents:       s.AmountCents(),
		Currency:          s.Currency(),
		Status:            string(s.Status()),
		FailureReason:     s.FailureReason(),
		CompletedAt:       s.CompletedAt(),
		CreatedAt:         s.CreatedAt(),
		UpdatedAt:         s.UpdatedAt(),
	}
}

func toDomainSession(m *PaymentSessionModel) *paymentDomain.Session {
	return paymentDomain.ReconstructSession(
		m.ID,
		m.PaymentReference,
		m.AcknowledgementID,
		m.AmountCents,
		m.Currency,
		paymentDomain.SessionStatus(m.Status),
		m.FailureReason,
		m.CompletedAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
