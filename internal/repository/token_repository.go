package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mindsettler/service-booking/internal/domain"
	tokenDomain "github.com/mindsettler/service-booking/internal/domain/token"
)

// TokenModel is the GORM model for the booking_tokens table.
type TokenModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Value             string     `gorm:"uniqueIndex;not null;size:64"`
	Kind              string     `gorm:"not null;size:20"`
	AcknowledgementID string     `gorm:"index;not null;size:20"`
	ExpiresAt         time.Time  `gorm:"not null"`
	Consumed          bool       `gorm:"not null;default:false"`
	ConsumedAt        *time.Time `gorm:""`
	CreatedAt         time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TokenModel) TableName() string {
	return "booking_tokens"
}

// GormTokenRepository is the GORM-based implementation of TokenRepository.
type GormTokenRepository struct {
	db *gorm.DB
}

// NewGormTokenRepository creates a new GormTokenRepository.
func NewGormTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// Save persists a newly minted token.
func (r *GormTokenRepository) Save(ctx context.Context, t *tokenDomain.Token) error {
	model := toTokenModel(t)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// FindByValue retrieves a token by its opaque value.
func (r *GormTokenRepository) FindByValue(ctx context.Context, value string) (*tokenDomain.Token, error) {
	var model TokenModel
	if err := conn(ctx, r.db).Where("value = ?", value).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return toDomainToken(&model), nil
}

// Consume atomically marks the token consumed. The conditional update lets
// exactly one of any number of concurrent redeemers win; losers observe zero
// affected rows and receive domain.ErrTokenAlreadyUsed.
func (r *GormTokenRepository) Consume(ctx context.Context, value string) error {
	now := time.Now().UTC()
	result := conn(ctx, r.db).
		Model(&TokenModel{}).
		Where("value = ? AND consumed = false", value).
		Updates(map[string]interface{}{
			"consumed":    true,
			"consumed_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to consume token: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := conn(ctx, r.db).Model(&TokenModel{}).Where("value = ?", value).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check token existence: %w", err)
		}
		if count == 0 {
			return domain.ErrTokenNotFound
		}
		return domain.ErrTokenAlreadyUsed
	}

	return nil
}

// --- Conversion Helpers ---

func toTokenModel(t *tokenDomain.Token) *TokenModel {
	return &TokenModel{
		ID:                t.ID(),
		Value:             t.Value(),
		Kind:              string(t.Kind()),
		AcknowledgementID: t.AcknowledgementID(),
		ExpiresAt:         t.ExpiresAt(),
		Consumed:          t.Consumed(),
		ConsumedAt:        t.ConsumedAt(),
		CreatedAt:         t.CreatedAt(),
	}
}

func toDomainToken(m *TokenModel) *tokenDomain.Token {
	return tokenDomain.ReconstructToken(
		m.ID,
		m.Value,
		tokenDomain.Kind(m.Kind),
		m.AcknowledgementID,
		m.ExpiresAt,
		m.Consumed,
		m.ConsumedAt,
		m.CreatedAt,
	)
}
