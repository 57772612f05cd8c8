package repository

import (
	"context"
	"time"

	"studytrack/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenRepository is the server-side registry of issued refresh tokens.
type RefreshTokenRepository interface {
	Register(ctx context.Context, tokenID uuid.UUID, accountID uuid.UUID, expiresAt time.Time) error
	IsActive(ctx context.Context, tokenID uuid.UUID, now time.Time) (bool, error)
	// Revoke is idempotent; revoking an unknown or already revoked token is not an error.
	Revoke(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) error
	RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Register(ctx context.Context, tokenID uuid.UUID, accountID uuid.UUID, expiresAt time.Time) error {
	return conn(ctx, r.db).Create(&entity.RefreshToken{
		ID:        tokenID,
		AccountID: accountID,
		ExpiresAt: expiresAt,
	}).Error
}

func (r *refreshTokenRepository) IsActive(ctx context.Context, tokenID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&entity.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", tokenID, now).
		Count(&count).Error
	return count > 0, err
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, _ time.Time) error {
	now := time.Now().UTC()
	return conn(ctx, r.db).
		Model(&entity.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", &now).
		Error
}

func (r *refreshTokenRepository) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	now := time.Now().UTC()
	return conn(ctx, r.db).
		Model(&entity.RefreshToken{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", &now).
		Error
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("expires_at < ?", now).
		Delete(&entity.RefreshToken{})
	return result.RowsAffected, result.Error
}
