package repository

import (
	"context"
	"errors"
	"time"

	"studytrack/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationCodeRepository interface {
	// Upsert replaces any existing code for the same account and purpose.
	Upsert(ctx context.Context, code *entity.VerificationCode) error
	Find(ctx context.Context, accountID uuid.UUID, purpose entity.CodePurpose) (*entity.VerificationCode, error)
	// Consume marks the code used if it matches, is unconsumed and unexpired at now.
	// It reports whether this call performed the consumption.
	Consume(ctx context.Context, accountID uuid.UUID, purpose entity.CodePurpose, codeHash string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

func (r *verificationCodeRepository) Upsert(ctx context.Context, code *entity.VerificationCode) error {
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "purpose"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "consumed_at", "created_at"}),
		}).
		Create(code).Error
}

func (r *verificationCodeRepository) Find(
	ctx context.Context,
	accountID uuid.UUID,
	purpose entity.CodePurpose,
) (*entity.VerificationCode, error) {
	var code entity.VerificationCode
	err := conn(ctx, r.db).
		Where("account_id = ? AND purpose = ?", accountID, purpose).
		First(&code).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *verificationCodeRepository) Consume(
	ctx context.Context,
	accountID uuid.UUID,
	purpose entity.CodePurpose,
	codeHash string,
	now time.Time,
) (bool, error) {
	result := conn(ctx, r.db).
		Model(&entity.VerificationCode{}).
		Where(`
			account_id = ? AND
			purpose = ? AND
			code_hash = ? AND
			consumed_at IS NULL AND
			expires_at > ?
		`, accountID, purpose, codeHash, now).
		Update("consumed_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *verificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("expires_at < ? OR consumed_at IS NOT NULL", now).
		Delete(&entity.VerificationCode{})
	return result.RowsAffected, result.Error
}
