package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studytrack/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SecurityEvent struct {
	AccountID *uuid.UUID
	IPAddress *string
	Action    entity.SecurityAction
	Metadata  map[string]any
	At        time.Time
}

type SecurityLogRepository interface {
	Record(ctx context.Context, event SecurityEvent) error
	ListForAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]entity.SecurityLog, error)
	// DeleteBefore drops entries older than cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type securityLogRepository struct {
	db *gorm.DB
}

func NewSecurityLogRepository(db *gorm.DB) SecurityLogRepository {
	return &securityLogRepository{db: db}
}

func (r *securityLogRepository) Record(ctx context.Context, event SecurityEvent) error {
	entry := &entity.SecurityLog{
		AccountID: event.AccountID,
		IPAddress: event.IPAddress,
		Action:    event.Action,
		CreatedAt: event.At,
	}
	if len(event.Metadata) > 0 {
		payload, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode security log metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(payload)
	}
	return conn(ctx, r.db).Create(entry).Error
}

func (r *securityLogRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []entity.SecurityLog
	err := conn(ctx, r.db).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *securityLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("created_at < ?", cutoff).
		Delete(&entity.SecurityLog{})
	return result.RowsAffected, result.Error
}
