package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken records an issued refresh token by its jti so it can be revoked.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`

	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time

	CreatedAt time.Time
}
