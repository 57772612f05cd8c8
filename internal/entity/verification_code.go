package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CodePurpose string

const (
	EmailVerify      CodePurpose = "email_verify"
	UsernameRecovery CodePurpose = "username_recovery"
	PasswordReset    CodePurpose = "password_reset"
)

// VerificationCode holds the single active code of an account for one purpose.
// Reissuing overwrites the row; the plaintext code is never stored.
type VerificationCode struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_verification_codes_account_purpose"`
	Purpose   CodePurpose `gorm:"type:varchar(32);not null;uniqueIndex:idx_verification_codes_account_purpose"`

	CodeHash string `gorm:"type:text;not null"`

	ExpiresAt  time.Time `gorm:"not null"`
	ConsumedAt *time.Time

	CreatedAt time.Time
}

func (c *VerificationCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *VerificationCode) IsUsable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
