package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SecurityAction string

const (
	ActionSignup            SecurityAction = "signup"
	ActionEmailVerified     SecurityAction = "email_verified"
	ActionLoginSuccess      SecurityAction = "login_success"
	ActionLoginFailed       SecurityAction = "login_failed"
	ActionLogout            SecurityAction = "logout"
	ActionUsernameRecovered SecurityAction = "username_recovered"
	ActionPasswordReset     SecurityAction = "password_reset"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	AccountID *uuid.UUID `gorm:"type:uuid;index"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:varchar(32);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}

func (l *SecurityLog) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
