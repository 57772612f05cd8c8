package service

import (
	"context"
	"time"

	"studytrack/internal/entity"
	"studytrack/internal/utils"
)

type AuthConfig struct {
	EmailCodeTTL    time.Duration
	RecoveryCodeTTL time.Duration
	MailTimeout     time.Duration

	SecurityLogRetention time.Duration
}

type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email string, code string) error
	SendUsernameRecoveryEmail(ctx context.Context, email string, code string) error
	SendPasswordResetEmail(ctx context.Context, email string, code string) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	// Verify reports a mismatch as (false, nil); any other failure is an error wrapping ErrHashing.
	Verify(ctx context.Context, hash string, password string) (bool, error)
}

type TokenIssuer interface {
	IssueAccessToken(account entity.Account) (utils.IssuedToken, error)
	IssueRefreshToken(account entity.Account) (utils.IssuedToken, error)
	ParseRefreshToken(token string) (*utils.Claims, error)
	ParseRefreshTokenIgnoringExpiry(token string) (*utils.Claims, error)
}

type CodeGenerator interface {
	Generate(purpose entity.CodePurpose) (string, error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
