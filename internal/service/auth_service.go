package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"studytrack/internal/entity"
	"studytrack/internal/repository"
	"studytrack/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Compared against when the username is unknown so both login failures cost the same.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type AuthService struct {
	accounts      repository.AccountRepository
	codes         repository.VerificationCodeRepository
	refreshTokens repository.RefreshTokenRepository
	securityLogs  repository.SecurityLogRepository
	tx            repository.Transactor

	emailSender  EmailSender
	passwordHash PasswordHasher
	tokens       TokenIssuer
	codeGen      CodeGenerator
	clock        Clock
	logger       logrus.FieldLogger
	config       AuthConfig
}

func NewAuthService(
	accounts repository.AccountRepository,
	codes repository.VerificationCodeRepository,
	refreshTokens repository.RefreshTokenRepository,
	securityLogs repository.SecurityLogRepository,
	tx repository.Transactor,
	emailSender EmailSender,
	passwordHash PasswordHasher,
	tokens TokenIssuer,
	codeGen CodeGenerator,
	clock Clock,
	logger logrus.FieldLogger,
	config AuthConfig,
) *AuthService {
	if codeGen == nil {
		codeGen = SecureCodeGenerator{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		accounts:      accounts,
		codes:         codes,
		refreshTokens: refreshTokens,
		securityLogs:  securityLogs,
		tx:            tx,
		emailSender:   emailSender,
		passwordHash:  passwordHash,
		tokens:        tokens,
		codeGen:       codeGen,
		clock:         clock,
		logger:        logger,
		config:        config,
	}
}

func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	username = utils.NormalizeUsername(username)
	if username == "" {
		return false, ErrValidation
	}
	exists, err := s.accounts.UsernameExists(ctx, username)
	if err != nil {
		return false, storageError(err)
	}
	return !exists, nil
}

// Signup creates an unverified account and mails an email verification code.
// A failed dispatch leaves the account in place and returns ErrMailDispatchFailed.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) error {
	username := utils.NormalizeUsername(input.Username)
	email := utils.NormalizeEmail(input.Email)
	if username == "" || email == "" || !validPassword(input.Password) {
		return ErrValidation
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return err
	}

	hash, err := s.passwordHash.Hash(ctx, input.Password)
	if err != nil {
		return err
	}

	account := &entity.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	var code string
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		issued, err := s.issueCode(ctx, account.ID, entity.EmailVerify)
		if err != nil {
			return err
		}
		code = issued
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent signup.
		if err := s.ensureAvailable(ctx, username, email); err != nil {
			return err
		}
		return ErrUsernameTaken
	}
	if err != nil {
		return storageError(err)
	}

	s.logSecurity(ctx, &account.ID, input.IPAddress, entity.ActionSignup, map[string]any{"username": username})

	return s.dispatch(ctx, "email_verify", func(ctx context.Context) error {
		return s.emailSender.SendVerificationEmail(ctx, email, code)
	})
}

func (s *AuthService) ResendVerificationCode(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}
	if account.IsVerified {
		return ErrAlreadyVerified
	}

	code, err := s.issueCode(ctx, account.ID, entity.EmailVerify)
	if err != nil {
		return storageError(err)
	}
	return s.dispatch(ctx, "email_verify", func(ctx context.Context) error {
		return s.emailSender.SendVerificationEmail(ctx, account.Email, code)
	})
}

// VerifyEmail consumes the email verification code and marks the account verified
// in one transaction.
func (s *AuthService) VerifyEmail(ctx context.Context, email string, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidOrExpiredCode
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrInvalidOrExpiredCode
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		consumed, err := s.codes.Consume(ctx, account.ID, entity.EmailVerify, utils.HashToken(code), now)
		if err != nil {
			return storageError(err)
		}
		if !consumed {
			return ErrInvalidOrExpiredCode
		}
		if err := s.accounts.MarkVerified(ctx, account.ID, now); err != nil {
			return storageError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logSecurity(ctx, &account.ID, nil, entity.ActionEmailVerified, nil)
	return nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	username := utils.NormalizeUsername(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrValidation
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, storageError(err)
	}
	if account == nil {
		_, _ = s.passwordHash.Verify(ctx, dummyPasswordHash, input.Password)
		s.logSecurity(ctx, nil, input.IPAddress, entity.ActionLoginFailed, map[string]any{"username": username})
		return nil, ErrInvalidCredentials
	}

	ok, err := s.passwordHash.Verify(ctx, account.PasswordHash, input.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logSecurity(ctx, &account.ID, input.IPAddress, entity.ActionLoginFailed, map[string]any{"username": username})
		return nil, ErrInvalidCredentials
	}

	if !account.IsVerified {
		return nil, ErrNotVerified
	}

	result, err := s.issueTokenPair(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logSecurity(ctx, &account.ID, input.IPAddress, entity.ActionLoginSuccess, nil)
	return result, nil
}

// RefreshToken exchanges a registered, unrevoked refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AccessTokenResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	active, err := s.refreshTokens.IsActive(ctx, tokenID, s.now())
	if err != nil {
		return nil, storageError(err)
	}
	if !active {
		return nil, ErrTokenInvalid
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, storageError(err)
	}
	if account == nil {
		return nil, ErrTokenInvalid
	}

	access, err := s.tokens.IssueAccessToken(*account)
	if err != nil {
		return nil, err
	}
	return &AccessTokenResult{
		AccessToken: access.Token,
		ExpiresIn:   int64(access.TTL.Seconds()),
	}, nil
}

// Logout revokes the refresh token. Unknown, expired, malformed or already revoked
// tokens are accepted silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, ipAddress *string) error {
	claims, err := s.tokens.ParseRefreshTokenIgnoringExpiry(refreshToken)
	if err != nil {
		return nil
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.refreshTokens.Revoke(ctx, tokenID, expiresAt); err != nil {
		return storageError(err)
	}

	if accountID, err := uuid.Parse(claims.AccountID); err == nil {
		s.logSecurity(ctx, &accountID, ipAddress, entity.ActionLogout, nil)
	}
	return nil
}

func (s *AuthService) SendUsernameVerificationCode(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	code, err := s.issueCode(ctx, account.ID, entity.UsernameRecovery)
	if err != nil {
		return storageError(err)
	}
	return s.dispatch(ctx, "username_recovery", func(ctx context.Context) error {
		return s.emailSender.SendUsernameRecoveryEmail(ctx, account.Email, code)
	})
}

// VerifyUsernameCode consumes the recovery code and returns the account's username.
func (s *AuthService) VerifyUsernameCode(ctx context.Context, email string, code string) (string, error) {
	code = normalizeHexCode(code)
	if code == "" {
		return "", ErrInvalidOrExpiredCode
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", ErrInvalidOrExpiredCode
	}

	consumed, err := s.codes.Consume(ctx, account.ID, entity.UsernameRecovery, utils.HashToken(code), s.now())
	if err != nil {
		return "", storageError(err)
	}
	if !consumed {
		return "", ErrInvalidOrExpiredCode
	}

	s.logSecurity(ctx, &account.ID, nil, entity.ActionUsernameRecovered, nil)
	return account.Username, nil
}

func (s *AuthService) SendPasswordResetCode(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	code, err := s.issueCode(ctx, account.ID, entity.PasswordReset)
	if err != nil {
		return storageError(err)
	}
	return s.dispatch(ctx, "password_reset", func(ctx context.Context) error {
		return s.emailSender.SendPasswordResetEmail(ctx, account.Email, code)
	})
}

// VerifyPasswordResetCode checks the reset code without consuming it; ResetPassword
// consumes it.
func (s *AuthService) VerifyPasswordResetCode(ctx context.Context, email string, code string) error {
	_, err := s.checkResetCode(ctx, email, code)
	return err
}

func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if !validPassword(input.NewPassword) {
		return ErrValidation
	}
	account, err := s.checkResetCode(ctx, input.Email, input.Code)
	if err != nil {
		return err
	}

	hash, err := s.passwordHash.Hash(ctx, input.NewPassword)
	if err != nil {
		return err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		consumed, err := s.codes.Consume(ctx, account.ID, entity.PasswordReset, utils.HashToken(normalizeHexCode(input.Code)), s.now())
		if err != nil {
			return storageError(err)
		}
		if !consumed {
			return ErrInvalidOrExpiredCode
		}
		if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
			return storageError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.refreshTokens.RevokeAllForAccount(ctx, account.ID); err != nil {
		s.logger.WithError(err).WithField("account_id", account.ID).Error("revoke refresh tokens after password reset")
	}
	s.logSecurity(ctx, &account.ID, nil, entity.ActionPasswordReset, nil)
	return nil
}

func (s *AuthService) CurrentAccount(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, storageError(err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// SecurityActivity returns the account's most recent security events, newest first.
func (s *AuthService) SecurityActivity(ctx context.Context, accountID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if s.securityLogs == nil {
		return nil, nil
	}
	logs, err := s.securityLogs.ListForAccount(ctx, accountID, limit)
	if err != nil {
		return nil, storageError(err)
	}
	return logs, nil
}

// CleanupExpired drops expired verification codes, expired refresh token records and
// security log entries past the retention window.
func (s *AuthService) CleanupExpired(ctx context.Context) error {
	now := s.now()
	codes, err := s.codes.DeleteExpired(ctx, now)
	if err != nil {
		return storageError(err)
	}
	tokens, err := s.refreshTokens.DeleteExpired(ctx, now)
	if err != nil {
		return storageError(err)
	}
	var logs int64
	if s.securityLogs != nil {
		logs, err = s.securityLogs.DeleteBefore(ctx, now.Add(-s.securityLogRetention()))
		if err != nil {
			return storageError(err)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"codes":          codes,
		"refresh_tokens": tokens,
		"security_logs":  logs,
	}).Debug("expired auth records removed")
	return nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username string, email string) error {
	taken, err := s.accounts.UsernameExists(ctx, username)
	if err != nil {
		return storageError(err)
	}
	if taken {
		return ErrUsernameTaken
	}
	taken, err = s.accounts.EmailExists(ctx, email)
	if err != nil {
		return storageError(err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (s *AuthService) checkResetCode(ctx context.Context, email string, code string) (*entity.Account, error) {
	code = normalizeHexCode(code)
	if code == "" {
		return nil, ErrInvalidOrExpiredCode
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidOrExpiredCode
	}

	stored, err := s.codes.Find(ctx, account.ID, entity.PasswordReset)
	if err != nil {
		return nil, storageError(err)
	}
	if stored == nil || !stored.IsUsable(s.now()) {
		return nil, ErrInvalidOrExpiredCode
	}
	if subtle.ConstantTimeCompare([]byte(stored.CodeHash), []byte(utils.HashToken(code))) != 1 {
		return nil, ErrInvalidOrExpiredCode
	}
	return account, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*entity.Account, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrValidation
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, storageError(err)
	}
	return account, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, account *entity.Account) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(*account)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(*account)
	if err != nil {
		return nil, err
	}
	tokenID, err := uuid.Parse(refresh.ID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokens.Register(ctx, tokenID, account.ID, refresh.ExpiresAt); err != nil {
		return nil, storageError(err)
	}

	return &TokenPair{
		AccessToken:      access.Token,
		ExpiresIn:        int64(access.TTL.Seconds()),
		RefreshToken:     refresh.Token,
		RefreshExpiresIn: int64(refresh.TTL.Seconds()),
	}, nil
}

// issueCode generates a code and stores its hash, replacing any earlier code for the
// same purpose. It returns the plaintext code for dispatch.
func (s *AuthService) issueCode(ctx context.Context, accountID uuid.UUID, purpose entity.CodePurpose) (string, error) {
	code, err := s.codeGen.Generate(purpose)
	if err != nil {
		return "", err
	}
	now := s.now()
	verification := &entity.VerificationCode{
		AccountID: accountID,
		Purpose:   purpose,
		CodeHash:  utils.HashToken(code),
		ExpiresAt: now.Add(s.codeTTL(purpose)),
		CreatedAt: now,
	}
	if err := s.codes.Upsert(ctx, verification); err != nil {
		return "", err
	}
	return code, nil
}

func (s *AuthService) dispatch(ctx context.Context, purpose string, send func(ctx context.Context) error) error {
	if s.emailSender == nil {
		return nil
	}
	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout())
	defer cancel()

	if err := send(mailCtx); err != nil {
		s.logger.WithError(err).WithField("purpose", purpose).Warn("mail dispatch failed")
		return fmt.Errorf("%w: %w", ErrMailDispatchFailed, err)
	}
	return nil
}

func (s *AuthService) logSecurity(
	ctx context.Context,
	accountID *uuid.UUID,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	if s.securityLogs == nil {
		return
	}
	event := repository.SecurityEvent{
		AccountID: accountID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  metadata,
		At:        s.now(),
	}
	if err := s.securityLogs.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("write security log")
	}
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func (s *AuthService) codeTTL(purpose entity.CodePurpose) time.Duration {
	if purpose == entity.EmailVerify {
		if s.config.EmailCodeTTL > 0 {
			return s.config.EmailCodeTTL
		}
		return 15 * time.Minute
	}
	if s.config.RecoveryCodeTTL > 0 {
		return s.config.RecoveryCodeTTL
	}
	return 10 * time.Minute
}

func (s *AuthService) securityLogRetention() time.Duration {
	if s.config.SecurityLogRetention > 0 {
		return s.config.SecurityLogRetention
	}
	return 90 * 24 * time.Hour
}

func (s *AuthService) mailTimeout() time.Duration {
	if s.config.MailTimeout > 0 {
		return s.config.MailTimeout
	}
	return 10 * time.Second
}

func validPassword(password string) bool {
	return strings.TrimSpace(password) != "" && len(password) <= MaxPasswordBytes
}

// Recovery codes are uppercase hex; accept them in any case.
func normalizeHexCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
