package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"studytrack/internal/entity"
	"studytrack/internal/repository"
	"studytrack/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	Purpose string
	To      string
	Code    string
}

// fakeMailer records every dispatched code and fails while err is set.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, email string, code string) error {
	return m.record("email_verify", email, code)
}

func (m *fakeMailer) SendUsernameRecoveryEmail(_ context.Context, email string, code string) error {
	return m.record("username_recovery", email, code)
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, email string, code string) error {
	return m.record("password_reset", email, code)
}

func (m *fakeMailer) record(purpose string, to string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{Purpose: purpose, To: to, Code: code})
	return nil
}

func (m *fakeMailer) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *fakeMailer) lastCode(t *testing.T, purpose string, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Purpose == purpose && m.sent[i].To == to {
			return m.sent[i].Code
		}
	}
	t.Fatalf("no %s mail sent to %s", purpose, to)
	return ""
}

type authFixture struct {
	db       *gorm.DB
	service  *AuthService
	mailer   *fakeMailer
	clock    *testClock
	accounts repository.AccountRepository
	codes    repository.VerificationCodeRepository
	tokens   repository.RefreshTokenRepository
	jwt      *utils.JWTManager
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	hasher PasswordHasher
}

func withHasher(h PasswordHasher) fixtureOption {
	return func(d *fixtureDeps) { d.hasher = h }
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&entity.Account{}, &entity.VerificationCode{}, &entity.RefreshToken{}, &entity.SecurityLog{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func newAuthFixture(t *testing.T, opts ...fixtureOption) *authFixture {
	t.Helper()

	deps := fixtureDeps{hasher: NewBcryptPasswordHasher(bcrypt.MinCost, 4)}
	for _, opt := range opts {
		opt(&deps)
	}

	db := setupTestDB(t)
	clock := newTestClock()
	mailer := &fakeMailer{}
	manager := &utils.JWTManager{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "studytrack-test",
		Now:           clock.Now,
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	accounts := repository.NewAccountRepository(db)
	codes := repository.NewVerificationCodeRepository(db)
	refreshTokens := repository.NewRefreshTokenRepository(db)

	svc := NewAuthService(
		accounts,
		codes,
		refreshTokens,
		repository.NewSecurityLogRepository(db),
		repository.NewTransactor(db),
		mailer,
		deps.hasher,
		JWTTokenIssuer{Manager: manager},
		SecureCodeGenerator{},
		clock,
		log,
		AuthConfig{EmailCodeTTL: 15 * time.Minute, RecoveryCodeTTL: 10 * time.Minute, MailTimeout: time.Second},
	)

	return &authFixture{
		db:       db,
		service:  svc,
		mailer:   mailer,
		clock:    clock,
		accounts: accounts,
		codes:    codes,
		tokens:   refreshTokens,
		jwt:      manager,
	}
}

// signupVerified registers an account and completes email verification.
func (f *authFixture) signupVerified(t *testing.T, username, email, password string) {
	t.Helper()
	ctx := context.Background()
	if err := f.service.Signup(ctx, SignupInput{Username: username, Email: email, Password: password}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	code := f.mailer.lastCode(t, "email_verify", email)
	if err := f.service.VerifyEmail(ctx, email, code); err != nil {
		t.Fatalf("verify email: %v", err)
	}
}
