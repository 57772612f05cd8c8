package repository

import (
	"context"
	"errors"
	"time"

	"studytrack/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	err := conn(ctx, r.db).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *accountRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return conn(ctx, r.db).
		Model(&entity.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_verified": true, "verified_at": at}).
		Error
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return conn(ctx, r.db).
		Model(&entity.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash).
		Error
}

func (r *accountRepository) findOne(ctx context.Context, query string, arg any) (*entity.Account, error) {
	var account entity.Account
	err := conn(ctx, r.db).Where(query, arg).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.Account{}).Where(query, arg).Count(&count).Error
	return count > 0, err
}
