package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"studytrack/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodeRepository_UpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	accounts := NewAccountRepository(db)
	codes := NewVerificationCodeRepository(db)
	ctx := context.Background()
	account := createAccount(t, accounts, "alice", "a@x.com")
	now := fixedNow()

	require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
		AccountID: account.ID, Purpose: entity.PasswordReset, CodeHash: "first", ExpiresAt: now.Add(10 * time.Minute),
	}))
	consumed, err := codes.Consume(ctx, account.ID, entity.PasswordReset, "first", now)
	require.NoError(t, err)
	require.True(t, consumed)

	require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
		AccountID: account.ID, Purpose: entity.PasswordReset, CodeHash: "second", ExpiresAt: now.Add(10 * time.Minute),
	}))

	var count int64
	require.NoError(t, db.Model(&entity.VerificationCode{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := codes.Find(ctx, account.ID, entity.PasswordReset)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "second", stored.CodeHash)
	assert.Nil(t, stored.ConsumedAt)
	assert.True(t, stored.IsUsable(now))
}

func TestVerificationCodeRepository_PurposesAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, NewAccountRepository(db), "alice", "a@x.com")
	codes := NewVerificationCodeRepository(db)
	ctx := context.Background()
	now := fixedNow()

	for _, purpose := range []entity.CodePurpose{entity.EmailVerify, entity.UsernameRecovery} {
		require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
			AccountID: account.ID, Purpose: purpose, CodeHash: string(purpose), ExpiresAt: now.Add(time.Minute),
		}))
	}

	consumed, err := codes.Consume(ctx, account.ID, entity.EmailVerify, string(entity.UsernameRecovery), now)
	require.NoError(t, err)
	assert.False(t, consumed)

	consumed, err = codes.Consume(ctx, account.ID, entity.EmailVerify, string(entity.EmailVerify), now)
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestVerificationCodeRepository_Consume(t *testing.T) {
	now := fixedNow()

	tests := []struct {
		name      string
		expiresAt time.Time
		hash      string
		at        time.Time
		want      bool
	}{
		{name: "valid", expiresAt: now.Add(time.Minute), hash: "h", at: now, want: true},
		{name: "wrong hash", expiresAt: now.Add(time.Minute), hash: "other", at: now, want: false},
		{name: "expired", expiresAt: now.Add(time.Minute), hash: "h", at: now.Add(2 * time.Minute), want: false},
		{name: "exactly at expiry", expiresAt: now, hash: "h", at: now, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			account := createAccount(t, NewAccountRepository(db), "alice", "a@x.com")
			codes := NewVerificationCodeRepository(db)
			ctx := context.Background()

			require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
				AccountID: account.ID, Purpose: entity.EmailVerify, CodeHash: "h", ExpiresAt: tt.expiresAt,
			}))

			consumed, err := codes.Consume(ctx, account.ID, entity.EmailVerify, tt.hash, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, consumed)
		})
	}
}

func TestVerificationCodeRepository_ConsumeOnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, NewAccountRepository(db), "alice", "a@x.com")
	codes := NewVerificationCodeRepository(db)
	ctx := context.Background()
	now := fixedNow()

	require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
		AccountID: account.ID, Purpose: entity.EmailVerify, CodeHash: "h", ExpiresAt: now.Add(time.Minute),
	}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumed, err := codes.Consume(ctx, account.ID, entity.EmailVerify, "h", now)
			assert.NoError(t, err)
			if consumed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestVerificationCodeRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, NewAccountRepository(db), "alice", "a@x.com")
	other := createAccount(t, NewAccountRepository(db), "bob", "b@x.com")
	codes := NewVerificationCodeRepository(db)
	ctx := context.Background()
	now := fixedNow()

	require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
		AccountID: account.ID, Purpose: entity.EmailVerify, CodeHash: "old", ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, codes.Upsert(ctx, &entity.VerificationCode{
		AccountID: other.ID, Purpose: entity.EmailVerify, CodeHash: "fresh", ExpiresAt: now.Add(time.Minute),
	}))

	deleted, err := codes.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := codes.Find(ctx, other.ID, entity.EmailVerify)
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}
