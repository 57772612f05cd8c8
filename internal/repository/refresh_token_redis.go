package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	refreshStatusActive  = "active"
	refreshStatusRevoked = "revoked"
)

type redisRefreshTokenRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRefreshTokenRepository keeps the registry in Redis. Entries expire with
// their token, so DeleteExpired has nothing to do.
func NewRedisRefreshTokenRepository(client *redis.Client) RefreshTokenRepository {
	return &redisRefreshTokenRepository{client: client, prefix: "refresh:"}
}

func (r *redisRefreshTokenRepository) tokenKey(tokenID uuid.UUID) string {
	return r.prefix + tokenID.String()
}

func (r *redisRefreshTokenRepository) accountKey(accountID uuid.UUID) string {
	return r.prefix + "account:" + accountID.String()
}

func (r *redisRefreshTokenRepository) Register(ctx context.Context, tokenID uuid.UUID, accountID uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(tokenID), refreshStatusActive, ttl)
		pipe.SAdd(ctx, r.accountKey(accountID), tokenID.String())
		pipe.Expire(ctx, r.accountKey(accountID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register refresh token: %w", err)
	}
	return nil
}

func (r *redisRefreshTokenRepository) IsActive(ctx context.Context, tokenID uuid.UUID, _ time.Time) (bool, error) {
	status, err := r.client.Get(ctx, r.tokenKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == refreshStatusActive, nil
}

func (r *redisRefreshTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.client.Del(ctx, r.tokenKey(tokenID)).Err()
	}
	return r.client.Set(ctx, r.tokenKey(tokenID), refreshStatusRevoked, ttl).Err()
}

func (r *redisRefreshTokenRepository) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	ids, err := r.client.SMembers(ctx, r.accountKey(accountID)).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		key := r.prefix + id
		ttl, err := r.client.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			continue
		}
		if err := r.client.Set(ctx, key, refreshStatusRevoked, ttl).Err(); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, r.accountKey(accountID)).Err()
}

func (r *redisRefreshTokenRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
