package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.EmailCodeTTL)
	assert.Equal(t, 10*time.Minute, cfg.RecoveryCodeTTL)
	assert.Equal(t, 10*time.Second, cfg.MailTimeout)
	assert.Equal(t, 90*24*time.Hour, cfg.SecurityLogRetention)
	assert.Equal(t, RefreshStorePostgres, cfg.RefreshStore)
	assert.GreaterOrEqual(t, cfg.HashWorkers, 1)
}

func TestLoadOverrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("REFRESH_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HASH_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, RefreshStoreRedis, cfg.RefreshStore)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.HashWorkers)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET is required")
	assert.Contains(t, err.Error(), "JWT_REFRESH_SECRET is required")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			AccessSecret:    "a",
			RefreshSecret:   "b",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: time.Hour,
			RefreshStore:    RefreshStorePostgres,
			HashWorkers:     1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "equal secrets", mutate: func(c *Config) { c.RefreshSecret = c.AccessSecret }, wantErr: "must differ"},
		{name: "unknown store", mutate: func(c *Config) { c.RefreshStore = "memcached" }, wantErr: "unknown REFRESH_STORE"},
		{name: "redis without addr", mutate: func(c *Config) { c.RefreshStore = RefreshStoreRedis }, wantErr: "REDIS_ADDR is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.AccessTokenTTL = 0 }, wantErr: "token TTLs must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateClampsHashWorkers(t *testing.T) {
	cfg := Config{
		AccessSecret:    "a",
		RefreshSecret:   "b",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Hour,
		RefreshStore:    RefreshStorePostgres,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.HashWorkers)
}
