package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
)

// Config holds process configuration read from the environment and an optional .env file.
type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	RunMigrations bool
	LogLevel      string

	AccessSecret    string
	RefreshSecret   string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	EmailCodeTTL    time.Duration
	RecoveryCodeTTL time.Duration

	SecurityLogRetention time.Duration

	MailTimeout  time.Duration
	ResendAPIKey string
	MailFrom     string

	RefreshStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BcryptCost  int
	HashWorkers int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "studytrack")
	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("EMAIL_CODE_TTL", "15m")
	v.SetDefault("RECOVERY_CODE_TTL", "10m")
	v.SetDefault("SECURITY_LOG_RETENTION", "2160h")
	v.SetDefault("MAIL_TIMEOUT", "10s")
	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("REFRESH_STORE", RefreshStorePostgres)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("BCRYPT_COST", 0)
	v.SetDefault("HASH_WORKERS", runtime.NumCPU())
	v.AutomaticEnv()

	cfg := &Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RunMigrations:   v.GetBool("RUN_MIGRATIONS"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		AccessSecret:    v.GetString("JWT_ACCESS_SECRET"),
		RefreshSecret:   v.GetString("JWT_REFRESH_SECRET"),
		JWTIssuer:       v.GetString("JWT_ISSUER"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		EmailCodeTTL:    v.GetDuration("EMAIL_CODE_TTL"),
		RecoveryCodeTTL: v.GetDuration("RECOVERY_CODE_TTL"),
		MailTimeout:     v.GetDuration("MAIL_TIMEOUT"),

		SecurityLogRetention: v.GetDuration("SECURITY_LOG_RETENTION"),

		ResendAPIKey:    v.GetString("RESEND_API_KEY"),
		MailFrom:        v.GetString("MAIL_FROM"),
		RefreshStore:    strings.ToLower(strings.TrimSpace(v.GetString("REFRESH_STORE"))),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		HashWorkers:     v.GetInt("HASH_WORKERS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	switch c.RefreshStore {
	case RefreshStorePostgres:
	case RefreshStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when REFRESH_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REFRESH_STORE %q", c.RefreshStore))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.HashWorkers < 1 {
		c.HashWorkers = 1
	}
	return errors.Join(errs...)
}
