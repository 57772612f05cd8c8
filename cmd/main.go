package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studytrack/api/handler"
	apiMiddleware "studytrack/api/middleware"
	"studytrack/api/routes"
	"studytrack/config"
	"studytrack/internal/repository"
	"studytrack/internal/service"
	"studytrack/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cleanupInterval = 30 * time.Minute

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectionDb(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database unavailable")
	}
	defer func() {
		if err := config.CloseDb(db); err != nil {
			logger.WithError(err).Warn("close database")
		}
	}()
	if cfg.RunMigrations {
		if err := config.Migrate(ctx, db); err != nil {
			logger.WithError(err).Fatal("migrations failed")
		}
	}

	var refreshRepo repository.RefreshTokenRepository
	switch cfg.RefreshStore {
	case config.RefreshStoreRedis:
		var client *redis.Client
		client, err = config.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.WithError(err).Fatal("redis unavailable")
		}
		defer func() { _ = client.Close() }()
		refreshRepo = repository.NewRedisRefreshTokenRepository(client)
	default:
		refreshRepo = repository.NewRefreshTokenRepository(db)
	}

	jwtManager := &utils.JWTManager{
		AccessSecret:    []byte(cfg.AccessSecret),
		RefreshSecret:   []byte(cfg.RefreshSecret),
		Issuer:          cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	var emailSender service.EmailSender
	if cfg.ResendAPIKey != "" && cfg.MailFrom != "" {
		emailSender = service.NewResendEmailSender(cfg.ResendAPIKey, cfg.MailFrom)
	} else {
		logger.Warn("RESEND_API_KEY or MAIL_FROM not set, emails will only be logged")
		emailSender = service.LogEmailSender{Logger: logger}
	}

	authService := service.NewAuthService(
		repository.NewAccountRepository(db),
		repository.NewVerificationCodeRepository(db),
		refreshRepo,
		repository.NewSecurityLogRepository(db),
		repository.NewTransactor(db),
		emailSender,
		service.NewBcryptPasswordHasher(cfg.BcryptCost, cfg.HashWorkers),
		service.JWTTokenIssuer{Manager: jwtManager},
		service.SecureCodeGenerator{},
		service.RealClock{},
		logger,
		service.AuthConfig{
			EmailCodeTTL:    cfg.EmailCodeTTL,
			RecoveryCodeTTL: cfg.RecoveryCodeTTL,
			MailTimeout:     cfg.MailTimeout,

			SecurityLogRetention: cfg.SecurityLogRetention,
		},
	)

	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("database handle unavailable")
	}

	authHandler := handler.NewAuthHandler(authService, validator.New(), logger)
	healthHandler := &handler.HealthHandler{DB: sqlDB, Logger: logger}

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestID())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":     v.Status,
				"method":     v.Method,
				"uri":        v.URI,
				"ip":         v.RemoteIP,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: jwtManager}
	router := routes.NewRouter(app, authHandler, healthHandler, authMiddleware)
	router.AuthRate.Logger = logger
	router.LoginRate.Logger = logger
	router.RegisterRoutes()

	go runCleanup(ctx, authService, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// runCleanup periodically drops expired verification codes and refresh token records.
func runCleanup(ctx context.Context, svc *service.AuthService, logger logrus.FieldLogger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.CleanupExpired(ctx); err != nil {
				logger.WithError(err).Warn("cleanup of expired auth records failed")
			}
		}
	}
}
