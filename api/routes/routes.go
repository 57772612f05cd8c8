package routes

import (
	"time"

	"studytrack/api/handler"
	"studytrack/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Health         *handler.HealthHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Health:         healthHandler,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	authRate := r.AuthRate.Middleware()
	loginRate := r.LoginRate.Middleware()

	e.POST("/check-username", r.Auth.CheckUsername, authRate)
	e.POST("/signup", r.Auth.Signup, authRate)
	e.POST("/resend-verification-code", r.Auth.ResendVerificationCode, loginRate)
	e.POST("/verify-email", r.Auth.VerifyEmail, loginRate)
	e.POST("/login", r.Auth.Login, loginRate)
	e.POST("/refresh-token", r.Auth.RefreshToken, authRate)
	e.POST("/logout", r.Auth.Logout, authRate)
	e.POST("/send-username-code", r.Auth.SendUsernameCode, loginRate)
	e.POST("/verify-username-code", r.Auth.VerifyUsernameCode, loginRate)
	e.POST("/send-password-reset-code", r.Auth.SendPasswordResetCode, loginRate)
	e.POST("/verify-password-reset-code", r.Auth.VerifyPasswordResetCode, loginRate)
	e.POST("/reset-password", r.Auth.ResetPassword, loginRate)

	e.GET("/me", r.Auth.Me, r.AuthMiddleware.RequireAuth)
	e.GET("/me/security-events", r.Auth.SecurityActivity, r.AuthMiddleware.RequireAuth)
	if r.Health != nil {
		e.GET("/healthz", r.Health.Health)
	}
}
