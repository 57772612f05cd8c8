package middleware

import (
	"net/http"
	"strings"

	"studytrack/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AuthMiddleware struct {
	JWT *utils.JWTManager
}

// RequireAuth answers 403 when no bearer token is presented and 401 when the
// token does not verify. On success the account id and username are set on the context.
func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractBearerToken(c.Request())
		if token == "" {
			return echo.NewHTTPError(http.StatusForbidden, "access token required")
		}
		if m.JWT == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		claims, err := m.JWT.ParseAccessToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		SetAuthContext(c, accountID, claims.Username)
		return next(c)
	}
}

func extractBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
