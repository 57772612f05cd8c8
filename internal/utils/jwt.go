package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

const (
	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// JWTManager signs access and refresh tokens with separate secrets so that
// neither secret can forge the other kind.
type JWTManager struct {
	AccessSecret    []byte
	RefreshSecret   []byte
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Now             func() time.Time
}

type Claims struct {
	AccountID string    `json:"sub"`
	Username  string    `json:"username"`
	Kind      TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
	TTL       time.Duration
}

func (m JWTManager) IssueAccessToken(accountID string, username string) (IssuedToken, error) {
	return m.issue(AccessToken, accountID, username)
}

func (m JWTManager) IssueRefreshToken(accountID string, username string) (IssuedToken, error) {
	return m.issue(RefreshToken, accountID, username)
}

func (m JWTManager) ParseAccessToken(tokenString string) (*Claims, error) {
	return m.parse(AccessToken, tokenString, true)
}

func (m JWTManager) ParseRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(RefreshToken, tokenString, true)
}

// ParseRefreshTokenIgnoringExpiry checks the signature and kind only. Logout uses it
// so an expired token is still recognised.
func (m JWTManager) ParseRefreshTokenIgnoringExpiry(tokenString string) (*Claims, error) {
	return m.parse(RefreshToken, tokenString, false)
}

func (m JWTManager) issue(kind TokenKind, accountID string, username string) (IssuedToken, error) {
	secret, ttl := m.settings(kind)
	if len(secret) == 0 {
		return IssuedToken{}, ErrInvalidToken
	}
	now := m.now()
	expiresAt := now.Add(ttl)
	id := uuid.NewString()
	claims := Claims{
		AccountID: accountID,
		Username:  username,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    m.Issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, ID: id, ExpiresAt: expiresAt, TTL: ttl}, nil
}

func (m JWTManager) parse(kind TokenKind, tokenString string, checkExpiry bool) (*Claims, error) {
	secret, _ := m.settings(kind)
	if len(secret) == 0 || tokenString == "" {
		return nil, ErrInvalidToken
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if !checkExpiry {
		options = append(options, jwt.WithoutClaimsValidation())
	}
	if m.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, options...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Kind != kind || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m JWTManager) settings(kind TokenKind) ([]byte, time.Duration) {
	if kind == RefreshToken {
		ttl := m.RefreshTokenTTL
		if ttl == 0 {
			ttl = defaultRefreshTokenTTL
		}
		return m.RefreshSecret, ttl
	}
	ttl := m.AccessTokenTTL
	if ttl == 0 {
		ttl = defaultAccessTokenTTL
	}
	return m.AccessSecret, ttl
}

func (m JWTManager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}
