package service

import (
	"studytrack/internal/entity"
	"studytrack/internal/utils"
)

type JWTTokenIssuer struct {
	Manager *utils.JWTManager
}

func (j JWTTokenIssuer) IssueAccessToken(account entity.Account) (utils.IssuedToken, error) {
	if j.Manager == nil {
		return utils.IssuedToken{}, ErrTokenInvalid
	}
	return j.Manager.IssueAccessToken(account.ID.String(), account.Username)
}

func (j JWTTokenIssuer) IssueRefreshToken(account entity.Account) (utils.IssuedToken, error) {
	if j.Manager == nil {
		return utils.IssuedToken{}, ErrTokenInvalid
	}
	return j.Manager.IssueRefreshToken(account.ID.String(), account.Username)
}

func (j JWTTokenIssuer) ParseRefreshToken(token string) (*utils.Claims, error) {
	if j.Manager == nil {
		return nil, ErrTokenInvalid
	}
	claims, err := j.Manager.ParseRefreshToken(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (j JWTTokenIssuer) ParseRefreshTokenIgnoringExpiry(token string) (*utils.Claims, error) {
	if j.Manager == nil {
		return nil, ErrTokenInvalid
	}
	claims, err := j.Manager.ParseRefreshTokenIgnoringExpiry(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
