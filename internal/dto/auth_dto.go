package dto

import (
	"encoding/json"
	"time"

	"studytrack/internal/entity"
)

type CheckUsernameRequest struct {
	Username string `json:"username" validate:"required,max=32"`
}

type CheckUsernameResponse struct {
	Available bool `json:"available"`
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type EmailCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,max=16"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken      string `json:"accessToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RefreshTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// LogoutRequest carries no validation; an empty or unknown token still logs out.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,max=16"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type UsernameResponse struct {
	Username string `json:"username"`
}

type AccountResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	IsVerified bool       `json:"isVerified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func AccountResponseFromEntity(account *entity.Account) AccountResponse {
	return AccountResponse{
		ID:         account.ID.String(),
		Username:   account.Username,
		Email:      account.Email,
		IsVerified: account.IsVerified,
		VerifiedAt: account.VerifiedAt,
		CreatedAt:  account.CreatedAt,
	}
}

type SecurityEventResponse struct {
	Action    string          `json:"action"`
	IPAddress *string         `json:"ipAddress,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func SecurityEventResponsesFromEntities(logs []entity.SecurityLog) []SecurityEventResponse {
	responses := make([]SecurityEventResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, SecurityEventResponse{
			Action:    string(logs[i].Action),
			IPAddress: logs[i].IPAddress,
			Metadata:  json.RawMessage(logs[i].Metadata),
			CreatedAt: logs[i].CreatedAt,
		})
	}
	return responses
}
