package service

import "errors"

var (
	ErrValidation           = errors.New("invalid input")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrEmailTaken           = errors.New("email already registered")
	ErrAlreadyVerified      = errors.New("email already verified")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrNotVerified          = errors.New("email not verified")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrTokenInvalid         = errors.New("invalid or expired token")
	ErrAccountNotFound      = errors.New("account not found")
	ErrMailDispatchFailed   = errors.New("email could not be sent, please request a new code")

	// Infrastructure failures. Never shown to clients.
	ErrHashing = errors.New("password hashing failed")
	ErrStorage = errors.New("storage failure")
)
