package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"studytrack/api/middleware"
	"studytrack/internal/dto"
	"studytrack/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

var (
	errInvalidBody   = errors.New("invalid request body")
	errUnauthorized  = errors.New("unauthorized")
	errInternalError = errors.New("internal server error")
)

type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Logger   logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate, logger logrus.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
		Logger:   logger,
	}
}

func (h *AuthHandler) CheckUsername(c echo.Context) error {
	var req dto.CheckUsernameRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	available, err := h.Service.CheckUsername(c.Request().Context(), req.Username)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.CheckUsernameResponse{Available: available})
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req dto.SignupRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
	}
	if err := h.Service.Signup(c.Request().Context(), input); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "account created, check your email for the verification code"})
}

func (h *AuthHandler) ResendVerificationCode(c echo.Context) error {
	var req dto.EmailRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.ResendVerificationCode(c.Request().Context(), req.Email); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "verification code sent"})
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req dto.EmailCodeRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyEmail(c.Request().Context(), req.Email, req.Code); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "email verified"})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
	}
	result, err := h.Service.Login(c.Request().Context(), input)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken:      result.AccessToken,
		ExpiresIn:        result.ExpiresIn,
		RefreshToken:     result.RefreshToken,
		RefreshExpiresIn: result.RefreshExpiresIn,
	})
}

func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req dto.RefreshTokenRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidBody)
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return writeError(c, http.StatusUnauthorized, service.ErrTokenInvalid)
	}
	result, err := h.Service.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.RefreshTokenResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req dto.LogoutRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidBody)
	}
	if err := h.Service.Logout(c.Request().Context(), req.RefreshToken, stringPtr(c.RealIP())); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AuthHandler) SendUsernameCode(c echo.Context) error {
	var req dto.EmailRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.SendUsernameVerificationCode(c.Request().Context(), req.Email); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "username recovery code sent"})
}

func (h *AuthHandler) VerifyUsernameCode(c echo.Context) error {
	var req dto.EmailCodeRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	username, err := h.Service.VerifyUsernameCode(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UsernameResponse{Username: username})
}

func (h *AuthHandler) SendPasswordResetCode(c echo.Context) error {
	var req dto.EmailRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.SendPasswordResetCode(c.Request().Context(), req.Email); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "password reset code sent"})
}

func (h *AuthHandler) VerifyPasswordResetCode(c echo.Context) error {
	var req dto.EmailCodeRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyPasswordResetCode(c.Request().Context(), req.Email, req.Code); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "code accepted"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.ResetPasswordInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	}
	if err := h.Service.ResetPassword(c.Request().Context(), input); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "password updated"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	account, err := h.Service.CurrentAccount(c.Request().Context(), accountID)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.AccountResponseFromEntity(account))
}

func (h *AuthHandler) SecurityActivity(c echo.Context) error {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	logs, err := h.Service.SecurityActivity(c.Request().Context(), accountID, limit)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SecurityEventResponsesFromEntities(logs))
}

// bind decodes and validates the body. The returned error is safe to show to clients.
func (h *AuthHandler) bind(c echo.Context, target any) error {
	if err := decodeJSON(c, target); err != nil {
		return errInvalidBody
	}
	if err := h.validate(target); err != nil {
		return validationMessage(err)
	}
	return nil
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func (h *AuthHandler) writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadyVerified):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNotVerified),
		errors.Is(err, service.ErrTokenInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrMailDispatchFailed):
		h.Logger.WithError(err).WithField("path", c.Path()).Warn("mail dispatch failed")
		return writeError(c, http.StatusBadGateway, service.ErrMailDispatchFailed)
	}

	if status == http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		return writeError(c, status, errInternalError)
	}
	return writeError(c, status, publicError(err))
}

// publicError strips wrapping so only the sentinel's message reaches the client.
func publicError(err error) error {
	for _, sentinel := range []error{
		service.ErrValidation,
		service.ErrUsernameTaken,
		service.ErrEmailTaken,
		service.ErrAlreadyVerified,
		service.ErrInvalidCredentials,
		service.ErrNotVerified,
		service.ErrTokenInvalid,
		service.ErrInvalidOrExpiredCode,
		service.ErrAccountNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

func validationMessage(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return service.ErrValidation
	}
	field := fieldErrors[0]
	return errors.New("invalid " + lowerFirst(field.Field()) + ": failed " + field.Tag() + " check")
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, dto.MessageResponse{Message: err.Error()})
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func lowerFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToLower(value[:1]) + value[1:]
}
