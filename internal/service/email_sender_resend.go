package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go"
)

var ErrEmailSenderNotConfigured = errors.New("email sender not configured")

type resendEmails interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendEmailSender struct {
	From    string
	AppName string
	emails  resendEmails
}

func NewResendEmailSender(apiKey string, from string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendEmailSender{}
	}
	client := resend.NewClient(apiKey)
	return &ResendEmailSender{
		From:    from,
		AppName: "StudyTrack",
		emails:  client.Emails,
	}
}

func (s *ResendEmailSender) SendVerificationEmail(ctx context.Context, email string, code string) error {
	subject := "Verify your email"
	html := fmt.Sprintf("<p>Welcome to %s.</p><p>Your verification code is <strong>%s</strong>.</p>", s.AppName, code)
	text := fmt.Sprintf("Welcome to %s. Your verification code is %s.", s.AppName, code)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) SendUsernameRecoveryEmail(ctx context.Context, email string, code string) error {
	subject := "Your username recovery code"
	html := fmt.Sprintf("<p>Use <strong>%s</strong> to look up your %s username.</p>", code, s.AppName)
	text := fmt.Sprintf("Use %s to look up your %s username.", code, s.AppName)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) SendPasswordResetEmail(ctx context.Context, email string, code string) error {
	subject := "Reset your password"
	html := fmt.Sprintf("<p>Your %s password reset code is <strong>%s</strong>.</p><p>If you did not ask for it, ignore this email.</p>", s.AppName, code)
	text := fmt.Sprintf("Your %s password reset code is %s. If you did not ask for it, ignore this email.", s.AppName, code)
	return s.send(ctx, email, subject, html, text)
}

// send gives up when ctx is done; the SDK call itself has no context.
func (s *ResendEmailSender) send(ctx context.Context, to string, subject string, html string, text string) error {
	if s.emails == nil {
		return ErrEmailSenderNotConfigured
	}
	request := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.emails.Send(request)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("resend email failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("resend email failed: %w", ctx.Err())
	}
}
