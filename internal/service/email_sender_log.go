package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogEmailSender stands in for a mail provider in local setups. It records that a
// message would have been sent; codes are not logged.
type LogEmailSender struct {
	Logger logrus.FieldLogger
}

func (s LogEmailSender) SendVerificationEmail(ctx context.Context, email string, _ string) error {
	return s.log(ctx, email, "email_verify")
}

func (s LogEmailSender) SendUsernameRecoveryEmail(ctx context.Context, email string, _ string) error {
	return s.log(ctx, email, "username_recovery")
}

func (s LogEmailSender) SendPasswordResetEmail(ctx context.Context, email string, _ string) error {
	return s.log(ctx, email, "password_reset")
}

func (s LogEmailSender) log(ctx context.Context, email string, purpose string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{"to": email, "purpose": purpose}).Info("email dispatch skipped, no mail provider configured")
	return nil
}
