package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resend/resend-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResendEmails struct {
	requests []*resend.SendEmailRequest
	err      error
	block    chan struct{}
}

func (f *fakeResendEmails) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.requests = append(f.requests, params)
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{}, nil
}

func TestResendEmailSender_Send(t *testing.T) {
	emails := &fakeResendEmails{}
	sender := &ResendEmailSender{From: "no-reply@studytrack.app", AppName: "StudyTrack", emails: emails}

	require.NoError(t, sender.SendVerificationEmail(context.Background(), "a@x.com", "1234567"))
	require.NoError(t, sender.SendPasswordResetEmail(context.Background(), "a@x.com", "A1B2C3"))

	require.Len(t, emails.requests, 2)
	assert.Equal(t, []string{"a@x.com"}, emails.requests[0].To)
	assert.Equal(t, "no-reply@studytrack.app", emails.requests[0].From)
	assert.Contains(t, emails.requests[0].Text, "1234567")
	assert.Contains(t, emails.requests[1].Html, "A1B2C3")
}

func TestResendEmailSender_ProviderError(t *testing.T) {
	sender := &ResendEmailSender{From: "no-reply@studytrack.app", emails: &fakeResendEmails{err: errors.New("rate limited")}}

	err := sender.SendUsernameRecoveryEmail(context.Background(), "a@x.com", "A1B2C3")
	assert.ErrorContains(t, err, "rate limited")
}

func TestResendEmailSender_Timeout(t *testing.T) {
	emails := &fakeResendEmails{block: make(chan struct{})}
	defer close(emails.block)
	sender := &ResendEmailSender{From: "no-reply@studytrack.app", emails: emails}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sender.SendVerificationEmail(ctx, "a@x.com", "1234567")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResendEmailSender_NotConfigured(t *testing.T) {
	sender := NewResendEmailSender("", "")

	err := sender.SendVerificationEmail(context.Background(), "a@x.com", "1234567")
	assert.ErrorIs(t, err, ErrEmailSenderNotConfigured)
}
