package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRecordsResets(t *testing.T) {
	o := NewOutbox()
	exp := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)

	err := o.SendPasswordReset(context.Background(), PasswordReset{
		To:        "dr.a@example.com",
		Username:  "dra",
		Token:     "tok",
		Link:      "https://records.example/password-reset/confirm?token=tok",
		ExpiresAt: exp,
	})
	require.NoError(t, err)

	resets := o.Resets()
	require.Len(t, resets, 1)
	assert.Equal(t, "tok", resets[0].Token)

	msgs := o.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "dr.a@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Body, "token=tok")
	assert.Contains(t, msgs[0].Body, "2026-01-02 03:04 UTC")
}

func TestOutboxFailure(t *testing.T) {
	o := NewOutbox()
	o.Err = errors.New("smtp down")

	err := o.SendPasswordReset(context.Background(), PasswordReset{To: "x@example.com"})
	assert.Error(t, err)
	assert.Empty(t, o.Resets())
}

func TestNewSMTPMailerValidates(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "a@b.c"})
	assert.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, m.cfg.Timeout)
}
