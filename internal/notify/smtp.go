package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/otcheredev/hospital-records/pkg/metrics"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the SMTP sender
type SMTPConfig struct {
	From     string
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Timeout  time.Duration
}

// SMTPMailer sends mail through gomail
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("sender address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{cfg: cfg}, nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	err := m.send(ctx, renderPasswordReset(msg))
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	metrics.MailDeliveries.WithLabelValues("password_reset", outcome).Inc()
	return err
}

func (m *SMTPMailer) send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("recipient is required")
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", to)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.SSL = m.cfg.UseTLS
	if m.cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
	}

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(gm)
	}()

	// respect the ctx deadline when it is sooner than the configured timeout
	wait := m.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < wait {
			wait = left
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}
