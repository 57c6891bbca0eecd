// Package notify delivers outgoing mail. Delivery is always best effort and
// happens after the triggering transaction has committed.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/otcheredev/hospital-records/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// PasswordReset is everything the mail collaborator needs for a reset link
type PasswordReset struct {
	To        string
	Username  string
	Token     string
	Link      string
	ExpiresAt time.Time
}

// Mailer sends account mail
type Mailer interface {
	SendPasswordReset(ctx context.Context, msg PasswordReset) error
}

// Message is a rendered plain-text mail
type Message struct {
	To      string
	Subject string
	Body    string
}

func renderPasswordReset(msg PasswordReset) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", msg.Username)
	b.WriteString("An account has been created for you, or a password reset was requested.\n")
	b.WriteString("Use the link below to choose a password:\n\n")
	fmt.Fprintf(&b, "%s\n\n", msg.Link)
	fmt.Fprintf(&b, "The link expires on %s.\n", msg.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString("If you did not expect this message you can ignore it.\n")

	return Message{
		To:      msg.To,
		Subject: "Set your password",
		Body:    b.String(),
	}
}

// LogMailer writes reset links to the log instead of sending them. Used when
// SMTP is disabled.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	log.Info().
		Str("to", msg.To).
		Str("link", msg.Link).
		Time("expires_at", msg.ExpiresAt).
		Msg("Mail disabled, password reset link logged")
	metrics.MailDeliveries.WithLabelValues("password_reset", "logged").Inc()
	return nil
}

// Outbox keeps messages in memory. Tests read it back.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	resets   []PasswordReset
	// Err, when set, is returned from every send
	Err error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.resets = append(o.resets, msg)
	o.messages = append(o.messages, renderPasswordReset(msg))
	return nil
}

// Resets returns a copy of the queued reset requests
func (o *Outbox) Resets() []PasswordReset {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]PasswordReset(nil), o.resets...)
}

// Messages returns a copy of the rendered messages
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}
