// Package mailer sends invitation emails over SMTP with STARTTLS.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

// SendError wraps any failure to hand a message to the SMTP server.
type SendError struct {
	Recipients []string
	Err        error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send email to %s: %v", strings.Join(e.Recipients, ", "), e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func (e *SendError) Kind() string { return "send_error" }

// SendResult describes what was delivered.
type SendResult struct {
	Recipients []string
	Attached   []string
	Skipped    []string
}

// Sender delivers a built message. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer builds messages and sends each in one SMTP session. There are no
// retries.
type Mailer struct {
	cfg       config.EmailConfig
	newSender func() (Sender, error)
}

// Option customizes a Mailer.
type Option func(*Mailer)

// WithSender replaces the SMTP client.
func WithSender(s Sender) Option {
	return func(m *Mailer) {
		m.newSender = func() (Sender, error) { return s, nil }
	}
}

func New(cfg config.EmailConfig, opts ...Option) *Mailer {
	m := &Mailer{cfg: cfg}
	m.newSender = m.dial
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mailer) dial() (Sender, error) {
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}

// Send delivers one plain text message to all recipients under a single To
// header. Attachments that do not exist are skipped and reported.
func (m *Mailer) Send(ctx context.Context, recipients []string, subject, body string, attachments []string) (SendResult, error) {
	result := SendResult{Recipients: recipients}

	if len(recipients) == 0 {
		return result, &SendError{Err: errors.New("no recipients")}
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender()); err != nil {
		return result, &SendError{Recipients: recipients, Err: fmt.Errorf("invalid sender: %w", err)}
	}
	if err := msg.To(recipients...); err != nil {
		return result, &SendError{Recipients: recipients, Err: fmt.Errorf("invalid recipient: %w", err)}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	for _, path := range attachments {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			log.Warn().Str("path", path).Msg("Attachment not found, skipping")
			result.Skipped = append(result.Skipped, path)
			continue
		}
		msg.AttachFile(path, mail.WithFileName(filepath.Base(path)))
		result.Attached = append(result.Attached, path)
	}

	sender, err := m.newSender()
	if err != nil {
		return result, &SendError{Recipients: recipients, Err: err}
	}

	if err := sender.DialAndSendWithContext(ctx, msg); err != nil {
		return result, &SendError{Recipients: recipients, Err: err}
	}

	log.Info().
		Strs("recipients", recipients).
		Int("attachments", len(result.Attached)).
		Msg("Email sent")

	return result, nil
}
