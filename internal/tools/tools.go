// Package tools implements the functions the agents call. Every tool reports
// its outcome as an agent.Result; errors never leave a tool.
package tools

import (
	"context"
	"time"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/calendar"
	"github.com/Rrens/invitation-agent/internal/mailer"
	"github.com/Rrens/invitation-agent/internal/messaging"
	"github.com/go-playground/validator/v10"
)

// Mailer sends the confirmed email draft.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, body string, attachments []string) (mailer.SendResult, error)
}

// CalendarWriter writes meeting request files.
type CalendarWriter interface {
	Create(inv calendar.Invite, path string) ([]byte, error)
}

// Config holds what the tools need from the deployment.
type Config struct {
	Location    *time.Location
	CalendarDir string
}

// Set builds the tool lists of each agent around shared dependencies.
type Set struct {
	cfg       Config
	mailer    Mailer
	calendar  CalendarWriter
	messaging messaging.Client
	validate  *validator.Validate
	now       func() time.Time
}

// New creates a tool set. messagingClient may be nil when the messaging
// channel is disabled.
func New(cfg Config, m Mailer, cal CalendarWriter, messagingClient messaging.Client) *Set {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CalendarDir == "" {
		cfg.CalendarDir = "."
	}
	return &Set{
		cfg:       cfg,
		mailer:    m,
		calendar:  cal,
		messaging: messagingClient,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Root returns the tools of the root agent.
func (s *Set) Root() []agent.Tool {
	return []agent.Tool{
		s.currentDatetime(),
		s.updateInvitationInfo(),
		s.resetInvitationInfo(),
		s.confirmInvitationInfo(),
	}
}

// Email returns the tools of the email agent.
func (s *Set) Email() []agent.Tool {
	return []agent.Tool{
		s.updateEmailState(),
		s.resetEmailState(),
		s.createCalendarInvitation(),
		s.confirmEmailDraft(),
		s.sendMail(),
	}
}

// Messaging returns the tools of the messaging agent, or nil without a
// messaging client.
func (s *Set) Messaging() []agent.Tool {
	if s.messaging == nil {
		return nil
	}
	return []agent.Tool{
		s.searchContacts(),
		s.updateMessageDraft(),
		s.confirmMessageDraft(),
		s.sendMessage(),
	}
}
