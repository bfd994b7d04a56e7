package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/calendar"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/rs/zerolog/log"
)

func (s *Set) updateEmailState() agent.Tool {
	return agent.Tool{
		Name:        "update_email_state",
		Description: "Save the email draft. Only the given fields are changed.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"subject":          llm.String("Email subject line."),
			"body":             llm.String("Plain text email body."),
			"email_recipients": llm.StringList("Email addresses of the recipients."),
		}),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			wf := &tc.State.Workflow
			if err := wf.CanRevise(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}

			patch := invitation.EmailPatch{
				Subject: args.StringPtr("subject"),
				Body:    args.StringPtr("body"),
			}
			if recipients, ok := args.StringList("email_recipients"); ok {
				patch.EmailRecipients = recipients
			}

			if !tc.State.Email.Apply(patch) {
				return agent.Success("Email draft unchanged.", map[string]any{"email": tc.State.Email})
			}
			if err := wf.ReviseDraft(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}

			return agent.Success("Email draft updated.", map[string]any{
				"email": tc.State.Email,
				"stage": string(wf.Stage),
			})
		},
	}
}

func (s *Set) resetEmailState() agent.Tool {
	return agent.Tool{
		Name:        "reset_email_state",
		Description: "Discard the email draft and start over.",
		Parameters:  llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			wf := &tc.State.Workflow
			if err := wf.CanRevise(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}

			tc.State.Email.Reset()
			if err := wf.ReviseDraft(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}
			return agent.Success("Email draft reset.", map[string]any{"stage": string(wf.Stage)})
		},
	}
}

func (s *Set) confirmEmailDraft() agent.Tool {
	return agent.Tool{
		Name: "confirm_email_draft",
		Description: "Mark the email draft as approved by the user. " +
			"Call only after the user explicitly approved it.",
		Parameters: llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			email := tc.State.Email

			var problems []string
			if strings.TrimSpace(email.Subject) == "" {
				problems = append(problems, "subject is empty")
			}
			if strings.TrimSpace(email.Body) == "" {
				problems = append(problems, "body is empty")
			}
			if len(email.EmailRecipients) == 0 {
				problems = append(problems, "no email recipients")
			}
			if invalid := s.invalidAddresses(email.EmailRecipients); len(invalid) > 0 {
				problems = append(problems, "invalid email addresses: "+strings.Join(invalid, ", "))
			}
			if len(problems) > 0 {
				return agent.Failuref("Cannot confirm the email draft: %s.", strings.Join(problems, "; "))
			}

			if err := tc.State.Workflow.ConfirmDraft(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}
			return agent.Success("Email draft confirmed.", map[string]any{
				"stage": string(tc.State.Workflow.Stage),
			})
		},
	}
}

func (s *Set) invalidAddresses(addrs []string) []string {
	var invalid []string
	for _, addr := range addrs {
		if err := s.validate.Var(addr, "required,email"); err != nil {
			invalid = append(invalid, addr)
		}
	}
	return invalid
}

func (s *Set) createCalendarInvitation() agent.Tool {
	return agent.Tool{
		Name: "create_calendar_invitation",
		Description: "Create an iCalendar meeting request and attach it to the email draft. " +
			"Times use the format 2006-01-02T15:04 or RFC3339.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"summary":     llm.String("Title of the event."),
			"start":       llm.String("Start time."),
			"end":         llm.String("End time."),
			"location":    llm.String("Where the event takes place."),
			"description": llm.String("Event description."),
			"attendees":   llm.StringList("Email addresses of the attendees."),
			"organizer":   llm.String("Email address of the organizer."),
		}, "summary", "start", "end"),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			wf := &tc.State.Workflow
			if err := wf.CanRevise(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}

			inv := calendar.Invite{}
			inv.Summary, _ = args.String("summary")
			inv.Start, _ = args.String("start")
			inv.End, _ = args.String("end")
			inv.Location, _ = args.String("location")
			inv.Description, _ = args.String("description")
			inv.Organizer, _ = args.String("organizer")
			inv.Attendees, _ = args.StringList("attendees")
			if strings.TrimSpace(inv.Summary) == "" {
				return agent.Failuref("summary is required")
			}

			path := filepath.Join(s.cfg.CalendarDir, tc.SessionID.String()+".ics")
			if _, err := s.calendar.Create(inv, path); err != nil {
				kind := "io_error"
				if errors.Is(err, calendar.ErrInvalidTimeFormat) {
					kind = "invalid_time_format"
				}
				log.Warn().Err(err).Str("session_id", tc.SessionID.String()).Msg("Calendar invitation not created")
				return agent.Result{
					Status:  agent.StatusFailure,
					Message: fmt.Sprintf("Could not create the calendar invitation: %v", err),
					Data:    map[string]any{"error": kind},
				}
			}

			if tc.State.Email.Attach(path) {
				if err := wf.ReviseDraft(invitation.ChannelEmail); err != nil {
					return agent.Failure(err)
				}
			}

			return agent.Success("Calendar invitation created and attached to the email draft.", map[string]any{
				"path":        path,
				"attachments": tc.State.Email.Attachments,
			})
		},
	}
}

func (s *Set) sendMail() agent.Tool {
	return agent.Tool{
		Name:        "send_mail",
		Description: "Send the confirmed email draft, with its attachments, to every email recipient.",
		Parameters:  llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			wf := &tc.State.Workflow
			if err := wf.CanSend(invitation.ChannelEmail); err != nil {
				return agent.Failure(err)
			}

			email := tc.State.Email
			res, err := s.mailer.Send(ctx, email.EmailRecipients, email.Subject, email.Body, email.Attachments)
			if err != nil {
				wf.RecordSend(invitation.ChannelEmail, false, tc.Policy)
				log.Error().Err(err).Str("session_id", tc.SessionID.String()).Msg("Email dispatch failed")
				return agent.Failure(err)
			}
			wf.RecordSend(invitation.ChannelEmail, true, tc.Policy)

			log.Info().
				Str("session_id", tc.SessionID.String()).
				Int("recipients", len(res.Recipients)).
				Int("attached", len(res.Attached)).
				Msg("Email dispatched")

			data := map[string]any{
				"recipients": res.Recipients,
				"attached":   len(res.Attached),
				"stage":      string(wf.Stage),
			}
			msg := fmt.Sprintf("Email sent to %d recipients with %d attachments.", len(res.Recipients), len(res.Attached))
			if len(res.Skipped) > 0 {
				data["skipped"] = res.Skipped
				return agent.PartialSuccess(fmt.Sprintf("%s %d missing attachments were skipped.", msg, len(res.Skipped)), data)
			}
			return agent.Success(msg, data)
		},
	}
}
