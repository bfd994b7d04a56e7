package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/rs/zerolog/log"
)

func (s *Set) currentDatetime() agent.Tool {
	return agent.Tool{
		Name:        "get_current_datetime",
		Description: "Get the current date and time in the user's timezone.",
		Parameters:  llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			now := s.now().In(s.cfg.Location)
			return agent.Success(now.Format("Monday, 2006-01-02 15:04 MST"), map[string]any{
				"datetime": now.Format(time.RFC3339),
				"weekday":  now.Weekday().String(),
				"timezone": s.cfg.Location.String(),
			})
		},
	}
}

func (s *Set) updateInvitationInfo() agent.Tool {
	return agent.Tool{
		Name: "update_invitation_info",
		Description: "Save invitation details. Only the given fields are changed; " +
			"call it with every new piece of information.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"agenda_name":  llm.String("Name of the agenda or event."),
			"location":     llm.String("Where the event takes place."),
			"scheduled_at": llm.String("Date and time of the event, e.g. 2026-11-02T10:00."),
			"notes":        llm.String("Additional notes for the recipients."),
			"recipients":   llm.StringList("Names of the people to invite."),
			"tone":         llm.String("Tone of the invitation, e.g. formal or casual."),
		}),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			patch := invitation.InvitationPatch{
				AgendaName:  args.StringPtr("agenda_name"),
				Location:    args.StringPtr("location"),
				ScheduledAt: args.StringPtr("scheduled_at"),
				Notes:       args.StringPtr("notes"),
				Tone:        args.StringPtr("tone"),
			}
			if recipients, ok := args.StringList("recipients"); ok {
				patch.Recipients = recipients
			}

			previous := tc.State.Workflow.Stage
			changed := tc.State.UpdateInvitation(patch)

			data := map[string]any{
				"invitation_info": tc.State.InvitationInfo,
				"missing":         missingOrEmpty(tc.State.InvitationInfo),
				"stage":           string(tc.State.Workflow.Stage),
			}
			if !changed {
				return agent.Success("Invitation info unchanged.", data)
			}

			log.Info().
				Str("session_id", tc.SessionID.String()).
				Msg("Invitation info updated")

			if previous != invitation.StageCollecting {
				return agent.Success("Invitation info updated. The invitation must be confirmed again before dispatch.", data)
			}
			return agent.Success("Invitation info updated.", data)
		},
	}
}

func (s *Set) resetInvitationInfo() agent.Tool {
	return agent.Tool{
		Name:        "reset_invitation_info",
		Description: "Clear all invitation details and drafts to start a new invitation.",
		Parameters:  llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			tc.State.ResetInvitation()
			tc.State.Email.Reset()
			tc.State.Message.Reset()

			return agent.Success("Invitation info reset.", map[string]any{
				"invitation_info": tc.State.InvitationInfo,
				"stage":           string(tc.State.Workflow.Stage),
			})
		},
	}
}

func (s *Set) confirmInvitationInfo() agent.Tool {
	return agent.Tool{
		Name: "confirm_invitation_info",
		Description: "Mark the invitation details as confirmed by the user. " +
			"Call only after the user explicitly confirmed every detail.",
		Parameters: llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			if missing := tc.State.InvitationInfo.MissingRequired(); len(missing) > 0 {
				return agent.Result{
					Status:  agent.StatusFailure,
					Message: fmt.Sprintf("Cannot confirm yet, missing: %s.", strings.Join(missing, ", ")),
					Data:    map[string]any{"missing": missing},
				}
			}
			if err := tc.State.Workflow.ConfirmInvitation(tc.State.InvitationInfo); err != nil {
				return agent.Failure(err)
			}

			return agent.Success("Invitation confirmed.", map[string]any{
				"stage": string(tc.State.Workflow.Stage),
			})
		},
	}
}

func missingOrEmpty(info invitation.InvitationInfo) []string {
	if missing := info.MissingRequired(); missing != nil {
		return missing
	}
	return []string{}
}
