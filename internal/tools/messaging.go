package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/Rrens/invitation-agent/internal/messaging"
	"github.com/rs/zerolog/log"
)

func (s *Set) searchContacts() agent.Tool {
	return agent.Tool{
		Name:        messaging.ToolSearchContacts,
		Description: "Search the messaging contacts by name or phone number.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"query": llm.String("Name or phone number to search for."),
		}, "query"),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			query, _ := args.String("query")
			if strings.TrimSpace(query) == "" {
				return agent.Failuref("query is required")
			}

			contacts, err := s.messaging.SearchContacts(ctx, query)
			if err != nil {
				return agent.Failure(err)
			}
			if contacts == nil {
				contacts = []messaging.Contact{}
			}
			return agent.Success(fmt.Sprintf("Found %d contacts.", len(contacts)), map[string]any{
				"contacts": contacts,
			})
		},
	}
}

func (s *Set) updateMessageDraft() agent.Tool {
	return agent.Tool{
		Name:        "update_message_draft",
		Description: "Save the message draft. Only the given fields are changed.",
		Parameters: llm.Object(map[string]*llm.Schema{
			"body":       llm.String("Text of the message."),
			"recipients": llm.StringList("Contact ids of the recipients, as returned by search_contacts."),
		}),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			wf := &tc.State.Workflow
			if err := wf.CanRevise(invitation.ChannelMessaging); err != nil {
				return agent.Failure(err)
			}

			patch := invitation.MessagePatch{Body: args.StringPtr("body")}
			if recipients, ok := args.StringList("recipients"); ok {
				patch.Recipients = recipients
			}

			if !tc.State.Message.Apply(patch) {
				return agent.Success("Message draft unchanged.", map[string]any{"message": tc.State.Message})
			}
			if err := wf.ReviseDraft(invitation.ChannelMessaging); err != nil {
				return agent.Failure(err)
			}
			return agent.Success("Message draft updated.", map[string]any{
				"message": tc.State.Message,
				"stage":   string(wf.Stage),
			})
		},
	}
}

func (s *Set) confirmMessageDraft() agent.Tool {
	return agent.Tool{
		Name: "confirm_message_draft",
		Description: "Mark the message draft as approved by the user. " +
			"Call only after the user explicitly approved it.",
		Parameters: llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			msg := tc.State.Message
			if strings.TrimSpace(msg.Body) == "" || len(msg.Recipients) == 0 {
				return agent.Failuref("Cannot confirm the message draft: it needs a body and at least one recipient.")
			}
			if err := tc.State.Workflow.ConfirmDraft(invitation.ChannelMessaging); err != nil {
				return agent.Failure(err)
			}
			return agent.Success("Message draft confirmed.", map[string]any{
				"stage": string(tc.State.Workflow.Stage),
			})
		},
	}
}

func (s *Set) sendMessage() agent.Tool {
	return agent.Tool{
		Name:        messaging.ToolSendMessage,
		Description: "Send the confirmed message draft to every recipient.",
		Parameters:  llm.Object(nil),
		Handler: func(ctx context.Context, tc *agent.ToolContext, args agent.Args) agent.Result {
			wf := &tc.State.Workflow
			if err := wf.CanSend(invitation.ChannelMessaging); err != nil {
				return agent.Failure(err)
			}

			msg := tc.State.Message
			var (
				sent   []string
				failed []string
				errs   []string
			)
			for _, recipient := range msg.Recipients {
				if err := s.messaging.SendMessage(ctx, recipient, msg.Body); err != nil {
					log.Warn().Err(err).Str("session_id", tc.SessionID.String()).Str("recipient", recipient).Msg("Message not sent")
					failed = append(failed, recipient)
					errs = append(errs, err.Error())
					continue
				}
				sent = append(sent, recipient)
			}

			wf.RecordSend(invitation.ChannelMessaging, len(sent) > 0, tc.Policy)
			data := map[string]any{
				"sent":   sent,
				"failed": failed,
				"stage":  string(wf.Stage),
			}

			switch {
			case len(failed) == 0:
				return agent.Success(fmt.Sprintf("Message sent to %d recipients.", len(sent)), data)
			case len(sent) > 0:
				data["errors"] = errs
				return agent.PartialSuccess(fmt.Sprintf("Message sent to %d of %d recipients.", len(sent), len(msg.Recipients)), data)
			default:
				data["errors"] = errs
				return agent.Result{
					Status:  agent.StatusFailure,
					Message: "Message could not be sent: " + strings.Join(errs, "; "),
					Data:    data,
				}
			}
		},
	}
}
