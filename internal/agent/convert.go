package agent

import (
	"encoding/json"

	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/llm"
)

// toMessages turns stored events into the provider-neutral conversation.
func toMessages(events []domain.Event) []llm.Message {
	var msgs []llm.Message
	for _, e := range events {
		switch e.Content.Role {
		case domain.RoleUser:
			if text := e.Text(); text != "" {
				msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})
			}

		case domain.RoleModel:
			msg := llm.Message{Role: llm.RoleAssistant, Content: e.Text()}
			for _, p := range e.Content.Parts {
				if p.FunctionCall != nil {
					msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
						ID:        p.FunctionCall.ID,
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Args,
					})
				}
			}
			if msg.Content != "" || len(msg.ToolCalls) > 0 {
				msgs = append(msgs, msg)
			}

		case domain.RoleTool:
			for _, p := range e.Content.Parts {
				if p.FunctionResponse == nil {
					continue
				}
				body, err := json.Marshal(p.FunctionResponse.Response)
				if err != nil {
					body = []byte("{}")
				}
				msgs = append(msgs, llm.Message{
					Role:       llm.RoleTool,
					Content:    string(body),
					ToolCallID: p.FunctionResponse.ID,
					ToolName:   p.FunctionResponse.Name,
				})
			}
		}
	}
	return msgs
}

// trimHistory drops leading events until the first user message, so a limited
// history never starts with a dangling tool call or result.
func trimHistory(events []domain.Event) []domain.Event {
	for i, e := range events {
		if e.Content.Role == domain.RoleUser && !e.HasFunctionParts() {
			return events[i:]
		}
	}
	return nil
}

// History renders stored events as the user-facing transcript: text from the
// user and from the agents, without tool traffic.
func History(events []domain.Event) []domain.HistoryMessage {
	out := make([]domain.HistoryMessage, 0, len(events))
	for _, e := range events {
		text := e.Text()
		if text == "" {
			continue
		}

		var role string
		switch {
		case e.Author == domain.AuthorUser && e.Content.Role == domain.RoleUser:
			role = "user"
		case e.Content.Role == domain.RoleModel:
			role = "assistant"
		default:
			continue
		}

		out = append(out, domain.HistoryMessage{Role: role, Content: text, Timestamp: e.Timestamp})
	}
	return out
}
