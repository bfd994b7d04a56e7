package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrEmptyMessage is returned when a turn has no user text.
var ErrEmptyMessage = errors.New("message is empty")

// fallbackReply is sent when the model keeps calling tools past the step
// limit.
const fallbackReply = "Sorry, I could not finish that request. Could you try again?"

// RunnerConfig tunes a Runner.
type RunnerConfig struct {
	Model       string
	MaxSteps    int
	Temperature float32
	Policy      invitation.Policy
}

// Runner executes conversation turns.
type Runner struct {
	team     *Team
	provider llm.Provider
	cfg      RunnerConfig
	now      func() time.Time
}

// NewRunner creates a new runner
func NewRunner(team *Team, provider llm.Provider, cfg RunnerConfig) *Runner {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 8
	}
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel()
	}
	return &Runner{team: team, provider: provider, cfg: cfg, now: time.Now}
}

// Policy returns the workflow policy tools run under.
func (r *Runner) Policy() invitation.Policy {
	return r.cfg.Policy
}

// TurnInput is one user message against a session.
type TurnInput struct {
	SessionID uuid.UUID
	State     *invitation.State
	History   []domain.Event
	Message   string
}

// TurnOutput is the reply plus every event the turn produced, the user
// message first.
type TurnOutput struct {
	Reply  string
	Agent  string
	Events []domain.Event
}

// Run drives the active agent until it answers with text. Tool calls mutate
// in.State; the caller persists it together with the returned events.
func (r *Runner) Run(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	tc := &ToolContext{SessionID: in.SessionID, State: in.State, Policy: r.cfg.Policy}
	history := trimHistory(in.History)

	turn := []domain.Event{
		r.event(in.SessionID, domain.AuthorUser, domain.RoleUser, []domain.Part{{Text: message}}),
	}

	for step := 0; step < r.cfg.MaxSteps; step++ {
		active := r.team.Get(tc.State.Workflow.ActiveAgent)
		if active.Name != tc.State.Workflow.ActiveAgent {
			log.Warn().
				Str("session_id", in.SessionID.String()).
				Str("agent", tc.State.Workflow.ActiveAgent).
				Msg("Unknown active agent, returning to root")
			tc.State.Workflow.ActiveAgent = active.Name
		}

		req := llm.Request{
			System:      active.Instruction(tc.State),
			Messages:    toMessages(append(append([]domain.Event{}, history...), turn...)),
			Tools:       r.team.declarations(active),
			Temperature: r.cfg.Temperature,
		}

		resp, err := r.provider.Chat(ctx, req, r.cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to run %s: %w", active.Name, err)
		}

		log.Debug().
			Str("session_id", in.SessionID.String()).
			Str("agent", active.Name).
			Int("step", step).
			Int("tool_calls", len(resp.ToolCalls)).
			Int("tokens_used", resp.TokensUsed).
			Int64("latency_ms", resp.LatencyMs).
			Msg("Model step completed")

		if len(resp.ToolCalls) == 0 {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				reply = fallbackReply
			}
			turn = append(turn, r.event(in.SessionID, active.Name, domain.RoleModel, []domain.Part{{Text: reply}}))
			return &TurnOutput{Reply: reply, Agent: active.Name, Events: turn}, nil
		}

		callParts := make([]domain.Part, 0, len(resp.ToolCalls)+1)
		if text := strings.TrimSpace(resp.Content); text != "" {
			callParts = append(callParts, domain.Part{Text: text})
		}
		for i, call := range resp.ToolCalls {
			if call.ID == "" {
				resp.ToolCalls[i].ID = fmt.Sprintf("call_%d_%d", step, i)
			}
			callParts = append(callParts, domain.Part{FunctionCall: &domain.FunctionCall{
				ID:   resp.ToolCalls[i].ID,
				Name: call.Name,
				Args: call.Arguments,
			}})
		}
		turn = append(turn, r.event(in.SessionID, active.Name, domain.RoleModel, callParts))

		responseParts := make([]domain.Part, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result := r.invoke(ctx, tc, call)
			responseParts = append(responseParts, domain.Part{FunctionResponse: &domain.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: result.Response(),
			}})
		}
		turn = append(turn, r.event(in.SessionID, active.Name, domain.RoleTool, responseParts))
	}

	log.Warn().
		Str("session_id", in.SessionID.String()).
		Int("max_steps", r.cfg.MaxSteps).
		Msg("Turn stopped at step limit")

	agentName := tc.State.Workflow.ActiveAgent
	turn = append(turn, r.event(in.SessionID, agentName, domain.RoleModel, []domain.Part{{Text: fallbackReply}}))
	return &TurnOutput{Reply: fallbackReply, Agent: agentName, Events: turn}, nil
}

// invoke runs one tool call for the currently active agent. Tools the agent
// does not own are rejected.
func (r *Runner) invoke(ctx context.Context, tc *ToolContext, call llm.ToolCall) Result {
	active := r.team.Get(tc.State.Workflow.ActiveAgent)

	log.Info().
		Str("session_id", tc.SessionID.String()).
		Str("agent", active.Name).
		Msgf("--- Tool: %s ---", call.Name)

	var result Result
	if call.Name == TransferToolName {
		result = r.transfer(tc, active, Args(call.Arguments))
	} else if tool, ok := active.tool(call.Name); ok {
		result = tool.Handler(ctx, tc, Args(call.Arguments))
	} else {
		result = Failuref("tool %q is not available to %s", call.Name, active.Name)
	}

	if result.Status != StatusSuccess {
		log.Warn().
			Str("session_id", tc.SessionID.String()).
			Str("tool", call.Name).
			Str("status", string(result.Status)).
			Str("message", result.Message).
			Msg("Tool did not fully succeed")
	}
	return result
}

func (r *Runner) transfer(tc *ToolContext, active *Agent, args Args) Result {
	target, _ := args.String("agent_name")
	target = strings.TrimSpace(target)
	if target == "" {
		return Failuref("agent_name is required")
	}
	if !r.team.Has(target) {
		return Failuref("unknown agent %q, available agents: %s", target, strings.Join(r.team.Names(), ", "))
	}

	if err := tc.State.Workflow.Transfer(target, tc.Policy); err != nil {
		return Failure(err)
	}

	log.Info().
		Str("session_id", tc.SessionID.String()).
		Str("from", active.Name).
		Str("to", target).
		Msg("Agent transferred")

	return Success(fmt.Sprintf("Transferred to %s.", target), map[string]any{
		"agent_name": target,
		"stage":      string(tc.State.Workflow.Stage),
	})
}

func (r *Runner) event(sessionID uuid.UUID, author, role string, parts []domain.Part) domain.Event {
	return domain.Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		Author:    author,
		Content:   domain.Content{Role: role, Parts: parts},
		Timestamp: r.now().UTC(),
	}
}
