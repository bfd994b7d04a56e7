package llm

import "context"

// Message roles shared by all providers. Each provider maps them onto its own
// wire names.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation sent to a model.
type Message struct {
	Role    string
	Content string

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall

	// ToolCallID and ToolName are set on tool messages carrying a result.
	ToolCallID string
	ToolName   string
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Tool declares a function the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
}

// Request contains one chat completion request
type Request struct {
	System      string
	Messages    []Message
	Tools       []Tool
	Temperature float32
}

// Response contains LLM generation result
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat runs one model step. The response either carries text, tool
	// calls, or both.
	Chat(ctx context.Context, req Request, model string) (*Response, error)
}
