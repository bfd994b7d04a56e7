package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// MCPClient calls the messaging server over an MCP client session.
type MCPClient struct {
	session *mcp.ClientSession
	timeout time.Duration
}

// Dial connects to an MCP server over SSE.
func Dial(ctx context.Context, endpoint string, timeout time.Duration) (*MCPClient, error) {
	return Connect(ctx, &mcp.SSEClientTransport{Endpoint: endpoint}, timeout)
}

// Connect opens a session over any MCP transport.
func Connect(ctx context.Context, transport mcp.Transport, timeout time.Duration) (*MCPClient, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "invitation-agent", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to messaging server: %w", err)
	}

	log.Info().Msg("Connected to messaging MCP server")
	return &MCPClient{session: session, timeout: timeout}, nil
}

// Close ends the session.
func (c *MCPClient) Close() error {
	return c.session.Close()
}

func (c *MCPClient) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	text, err := c.call(ctx, ToolSearchContacts, map[string]any{"query": query})
	if err != nil {
		return nil, err
	}

	contacts, err := decodeContacts(text)
	if err != nil {
		return nil, &ExternalToolError{Tool: ToolSearchContacts, Err: err}
	}
	return contacts, nil
}

func (c *MCPClient) SendMessage(ctx context.Context, recipient, body string) error {
	text, err := c.call(ctx, ToolSendMessage, map[string]any{"recipient": recipient, "message": body})
	if err != nil {
		return err
	}

	// Some servers report failure in the payload instead of IsError.
	var status struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(text), &status) == nil && status.Success != nil && !*status.Success {
		return &ExternalToolError{Tool: ToolSendMessage, Err: errors.New(status.Message)}
	}
	return nil
}

func (c *MCPClient) call(ctx context.Context, tool string, args map[string]any) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", &ExternalToolError{Tool: tool, Err: err}
	}

	text := contentText(res)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", &ExternalToolError{Tool: tool, Err: errors.New(text)}
	}
	return text, nil
}

func contentText(res *mcp.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			return string(data)
		}
	}
	return strings.Join(parts, "\n")
}

// decodeContacts accepts a bare list or an object with a contacts field.
func decodeContacts(text string) ([]Contact, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return []Contact{}, nil
	}

	var list []Contact
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Contacts []Contact `json:"contacts"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected search result: %w", err)
	}
	if wrapped.Contacts == nil {
		wrapped.Contacts = []Contact{}
	}
	return wrapped.Contacts, nil
}
