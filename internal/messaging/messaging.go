// Package messaging talks to the chat messaging channel through an MCP server
// that exposes contact search and message sending tools.
package messaging

import (
	"context"
	"fmt"
	"strings"
)

// MCP tool names exposed by the messaging server.
const (
	ToolSearchContacts = "search_contacts"
	ToolSendMessage    = "send_message"
)

// Contact is one search hit.
type Contact struct {
	ID    string `json:"jid"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
}

// ExternalToolError reports a failed call to the messaging server.
type ExternalToolError struct {
	Tool string
	Err  error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("messaging tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

func (e *ExternalToolError) Kind() string { return "external_tool_error" }

// Client is the messaging channel as the tools see it.
type Client interface {
	SearchContacts(ctx context.Context, query string) ([]Contact, error)
	SendMessage(ctx context.Context, recipient, body string) error
}

// ContactCache stores search results. Get returns nil on a miss.
type ContactCache interface {
	Get(ctx context.Context, query string) ([]Contact, error)
	Set(ctx context.Context, query string, contacts []Contact) error
}

// CachingClient serves repeated contact searches from a cache. Sends always
// go to the server.
type CachingClient struct {
	Client
	cache ContactCache
}

func NewCachingClient(inner Client, cache ContactCache) *CachingClient {
	return &CachingClient{Client: inner, cache: cache}
}

func (c *CachingClient) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	if cached, err := c.cache.Get(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	contacts, err := c.Client.SearchContacts(ctx, query)
	if err != nil {
		return nil, err
	}

	// A cache write failure only costs a future lookup.
	_ = c.cache.Set(ctx, key, contacts)
	return contacts, nil
}
