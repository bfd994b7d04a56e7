package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/Rrens/invitation-agent/internal/llm/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	var captured struct {
		Model    string           `json:"model"`
		Stream   bool             `json:"stream"`
		Messages []map[string]any `json:"messages"`
		Tools    []map[string]any `json:"tools"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Write([]byte(`{
			"model": "llama3.1",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "transfer_to_agent", "arguments": {"agent_name": "email_agent"}}}]
			},
			"done": true,
			"prompt_eval_count": 10,
			"eval_count": 5
		}`))
	}))
	defer server.Close()

	p := ollama.NewProvider(server.URL+"/", "")
	resp, err := p.Chat(context.Background(), llm.Request{
		System: "sys",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "send it"},
			{Role: llm.RoleTool, ToolName: "confirm_invitation_info", Content: "{}"},
		},
		Tools: []llm.Tool{{Name: "transfer_to_agent", Parameters: llm.Object(map[string]*llm.Schema{"agent_name": llm.String("")}, "agent_name")}},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "llama3.1", captured.Model)
	assert.False(t, captured.Stream)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "system", captured.Messages[0]["role"])
	assert.Equal(t, "confirm_invitation_info", captured.Messages[2]["tool_name"])
	require.Len(t, captured.Tools, 1)

	assert.Equal(t, 15, resp.TokensUsed)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "transfer_to_agent", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"agent_name": "email_agent"}, resp.ToolCalls[0].Arguments)
}

func TestChat_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := ollama.NewProvider(server.URL, "missing-model")
	_, err := p.Chat(context.Background(), llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}}, "")
	assert.ErrorContains(t, err, "status 404")
}
