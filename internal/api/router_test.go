package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/invitation-agent/internal/agent"
	"github.com/Rrens/invitation-agent/internal/api"
	"github.com/Rrens/invitation-agent/internal/calendar"
	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/Rrens/invitation-agent/internal/mailer"
	"github.com/Rrens/invitation-agent/internal/repository/sqlite"
	"github.com/Rrens/invitation-agent/internal/security"
	"github.com/Rrens/invitation-agent/internal/service"
	"github.com/Rrens/invitation-agent/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appName = "invitation_agent"

// scriptedProvider replays canned model responses and records requests.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.Response
	requests  []llm.Request
}

func (p *scriptedProvider) Name() string              { return "scripted" }
func (p *scriptedProvider) AvailableModels() []string { return []string{"test-model"} }
func (p *scriptedProvider) DefaultModel() string      { return "test-model" }
func (p *scriptedProvider) IsConfigured() bool        { return true }

func (p *scriptedProvider) Chat(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return &llm.Response{Content: "ok"}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) script(responses ...*llm.Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, responses...)
}

func (p *scriptedProvider) lastRequest() llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type testServer struct {
	*httptest.Server
	provider *scriptedProvider
}

func newTestServer(t *testing.T, withRunner bool) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := security.NewJWTManager("test-secret", "invitation-agent", 30*time.Minute)
	authService := service.NewAuthService(store.Users(), security.NewPasswordHasher(4), jwtManager)

	provider := &scriptedProvider{}
	llmRouter := llm.NewRouter(provider.Name())
	llmRouter.RegisterProvider(provider)

	var runner service.Runner
	if withRunner {
		set := tools.New(
			tools.Config{Location: time.UTC, CalendarDir: t.TempDir()},
			mailer.New(config.EmailConfig{}),
			calendar.NewWriter("", time.UTC),
			nil,
		)
		team, err := agent.NewTeam(
			agent.NewRootAgent(set.Root(), false),
			agent.NewEmailAgent(set.Email()),
		)
		require.NoError(t, err)
		runner = agent.NewRunner(team, provider, agent.RunnerConfig{})
	}

	router := api.NewRouter(api.Dependencies{
		JWTManager:     jwtManager,
		AuthService:    authService,
		ChatService:    service.NewChatService(store.Sessions(), store.Users(), runner, nil, service.ChatOptions{AppName: appName}),
		SessionService: service.NewSessionService(appName, store.Sessions()),
		LLMRouter:      llmRouter,
		Timeout:        10 * time.Second,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) signUp(t *testing.T, username string) string {
	t.Helper()

	status, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username":  username,
		"full_name": strings.ToUpper(username[:1]) + username[1:],
		"email":     username + "@example.com",
		"password":  "secret1",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	return body["access_token"].(string)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, true)

	status, body := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = srv.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, true)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/chat"},
		{http.MethodGet, "/sessions"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/cache/flush"},
	} {
		status, body := srv.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, tc.path)
		assert.NotEmpty(t, body["detail"], tc.path)
	}

	status, _ := srv.do(t, http.MethodGet, "/sessions", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.signUp(t, "alice")

	status, body := srv.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, body, "hashed_password")

	status, body = srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username":  "alice",
		"full_name": "Other",
		"email":     "other@example.com",
		"password":  "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.ErrDuplicateUser.Error(), body["detail"])

	status, body = srv.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bo",
		"email":    "nope",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	fields, ok := body["detail"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")

	status, _ = srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChatConversation(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.signUp(t, "alice")

	srv.provider.script(
		&llm.Response{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "update_invitation_info",
			Arguments: map[string]any{"agenda_name": "Product Launch"},
		}}},
		&llm.Response{Content: "Where will the launch take place?"},
	)

	status, body := srv.do(t, http.MethodPost, "/chat", token, map[string]string{
		"message": "Invite the team to the product launch",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Where will the launch take place?", body["response"])
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)

	srv.provider.script(&llm.Response{Content: "Got it, the main hall."})
	status, body = srv.do(t, http.MethodPost, "/chat", token, map[string]string{
		"message":    "Main hall",
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, sessionID, body["session_id"])

	// The saved state reaches the model on the next turn.
	assert.Contains(t, srv.provider.lastRequest().System, "Product Launch")

	status, body = srv.do(t, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, status)
	sessions := body["sessions"].([]any)
	require.Len(t, sessions, 1)
	first := sessions[0].(map[string]any)
	assert.Equal(t, sessionID, first["session_id"])
	assert.Equal(t, "Product Launch", first["preview"])

	status, body = srv.do(t, http.MethodGet, "/sessions/"+sessionID+"/history", token, nil)
	require.Equal(t, http.StatusOK, status)
	messages := body["messages"].([]any)
	require.Len(t, messages, 4)
	roles := make([]string, 0, len(messages))
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"user", "assistant", "user", "assistant"}, roles)
	assert.Equal(t, "Main hall", messages[2].(map[string]any)["content"])
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.signUp(t, "alice")

	status, body := srv.do(t, http.MethodPost, "/chat", token, map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["detail"])
}

func TestChatWithoutRunner(t *testing.T) {
	srv := newTestServer(t, false)
	token := srv.signUp(t, "alice")

	status, body := srv.do(t, http.MethodPost, "/chat", token, map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotEmpty(t, body["detail"])
}

func TestSessionsAreScopedToOwner(t *testing.T) {
	srv := newTestServer(t, true)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")

	status, body := srv.do(t, http.MethodPost, "/chat", alice, map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, status)
	sessionID := body["session_id"].(string)

	status, _ = srv.do(t, http.MethodGet, "/sessions/"+sessionID+"/history", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(t, http.MethodDelete, "/sessions/"+sessionID, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = srv.do(t, http.MethodGet, "/sessions", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["sessions"])

	// Bob naming Alice's session starts a fresh one of his own.
	status, body = srv.do(t, http.MethodPost, "/chat", bob, map[string]string{
		"message":    "hi",
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, sessionID, body["session_id"])

	status, _ = srv.do(t, http.MethodDelete, "/sessions/"+sessionID, alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = srv.do(t, http.MethodGet, "/sessions/"+sessionID+"/history", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = srv.do(t, http.MethodGet, "/sessions", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["sessions"])

	status, _ = srv.do(t, http.MethodDelete, "/sessions/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLLMProvidersAndCacheFlush(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.signUp(t, "alice")

	status, body := srv.do(t, http.MethodGet, "/llm-providers", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "scripted", body["default_provider"])
	assert.Len(t, body["providers"], 1)

	status, body = srv.do(t, http.MethodPost, "/cache/flush", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cache disabled", body["message"])
}
