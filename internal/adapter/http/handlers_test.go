package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	rnhttp "github.com/rcarraroia/renum/internal/adapter/http"
	"github.com/rcarraroia/renum/internal/adapter/ws"
	"github.com/rcarraroia/renum/internal/config"
	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/domain/knowledgebase"
	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/middleware"
	"github.com/rcarraroia/renum/internal/port/agentruntime"
	"github.com/rcarraroia/renum/internal/service"
)

const testServiceKey = "svc-key-test"

// fakeRuntime is a stub agentruntime.Runtime for handler tests.
type fakeRuntime struct {
	startErr error
	nextID   int
}

func (f *fakeRuntime) StartRun(context.Context, agentruntime.StartRequest) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.nextID++
	return fmt.Sprintf("run-%d", f.nextID), nil
}

func (f *fakeRuntime) GetRun(_ context.Context, runID string) (*agentruntime.RunStatus, error) {
	return &agentruntime.RunStatus{RunID: runID, Status: "running"}, nil
}

func (f *fakeRuntime) CancelRun(context.Context, string) error { return nil }
func (f *fakeRuntime) Health(context.Context) error            { return nil }

type testServer struct {
	srv   *httptest.Server
	auth  *service.AuthService
	store *fakeStore
}

// newTestServer assembles the full router with real services over the
// fake store.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := newFakeStore()
	authCfg := &config.Auth{
		Enabled:            true,
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
		BcryptCost:         4,
	}
	authSvc := service.NewAuthService(store, authCfg)
	hub := ws.NewHub()

	handlers := &rnhttp.Handlers{
		Auth:           authSvc,
		Agents:         service.NewAgentService(store),
		Executions:     service.NewExecutionService(store, &fakeRuntime{}, nil, "http://localhost/api/v1/executions/callback"),
		KnowledgeBases: service.NewKnowledgeBaseService(store, nil, 50, 10, 5, time.Minute),
		Shares:         service.NewShareService(store),
		Hub:            hub,
		CallbackKey:    testServiceKey,
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(authSvc, true))
	r.Get("/health", handlers.Health)
	r.Get("/health/config", handlers.HealthConfig)
	rnhttp.MountRoutes(r, handlers)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, auth: authSvc, store: store}
}

// register creates a user directly through the auth service.
func (ts *testServer) register(t *testing.T, email string, role user.Role) *user.User {
	t.Helper()
	u, err := ts.auth.Register(context.Background(), &user.CreateRequest{
		Email:    email,
		Name:     "Test " + string(role),
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

// token issues an access token for the user.
func (ts *testServer) token(t *testing.T, u *user.User) string {
	t.Helper()
	tok, err := ts.auth.IssueAccessToken(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// do sends a JSON request with an optional bearer token.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("got status %v, want ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("version missing from health response")
	}
}

func TestHealthConfig(t *testing.T) {
	ts := newTestServer(t)

	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key-1234567890")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key-1234567890")

	resp := ts.do(t, http.MethodGet, "/health/config", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("got status %v, want ok", body["status"])
	}

	t.Setenv("SUPABASE_SERVICE_KEY", "")
	resp = ts.do(t, http.MethodGet, "/health/config", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got status %d with missing var, want 503", resp.StatusCode)
	}
}

func TestUnauthenticatedRequestIsChallenged(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/agents", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("got WWW-Authenticate %q, want Bearer", got)
	}
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "op@example.com", user.RoleOperator)

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", user.LoginRequest{
		Email:    "op@example.com",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got status %d, want 200", resp.StatusCode)
	}
	login := decode[user.LoginResponse](t, resp)
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatal("login response missing tokens")
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: got status %d, want 200", resp.StatusCode)
	}
	me := decode[user.User](t, resp)
	if me.Email != "op@example.com" || me.Role != user.RoleOperator {
		t.Errorf("got user %+v", me)
	}
}

func TestLoginBadPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "op@example.com", user.RoleOperator)

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", user.LoginRequest{
		Email:    "op@example.com",
		Password: "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", resp.StatusCode)
	}
}

func TestRefreshRotation(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "op@example.com", user.RoleOperator)

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", user.LoginRequest{
		Email:    "op@example.com",
		Password: "password123",
	})
	login := decode[user.LoginResponse](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]string{"refresh_token": login.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: got status %d, want 200", resp.StatusCode)
	}
	refreshed := decode[user.LoginResponse](t, resp)
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The consumed token must be dead.
	resp = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]string{"refresh_token": login.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("replayed refresh: got status %d, want 401", resp.StatusCode)
	}
}

func TestAdminOnlyUsersRoute(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(t, "admin@example.com", user.RoleAdmin)
	op := ts.register(t, "op@example.com", user.RoleOperator)

	resp := ts.do(t, http.MethodGet, "/api/v1/users", ts.token(t, op), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("operator: got status %d, want 403", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/users", ts.token(t, admin), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin: got status %d, want 200", resp.StatusCode)
	}
}

func TestAdminConfigReport(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(t, "admin@example.com", user.RoleAdmin)
	op := ts.register(t, "op@example.com", user.RoleOperator)

	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key-1234567890")
	t.Setenv("SUPABASE_SERVICE_KEY", "")

	resp := ts.do(t, http.MethodGet, "/api/v1/admin/config", ts.token(t, op), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("operator: got status %d, want 403", resp.StatusCode)
	}

	// Incomplete environment still reports 200 for admins.
	resp = ts.do(t, http.MethodGet, "/api/v1/admin/config", ts.token(t, admin), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin: got status %d, want 200", resp.StatusCode)
	}
	report := decode[map[string]any](t, resp)
	if report["status"] == "ok" {
		t.Errorf("got status %v with missing var, want degraded report", report["status"])
	}
}

func TestAgentCRUD(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/agents", tok, agent.CreateRequest{
		Name:  "researcher",
		Model: "gpt-test",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got status %d, want 201", resp.StatusCode)
	}
	created := decode[agent.Agent](t, resp)
	if created.OwnerID != op.ID || created.Status != agent.StatusActive {
		t.Errorf("got agent %+v", created)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Errorf("create response missing timestamps: created %v updated %v", created.CreatedAt, created.UpdatedAt)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/agents/"+created.ID, tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: got status %d, want 200", resp.StatusCode)
	}

	newName := "renamed"
	resp = ts.do(t, http.MethodPut, "/api/v1/agents/"+created.ID, tok, agent.UpdateRequest{Name: &newName})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: got status %d, want 200", resp.StatusCode)
	}
	updated := decode[agent.Agent](t, resp)
	if updated.Name != "renamed" || updated.Version != 2 {
		t.Errorf("got agent %+v after update", updated)
	}

	resp = ts.do(t, http.MethodDelete, "/api/v1/agents/"+created.ID, tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: got status %d, want 204", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/agents/"+created.ID, tok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted: got status %d, want 404", resp.StatusCode)
	}
}

func TestAgentOwnerIsolation(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	other := ts.register(t, "other@example.com", user.RoleOperator)

	resp := ts.do(t, http.MethodPost, "/api/v1/agents", ts.token(t, op), agent.CreateRequest{
		Name:  "private",
		Model: "gpt-test",
	})
	created := decode[agent.Agent](t, resp)

	resp = ts.do(t, http.MethodGet, "/api/v1/agents/"+created.ID, ts.token(t, other), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("other user: got status %d, want 404", resp.StatusCode)
	}
}

func TestExecutionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/agents", tok, agent.CreateRequest{
		Name:  "runner",
		Model: "gpt-test",
	})
	a := decode[agent.Agent](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/v1/executions", tok, execution.CreateRequest{
		AgentID: a.ID,
		Prompt:  "do the thing",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create execution: got status %d, want 201", resp.StatusCode)
	}
	e := decode[execution.Execution](t, resp)
	if e.Status != execution.StatusRunning || e.RemoteRunID == "" {
		t.Fatalf("got execution %+v", e)
	}

	// Engine posts the result back with the service key.
	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/executions/callback",
		bytes.NewBufferString(fmt.Sprintf(
			`{"run_id":%q,"status":"completed","output":"done","tokens_in":10,"tokens_out":20}`, e.RemoteRunID)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Key", testServiceKey)
	cbResp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	defer func() { _ = cbResp.Body.Close() }()
	if cbResp.StatusCode != http.StatusOK {
		t.Fatalf("callback: got status %d, want 200", cbResp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/executions/"+e.ID, tok, nil)
	final := decode[execution.Execution](t, resp)
	if final.Status != execution.StatusCompleted || final.Output != "done" {
		t.Errorf("got execution %+v after callback", final)
	}
}

func TestListAgentExecutions(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/agents", tok, agent.CreateRequest{Name: "a1", Model: "gpt-test"})
	a1 := decode[agent.Agent](t, resp)
	resp = ts.do(t, http.MethodPost, "/api/v1/agents", tok, agent.CreateRequest{Name: "a2", Model: "gpt-test"})
	a2 := decode[agent.Agent](t, resp)

	ts.do(t, http.MethodPost, "/api/v1/executions", tok, execution.CreateRequest{AgentID: a1.ID, Prompt: "one"})
	ts.do(t, http.MethodPost, "/api/v1/executions", tok, execution.CreateRequest{AgentID: a2.ID, Prompt: "two"})

	resp = ts.do(t, http.MethodGet, "/api/v1/agents/"+a1.ID+"/executions", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	execs := decode[[]execution.Execution](t, resp)
	if len(execs) != 1 || execs[0].AgentID != a1.ID {
		t.Errorf("got %d executions for agent %s", len(execs), a1.ID)
	}
}

func TestExecutionCallbackRejectsBadKey(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/executions/callback",
		bytes.NewBufferString(`{"run_id":"run-1","status":"completed"}`))
	req.Header.Set("X-Service-Key", "wrong-key")
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", resp.StatusCode)
	}
}

func TestCancelExecution(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/agents", tok, agent.CreateRequest{Name: "runner", Model: "gpt-test"})
	a := decode[agent.Agent](t, resp)
	resp = ts.do(t, http.MethodPost, "/api/v1/executions", tok, execution.CreateRequest{AgentID: a.ID, Prompt: "p"})
	e := decode[execution.Execution](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/v1/executions/"+e.ID+"/cancel", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: got status %d, want 200", resp.StatusCode)
	}
	cancelled := decode[execution.Execution](t, resp)
	if cancelled.Status != execution.StatusCancelled {
		t.Errorf("got status %s, want cancelled", cancelled.Status)
	}

	// A second cancel conflicts.
	resp = ts.do(t, http.MethodPost, "/api/v1/executions/"+e.ID+"/cancel", tok, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double cancel: got status %d, want 409", resp.StatusCode)
	}
}

func TestKnowledgeBaseFlow(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/knowledge-bases", tok, knowledgebase.CreateRequest{
		Name: "docs",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create kb: got status %d, want 201", resp.StatusCode)
	}
	kb := decode[knowledgebase.KnowledgeBase](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/v1/knowledge-bases/"+kb.ID+"/documents", tok,
		knowledgebase.AddDocumentRequest{
			Title:   "runbook",
			Content: "restart the ingestion worker after deploys",
		})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add document: got status %d, want 201", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPost, "/api/v1/knowledge-bases/"+kb.ID+"/search", tok,
		knowledgebase.SearchRequest{Query: "ingestion"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: got status %d, want 200", resp.StatusCode)
	}
	results := decode[[]knowledgebase.SearchResult](t, resp)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].DocumentTitle != "runbook" {
		t.Errorf("got result %+v", results[0])
	}
}

func TestSharedAgentIsPublic(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/agents", tok, agent.CreateRequest{Name: "public", Model: "gpt-test"})
	a := decode[agent.Agent](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/v1/agents/"+a.ID+"/shares", tok, map[string]any{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create share: got status %d, want 201", resp.StatusCode)
	}
	sh := decode[map[string]any](t, resp)
	token, _ := sh["token"].(string)
	if token == "" {
		t.Fatal("share token missing")
	}

	// No Authorization header at all.
	resp = ts.do(t, http.MethodGet, "/shared/"+token, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("shared: got status %d, want 200", resp.StatusCode)
	}
	view := decode[map[string]any](t, resp)
	if view["name"] != "public" {
		t.Errorf("got shared view %v", view)
	}
	if _, leaked := view["system_prompt"]; leaked {
		t.Error("shared view leaks system prompt")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/api-keys", tok, user.CreateAPIKeyRequest{Name: "ci"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create key: got status %d, want 201", resp.StatusCode)
	}
	created := decode[user.CreateAPIKeyResponse](t, resp)
	if created.PlainKey == "" {
		t.Fatal("plaintext key missing")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/v1/agents", nil)
	req.Header.Set("X-API-Key", created.PlainKey)
	keyResp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("api key request: %v", err)
	}
	defer func() { _ = keyResp.Body.Close() }()
	if keyResp.StatusCode != http.StatusOK {
		t.Errorf("got status %d with api key, want 200", keyResp.StatusCode)
	}
}

func TestRequestBodyValidation(t *testing.T) {
	ts := newTestServer(t)
	op := ts.register(t, "op@example.com", user.RoleOperator)
	tok := ts.token(t, op)

	// Missing model
	resp := ts.do(t, http.MethodPost, "/api/v1/agents", tok, map[string]string{"name": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", resp.StatusCode)
	}

	// Malformed JSON
	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/agents", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+tok)
	malformed, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("malformed request: %v", err)
	}
	defer func() { _ = malformed.Body.Close() }()
	if malformed.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed JSON: got status %d, want 400", malformed.StatusCode)
	}
}
