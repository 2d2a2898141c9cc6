package service

import (
	"context"
	"strings"
	"time"

	"github.com/rcarraroia/renum/internal/domain"
	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/domain/knowledgebase"
	"github.com/rcarraroia/renum/internal/domain/share"
	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/port/agentruntime"
	"github.com/rcarraroia/renum/internal/port/database"
	"github.com/rcarraroia/renum/internal/port/eventbus"
)

// mockStore is an in-memory database.Store for service tests.
type mockStore struct {
	users      []user.User
	refresh    []user.RefreshToken
	apiKeys    []user.APIKey
	agents     []agent.Agent
	executions []execution.Execution
	kbs        []knowledgebase.KnowledgeBase
	documents  []knowledgebase.Document
	chunks     []knowledgebase.Chunk
	shares     []share.Share

	// Error hooks. Set these to inject failures.
	createUserErr      error
	createExecutionErr error
	updateExecutionErr error
	searchErr          error

	searchCalls int
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for i := range m.users {
		if strings.EqualFold(m.users[i].Email, email) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	return m.users, nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteUser(_ context.Context, id string) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	m.refresh = append(m.refresh, *rt)
	return nil
}

func (m *mockStore) GetRefreshToken(_ context.Context, hash string) (*user.RefreshToken, error) {
	for i := range m.refresh {
		if m.refresh[i].TokenHash == hash {
			rt := m.refresh[i]
			return &rt, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) RotateRefreshToken(_ context.Context, oldID string, next *user.RefreshToken) error {
	for i := range m.refresh {
		if m.refresh[i].ID == oldID {
			m.refresh[i] = *next
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteRefreshToken(_ context.Context, id string) error {
	for i := range m.refresh {
		if m.refresh[i].ID == id {
			m.refresh = append(m.refresh[:i], m.refresh[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	kept := m.refresh[:0]
	for _, rt := range m.refresh {
		if rt.UserID != userID {
			kept = append(kept, rt)
		}
	}
	m.refresh = kept
	return nil
}

func (m *mockStore) PurgeExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	var purged int64
	kept := m.refresh[:0]
	for _, rt := range m.refresh {
		if rt.ExpiresAt.After(before) {
			kept = append(kept, rt)
		} else {
			purged++
		}
	}
	m.refresh = kept
	return purged, nil
}

func (m *mockStore) CreateAPIKey(_ context.Context, k *user.APIKey) error {
	m.apiKeys = append(m.apiKeys, *k)
	return nil
}

func (m *mockStore) GetAPIKeyByHash(_ context.Context, hash string) (*user.APIKey, error) {
	for i := range m.apiKeys {
		if m.apiKeys[i].KeyHash == hash {
			k := m.apiKeys[i]
			return &k, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListAPIKeys(_ context.Context, userID string) ([]user.APIKey, error) {
	var out []user.APIKey
	for _, k := range m.apiKeys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockStore) RevokeAPIKey(_ context.Context, id string) error {
	for i := range m.apiKeys {
		if m.apiKeys[i].ID == id {
			m.apiKeys = append(m.apiKeys[:i], m.apiKeys[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ListAgents(_ context.Context, ownerID string) ([]agent.Agent, error) {
	if ownerID == "" {
		return m.agents, nil
	}
	var out []agent.Agent
	for _, a := range m.agents {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	for i := range m.agents {
		if m.agents[i].ID == id {
			a := m.agents[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateAgent(_ context.Context, a *agent.Agent) error {
	a.CreatedAt = time.Now()
	m.agents = append(m.agents, *a)
	return nil
}

func (m *mockStore) UpdateAgent(_ context.Context, a *agent.Agent) error {
	for i := range m.agents {
		if m.agents[i].ID == a.ID {
			a.Version++
			m.agents[i] = *a
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteAgent(_ context.Context, id string) error {
	for i := range m.agents {
		if m.agents[i].ID == id {
			m.agents = append(m.agents[:i], m.agents[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) CreateExecution(_ context.Context, e *execution.Execution) error {
	if m.createExecutionErr != nil {
		return m.createExecutionErr
	}
	e.CreatedAt = time.Now()
	m.executions = append(m.executions, *e)
	return nil
}

func (m *mockStore) GetExecution(_ context.Context, id string) (*execution.Execution, error) {
	for i := range m.executions {
		if m.executions[i].ID == id {
			e := m.executions[i]
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetExecutionByRemoteRunID(_ context.Context, runID string) (*execution.Execution, error) {
	for i := range m.executions {
		if m.executions[i].RemoteRunID == runID {
			e := m.executions[i]
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListExecutions(_ context.Context, filter database.ExecutionFilter) ([]execution.Execution, error) {
	var out []execution.Execution
	for _, e := range m.executions {
		if filter.AgentID != "" && e.AgentID != filter.AgentID {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockStore) UpdateExecution(_ context.Context, e *execution.Execution) error {
	if m.updateExecutionErr != nil {
		return m.updateExecutionErr
	}
	for i := range m.executions {
		if m.executions[i].ID == e.ID {
			m.executions[i] = *e
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ListKnowledgeBases(_ context.Context, ownerID string) ([]knowledgebase.KnowledgeBase, error) {
	if ownerID == "" {
		return m.kbs, nil
	}
	var out []knowledgebase.KnowledgeBase
	for _, kb := range m.kbs {
		if kb.OwnerID == ownerID {
			out = append(out, kb)
		}
	}
	return out, nil
}

func (m *mockStore) GetKnowledgeBase(_ context.Context, id string) (*knowledgebase.KnowledgeBase, error) {
	for i := range m.kbs {
		if m.kbs[i].ID == id {
			kb := m.kbs[i]
			return &kb, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateKnowledgeBase(_ context.Context, kb *knowledgebase.KnowledgeBase) error {
	kb.CreatedAt = time.Now()
	m.kbs = append(m.kbs, *kb)
	return nil
}

func (m *mockStore) UpdateKnowledgeBase(_ context.Context, kb *knowledgebase.KnowledgeBase) error {
	for i := range m.kbs {
		if m.kbs[i].ID == kb.ID {
			kb.Version++
			m.kbs[i] = *kb
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteKnowledgeBase(_ context.Context, id string) error {
	for i := range m.kbs {
		if m.kbs[i].ID == id {
			m.kbs = append(m.kbs[:i], m.kbs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ListDocuments(_ context.Context, kbID string) ([]knowledgebase.Document, error) {
	var out []knowledgebase.Document
	for _, d := range m.documents {
		if d.KnowledgeBaseID == kbID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) GetDocument(_ context.Context, id string) (*knowledgebase.Document, error) {
	for i := range m.documents {
		if m.documents[i].ID == id {
			d := m.documents[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateDocument(_ context.Context, doc *knowledgebase.Document, chunks []knowledgebase.Chunk) error {
	doc.CreatedAt = time.Now()
	m.documents = append(m.documents, *doc)
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockStore) DeleteDocument(_ context.Context, id string) error {
	for i := range m.documents {
		if m.documents[i].ID == id {
			m.documents = append(m.documents[:i], m.documents[i+1:]...)
			kept := m.chunks[:0]
			for _, c := range m.chunks {
				if c.DocumentID != id {
					kept = append(kept, c)
				}
			}
			m.chunks = kept
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) SearchChunks(_ context.Context, kbID, query string, topK int) ([]knowledgebase.SearchResult, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var out []knowledgebase.SearchResult
	for _, c := range m.chunks {
		doc, err := m.GetDocument(context.Background(), c.DocumentID)
		if err != nil || doc.KnowledgeBaseID != kbID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Content), strings.ToLower(query)) {
			out = append(out, knowledgebase.SearchResult{
				DocumentID:    doc.ID,
				DocumentTitle: doc.Title,
				ChunkID:       c.ID,
				Position:      c.Position,
				Content:       c.Content,
				Rank:          1,
			})
		}
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (m *mockStore) CreateShare(_ context.Context, s *share.Share) error {
	s.CreatedAt = time.Now()
	m.shares = append(m.shares, *s)
	return nil
}

func (m *mockStore) GetShareByToken(_ context.Context, token string) (*share.Share, error) {
	for i := range m.shares {
		if m.shares[i].Token == token {
			sh := m.shares[i]
			return &sh, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListShares(_ context.Context, agentID string) ([]share.Share, error) {
	var out []share.Share
	for _, sh := range m.shares {
		if sh.AgentID == agentID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteShare(_ context.Context, id string) error {
	for i := range m.shares {
		if m.shares[i].ID == id {
			m.shares = append(m.shares[:i], m.shares[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// mockRuntime is a fake agentruntime.Runtime.
type mockRuntime struct {
	startErr   error
	cancelErr  error
	runStatus  *agentruntime.RunStatus
	started    []agentruntime.StartRequest
	cancelled  []string
	nextRunID  string
	healthErr  error
	getRunErr  error
	getRunSeen []string
}

func (m *mockRuntime) StartRun(_ context.Context, req agentruntime.StartRequest) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}
	m.started = append(m.started, req)
	if m.nextRunID == "" {
		return "run-1", nil
	}
	return m.nextRunID, nil
}

func (m *mockRuntime) GetRun(_ context.Context, runID string) (*agentruntime.RunStatus, error) {
	m.getRunSeen = append(m.getRunSeen, runID)
	if m.getRunErr != nil {
		return nil, m.getRunErr
	}
	if m.runStatus != nil {
		return m.runStatus, nil
	}
	return &agentruntime.RunStatus{RunID: runID, Status: "running"}, nil
}

func (m *mockRuntime) CancelRun(_ context.Context, runID string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, runID)
	return nil
}

func (m *mockRuntime) Health(_ context.Context) error { return m.healthErr }

// mockBus records published execution events.
type mockBus struct {
	events []execution.Event
}

func (m *mockBus) Publish(_ context.Context, ev execution.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *mockBus) Subscribe(context.Context, eventbus.Handler) (func(), error) {
	return func() {}, nil
}
