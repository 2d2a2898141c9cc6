package http_test

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
	"github.com/rcarraroia/renum/internal/port/database"
)

// fakeStore is a map-backed database.Store for handler tests.
type fakeStore struct {
	users   map[string]user.User
	refresh map[string]user.RefreshToken
	keys    map[string]user.APIKey
	agents  map[string]agent.Agent
	execs   map[string]execution.Execution
	kbs     map[string]knowledgebase.KnowledgeBase
	docs    map[string]knowledgebase.Document
	chunks  map[string][]knowledgebase.Chunk // by document ID
	shares  map[string]share.Share
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]user.User{},
		refresh: map[string]user.RefreshToken{},
		keys:    map[string]user.APIKey{},
		agents:  map[string]agent.Agent{},
		execs:   map[string]execution.Execution{},
		kbs:     map[string]knowledgebase.KnowledgeBase{},
		docs:    map[string]knowledgebase.Document{},
		chunks:  map[string][]knowledgebase.Chunk{},
		shares:  map[string]share.Share{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u *user.User) error {
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrConflict
		}
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListUsers(_ context.Context) ([]user.User, error) {
	var out []user.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *user.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	rt.CreatedAt = time.Now().UTC()
	f.refresh[rt.ID] = *rt
	return nil
}

func (f *fakeStore) GetRefreshToken(_ context.Context, hash string) (*user.RefreshToken, error) {
	for _, rt := range f.refresh {
		if rt.TokenHash == hash {
			rt := rt
			return &rt, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) RotateRefreshToken(_ context.Context, oldID string, next *user.RefreshToken) error {
	if _, ok := f.refresh[oldID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.refresh, oldID)
	f.refresh[next.ID] = *next
	return nil
}

func (f *fakeStore) DeleteRefreshToken(_ context.Context, id string) error {
	if _, ok := f.refresh[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.refresh, id)
	return nil
}

func (f *fakeStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for id, rt := range f.refresh {
		if rt.UserID == userID {
			delete(f.refresh, id)
		}
	}
	return nil
}

func (f *fakeStore) PurgeExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	var purged int64
	for id, rt := range f.refresh {
		if rt.ExpiresAt.Before(before) {
			delete(f.refresh, id)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeStore) CreateAPIKey(_ context.Context, k *user.APIKey) error {
	k.CreatedAt = time.Now().UTC()
	f.keys[k.ID] = *k
	return nil
}

func (f *fakeStore) GetAPIKeyByHash(_ context.Context, hash string) (*user.APIKey, error) {
	for _, k := range f.keys {
		if k.KeyHash == hash {
			k := k
			return &k, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListAPIKeys(_ context.Context, userID string) ([]user.APIKey, error) {
	var out []user.APIKey
	for _, k := range f.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) RevokeAPIKey(_ context.Context, id string) error {
	if _, ok := f.keys[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.keys, id)
	return nil
}

func (f *fakeStore) ListAgents(_ context.Context, ownerID string) ([]agent.Agent, error) {
	var out []agent.Agent
	for _, a := range f.agents {
		if ownerID == "" || a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	if a, ok := f.agents[id]; ok {
		return &a, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) CreateAgent(_ context.Context, a *agent.Agent) error {
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	f.agents[a.ID] = *a
	return nil
}

func (f *fakeStore) UpdateAgent(_ context.Context, a *agent.Agent) error {
	if _, ok := f.agents[a.ID]; !ok {
		return domain.ErrNotFound
	}
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	f.agents[a.ID] = *a
	return nil
}

func (f *fakeStore) DeleteAgent(_ context.Context, id string) error {
	if _, ok := f.agents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.agents, id)
	return nil
}

func (f *fakeStore) CreateExecution(_ context.Context, e *execution.Execution) error {
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	f.execs[e.ID] = *e
	return nil
}

func (f *fakeStore) GetExecution(_ context.Context, id string) (*execution.Execution, error) {
	if e, ok := f.execs[id]; ok {
		return &e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) GetExecutionByRemoteRunID(_ context.Context, runID string) (*execution.Execution, error) {
	for _, e := range f.execs {
		if e.RemoteRunID == runID {
			e := e
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListExecutions(_ context.Context, filter database.ExecutionFilter) ([]execution.Execution, error) {
	var out []execution.Execution
	for _, e := range f.execs {
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

func (f *fakeStore) UpdateExecution(_ context.Context, e *execution.Execution) error {
	if _, ok := f.execs[e.ID]; !ok {
		return domain.ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	f.execs[e.ID] = *e
	return nil
}

func (f *fakeStore) ListKnowledgeBases(_ context.Context, ownerID string) ([]knowledgebase.KnowledgeBase, error) {
	var out []knowledgebase.KnowledgeBase
	for _, kb := range f.kbs {
		if ownerID == "" || kb.OwnerID == ownerID {
			out = append(out, kb)
		}
	}
	return out, nil
}

func (f *fakeStore) GetKnowledgeBase(_ context.Context, id string) (*knowledgebase.KnowledgeBase, error) {
	if kb, ok := f.kbs[id]; ok {
		return &kb, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) CreateKnowledgeBase(_ context.Context, kb *knowledgebase.KnowledgeBase) error {
	kb.CreatedAt = time.Now().UTC()
	kb.UpdatedAt = kb.CreatedAt
	f.kbs[kb.ID] = *kb
	return nil
}

func (f *fakeStore) UpdateKnowledgeBase(_ context.Context, kb *knowledgebase.KnowledgeBase) error {
	if _, ok := f.kbs[kb.ID]; !ok {
		return domain.ErrNotFound
	}
	kb.Version++
	kb.UpdatedAt = time.Now().UTC()
	f.kbs[kb.ID] = *kb
	return nil
}

func (f *fakeStore) DeleteKnowledgeBase(_ context.Context, id string) error {
	if _, ok := f.kbs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.kbs, id)
	return nil
}

func (f *fakeStore) ListDocuments(_ context.Context, kbID string) ([]knowledgebase.Document, error) {
	var out []knowledgebase.Document
	for _, d := range f.docs {
		if d.KnowledgeBaseID == kbID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (*knowledgebase.Document, error) {
	if d, ok := f.docs[id]; ok {
		return &d, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *knowledgebase.Document, chunks []knowledgebase.Chunk) error {
	doc.CreatedAt = time.Now().UTC()
	f.docs[doc.ID] = *doc
	f.chunks[doc.ID] = chunks
	return nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.docs, id)
	delete(f.chunks, id)
	return nil
}

func (f *fakeStore) SearchChunks(_ context.Context, kbID, query string, topK int) ([]knowledgebase.SearchResult, error) {
	var out []knowledgebase.SearchResult
	for docID, chunks := range f.chunks {
		doc := f.docs[docID]
		if doc.KnowledgeBaseID != kbID {
			continue
		}
		for _, c := range chunks {
			if len(out) == topK {
				return out, nil
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
		}
	}
	return out, nil
}

func (f *fakeStore) CreateShare(_ context.Context, s *share.Share) error {
	s.CreatedAt = time.Now().UTC()
	f.shares[s.ID] = *s
	return nil
}

func (f *fakeStore) GetShareByToken(_ context.Context, token string) (*share.Share, error) {
	for _, sh := range f.shares {
		if sh.Token == token {
			sh := sh
			return &sh, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListShares(_ context.Context, agentID string) ([]share.Share, error) {
	var out []share.Share
	for _, sh := range f.shares {
		if sh.AgentID == agentID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteShare(_ context.Context, id string) error {
	if _, ok := f.shares[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.shares, id)
	return nil
}
