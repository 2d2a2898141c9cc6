package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rcarraroia/renum/internal/domain"
	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/port/database"
)

// AgentService handles agent CRUD. Non-admin users only see their own
// agents.
type AgentService struct {
	store database.Store
}

// NewAgentService creates a new AgentService.
func NewAgentService(store database.Store) *AgentService {
	return &AgentService{store: store}
}

// List returns agents visible to the user. Admins see everything.
func (s *AgentService) List(ctx context.Context, u *user.User) ([]agent.Agent, error) {
	if u.Role == user.RoleAdmin {
		return s.store.ListAgents(ctx, "")
	}
	return s.store.ListAgents(ctx, u.ID)
}

// Get returns an agent the user may see.
func (s *AgentService) Get(ctx context.Context, u *user.User, id string) (*agent.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleAdmin && a.OwnerID != u.ID {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// Create validates and persists a new agent owned by the user.
func (s *AgentService) Create(ctx context.Context, u *user.User, req *agent.CreateRequest) (*agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	a := &agent.Agent{
		ID:           uuid.NewString(),
		OwnerID:      u.ID,
		Name:         req.Name,
		Description:  req.Description,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Config:       req.Config,
		Status:       agent.StatusActive,
		Version:      1,
	}
	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// Update applies partial updates. The store enforces optimistic
// concurrency on the version column.
func (s *AgentService) Update(ctx context.Context, u *user.User, id string, req agent.UpdateRequest) (*agent.Agent, error) {
	a, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Model != nil {
		a.Model = *req.Model
	}
	if req.SystemPrompt != nil {
		a.SystemPrompt = *req.SystemPrompt
	}
	if req.Config != nil {
		a.Config = req.Config
	}
	if req.Status != nil {
		if !agent.ValidStatus(*req.Status) {
			return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *req.Status)
		}
		a.Status = *req.Status
	}
	if a.Name == "" || a.Model == "" {
		return nil, fmt.Errorf("%w: name and model are required", domain.ErrValidation)
	}

	if err := s.store.UpdateAgent(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an agent the user owns.
func (s *AgentService) Delete(ctx context.Context, u *user.User, id string) error {
	if _, err := s.Get(ctx, u, id); err != nil {
		return err
	}
	return s.store.DeleteAgent(ctx, id)
}
