package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rcarraroia/renum/internal/domain"
	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/share"
	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/port/database"
)

// ShareService manages public share links for agents.
type ShareService struct {
	store database.Store
}

// NewShareService creates a ShareService.
func NewShareService(store database.Store) *ShareService {
	return &ShareService{store: store}
}

// Create mints an opaque share token for an agent the user owns.
func (s *ShareService) Create(ctx context.Context, u *user.User, agentID string, req share.CreateRequest) (*share.Share, error) {
	a, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleAdmin && a.OwnerID != u.ID {
		return nil, domain.ErrNotFound
	}

	token, err := randomToken(24)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	sh := &share.Share{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		CreatedBy: u.ID,
		Token:     token,
	}
	if req.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
		sh.ExpiresAt = &exp
	}

	if err := s.store.CreateShare(ctx, sh); err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}
	return sh, nil
}

// Resolve returns the shared agent for a token, or ErrNotFound when the
// token is unknown or expired.
func (s *ShareService) Resolve(ctx context.Context, token string) (*agent.Agent, error) {
	sh, err := s.store.GetShareByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sh.Expired(time.Now()) {
		return nil, domain.ErrNotFound
	}
	return s.store.GetAgent(ctx, sh.AgentID)
}

// List returns the shares of an agent the user owns.
func (s *ShareService) List(ctx context.Context, u *user.User, agentID string) ([]share.Share, error) {
	a, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleAdmin && a.OwnerID != u.ID {
		return nil, domain.ErrNotFound
	}
	return s.store.ListShares(ctx, agentID)
}

// Delete revokes a share.
func (s *ShareService) Delete(ctx context.Context, u *user.User, agentID, shareID string) error {
	shares, err := s.List(ctx, u, agentID)
	if err != nil {
		return err
	}
	for _, sh := range shares {
		if sh.ID == shareID {
			return s.store.DeleteShare(ctx, shareID)
		}
	}
	return domain.ErrNotFound
}
