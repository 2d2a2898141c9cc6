// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/domain/knowledgebase"
	"github.com/rcarraroia/renum/internal/domain/share"
	"github.com/rcarraroia/renum/internal/domain/user"
)

// ExecutionFilter narrows ListExecutions. Zero values match everything.
type ExecutionFilter struct {
	AgentID string
	UserID  string
	Status  execution.Status
	Limit   int
}

// Store is the port interface for database operations.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, id string) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error
	GetRefreshToken(ctx context.Context, hash string) (*user.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, next *user.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	PurgeExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)

	// API keys
	CreateAPIKey(ctx context.Context, k *user.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*user.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]user.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error

	// Agents
	ListAgents(ctx context.Context, ownerID string) ([]agent.Agent, error)
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	CreateAgent(ctx context.Context, a *agent.Agent) error
	UpdateAgent(ctx context.Context, a *agent.Agent) error
	DeleteAgent(ctx context.Context, id string) error

	// Executions
	CreateExecution(ctx context.Context, e *execution.Execution) error
	GetExecution(ctx context.Context, id string) (*execution.Execution, error)
	GetExecutionByRemoteRunID(ctx context.Context, runID string) (*execution.Execution, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]execution.Execution, error)
	UpdateExecution(ctx context.Context, e *execution.Execution) error

	// Knowledge bases
	ListKnowledgeBases(ctx context.Context, ownerID string) ([]knowledgebase.KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, id string) (*knowledgebase.KnowledgeBase, error)
	CreateKnowledgeBase(ctx context.Context, kb *knowledgebase.KnowledgeBase) error
	UpdateKnowledgeBase(ctx context.Context, kb *knowledgebase.KnowledgeBase) error
	DeleteKnowledgeBase(ctx context.Context, id string) error

	// Documents and chunks
	ListDocuments(ctx context.Context, kbID string) ([]knowledgebase.Document, error)
	GetDocument(ctx context.Context, id string) (*knowledgebase.Document, error)
	CreateDocument(ctx context.Context, doc *knowledgebase.Document, chunks []knowledgebase.Chunk) error
	DeleteDocument(ctx context.Context, id string) error
	SearchChunks(ctx context.Context, kbID, query string, topK int) ([]knowledgebase.SearchResult, error)

	// Shares
	CreateShare(ctx context.Context, s *share.Share) error
	GetShareByToken(ctx context.Context, token string) (*share.Share, error)
	ListShares(ctx context.Context, agentID string) ([]share.Share, error)
	DeleteShare(ctx context.Context, id string) error
}
