package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcarraroia/renum/internal/domain/agent"
)

func (s *Store) ListAgents(ctx context.Context, ownerID string) ([]agent.Agent, error) {
	query := `
		SELECT id, owner_id, name, description, model, system_prompt, config, status, version, created_at, updated_at
		FROM renum_agents`
	args := []any{}
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, description, model, system_prompt, config, status, version, created_at, updated_at
		FROM renum_agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get agent %s", id)
	}
	return a, nil
}

func (s *Store) CreateAgent(ctx context.Context, a *agent.Agent) error {
	cfg, err := marshalConfig(a.Config)
	if err != nil {
		return fmt.Errorf("create agent %s: %w", a.Name, err)
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	_, err = s.pool.Exec(ctx, `
		INSERT INTO renum_agents (id, owner_id, name, description, model, system_prompt, config, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.OwnerID, a.Name, a.Description, a.Model, a.SystemPrompt, cfg, a.Status, a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create agent %s: %w", a.Name, err)
	}
	return nil
}

// UpdateAgent writes the agent back and bumps its version. The version
// check makes a writer holding a stale copy lose with domain.ErrNotFound.
func (s *Store) UpdateAgent(ctx context.Context, a *agent.Agent) error {
	cfg, err := marshalConfig(a.Config)
	if err != nil {
		return fmt.Errorf("update agent %s: %w", a.ID, err)
	}
	err = s.pool.QueryRow(ctx, `
		UPDATE renum_agents
		SET name = $2, description = $3, model = $4, system_prompt = $5, config = $6,
		    status = $7, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $8
		RETURNING version, updated_at`,
		a.ID, a.Name, a.Description, a.Model, a.SystemPrompt, cfg, a.Status, a.Version).
		Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		return notFoundWrap(err, "update agent %s", a.ID)
	}
	return nil
}

func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return execExpectOne(tag, "delete agent %s", id)
}

func scanAgent(row scannable) (*agent.Agent, error) {
	var (
		a   agent.Agent
		cfg []byte
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.Model, &a.SystemPrompt,
		&cfg, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &a.Config); err != nil {
			return nil, fmt.Errorf("decode agent config: %w", err)
		}
	}
	return &a, nil
}

func marshalConfig(cfg map[string]string) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(cfg)
}
