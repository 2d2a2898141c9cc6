package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rcarraroia/renum/internal/domain/share"
)

func (s *Store) CreateShare(ctx context.Context, sh *share.Share) error {
	sh.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO renum_shares (id, agent_id, created_by, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sh.ID, sh.AgentID, sh.CreatedBy, sh.Token, sh.ExpiresAt, sh.CreatedAt)
	if err != nil {
		return fmt.Errorf("create share for agent %s: %w", sh.AgentID, err)
	}
	return nil
}

func (s *Store) GetShareByToken(ctx context.Context, token string) (*share.Share, error) {
	var sh share.Share
	err := s.pool.QueryRow(ctx, `
		SELECT id, agent_id, created_by, token, expires_at, created_at
		FROM renum_shares WHERE token = $1`, token).
		Scan(&sh.ID, &sh.AgentID, &sh.CreatedBy, &sh.Token, &sh.ExpiresAt, &sh.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get share by token")
	}
	return &sh, nil
}

func (s *Store) ListShares(ctx context.Context, agentID string) ([]share.Share, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, agent_id, created_by, token, expires_at, created_at
		FROM renum_shares WHERE agent_id = $1 ORDER BY created_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list shares for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	var shares []share.Share
	for rows.Next() {
		var sh share.Share
		err := rows.Scan(&sh.ID, &sh.AgentID, &sh.CreatedBy, &sh.Token, &sh.ExpiresAt, &sh.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

func (s *Store) DeleteShare(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_shares WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete share %s: %w", id, err)
	}
	return execExpectOne(tag, "delete share %s", id)
}
