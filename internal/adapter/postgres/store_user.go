package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rcarraroia/renum/internal/domain/user"
)

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	_, err := s.pool.Exec(ctx, `
		INSERT INTO renum_users (id, email, name, password_hash, role, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Enabled, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, enabled, created_at, updated_at
		FROM renum_users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, enabled, created_at, updated_at
		FROM renum_users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user by email %s", email)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, name, password_hash, role, enabled, created_at, updated_at
		FROM renum_users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE renum_users
		SET email = $2, name = $3, password_hash = $4, role = $5, enabled = $6, updated_at = $7
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Enabled, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return execExpectOne(tag, "update user %s", u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return execExpectOne(tag, "delete user %s", id)
}

func scanUser(row scannable) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Enabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error {
	rt.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO renum_refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rt.ID, rt.UserID, rt.TokenHash, rt.ExpiresAt, rt.CreatedAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, hash string) (*user.RefreshToken, error) {
	var rt user.RefreshToken
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM renum_refresh_tokens WHERE token_hash = $1`, hash).
		Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get refresh token")
	}
	return &rt, nil
}

// RotateRefreshToken atomically replaces a used refresh token with its
// successor. A replay of an already rotated token finds no row to delete and
// fails, so the whole rotation rolls back.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next *user.RefreshToken) error {
	next.CreatedAt = time.Now().UTC()
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("rotate refresh token: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM renum_refresh_tokens WHERE id = $1`, oldID)
	if err != nil {
		return fmt.Errorf("rotate refresh token: delete old: %w", err)
	}
	if err := execExpectOne(tag, "rotate refresh token %s", oldID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO renum_refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt)
	if err != nil {
		return fmt.Errorf("rotate refresh token: insert next: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) DeleteRefreshToken(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete refresh token %s: %w", id, err)
	}
	return execExpectOne(tag, "delete refresh token %s", id)
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM renum_refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens for user %s: %w", userID, err)
	}
	return nil
}

func (s *Store) PurgeExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CreateAPIKey(ctx context.Context, k *user.APIKey) error {
	k.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO renum_api_keys (id, user_id, name, prefix, key_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		k.ID, k.UserID, k.Name, k.Prefix, k.KeyHash, nullTime(k.ExpiresAt), k.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api key %s: %w", k.Name, err)
	}
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*user.APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, prefix, key_hash, expires_at, created_at
		FROM renum_api_keys WHERE key_hash = $1`, hash)
	k, err := scanAPIKey(row)
	if err != nil {
		return nil, notFoundWrap(err, "get api key")
	}
	return k, nil
}

func (s *Store) ListAPIKeys(ctx context.Context, userID string) ([]user.APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, prefix, key_hash, expires_at, created_at
		FROM renum_api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys for user %s: %w", userID, err)
	}
	defer rows.Close()

	var keys []user.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	return execExpectOne(tag, "revoke api key %s", id)
}

func scanAPIKey(row scannable) (*user.APIKey, error) {
	var (
		k         user.APIKey
		expiresAt sql.NullTime
	)
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.Prefix, &k.KeyHash, &expiresAt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	k.ExpiresAt = timeOrZero(expiresAt)
	return &k, nil
}
