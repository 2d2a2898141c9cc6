package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/port/database"
)

const executionColumns = `id, agent_id, user_id, remote_run_id, prompt, status, output, error,
	tokens_in, tokens_out, started_at, completed_at, created_at, updated_at`

func (s *Store) CreateExecution(ctx context.Context, e *execution.Execution) error {
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	_, err := s.pool.Exec(ctx, `
		INSERT INTO renum_executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.AgentID, e.UserID, nullString(e.RemoteRunID), e.Prompt, e.Status,
		nullString(e.Output), nullString(e.Error), e.TokensIn, e.TokensOut,
		nullTime(e.StartedAt), e.CompletedAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create execution %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+executionColumns+` FROM renum_executions WHERE id = $1`, id)
	e, err := scanExecution(row)
	if err != nil {
		return nil, notFoundWrap(err, "get execution %s", id)
	}
	return e, nil
}

func (s *Store) GetExecutionByRemoteRunID(ctx context.Context, runID string) (*execution.Execution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+executionColumns+` FROM renum_executions WHERE remote_run_id = $1`, runID)
	e, err := scanExecution(row)
	if err != nil {
		return nil, notFoundWrap(err, "get execution by run %s", runID)
	}
	return e, nil
}

func (s *Store) ListExecutions(ctx context.Context, filter database.ExecutionFilter) ([]execution.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM renum_executions`
	var (
		clauses []string
		args    []any
	)
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		clauses = append(clauses, "agent_id = $"+strconv.Itoa(len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, "user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []execution.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

func (s *Store) UpdateExecution(ctx context.Context, e *execution.Execution) error {
	e.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE renum_executions
		SET remote_run_id = $2, status = $3, output = $4, error = $5,
		    tokens_in = $6, tokens_out = $7, started_at = $8, completed_at = $9, updated_at = $10
		WHERE id = $1`,
		e.ID, nullString(e.RemoteRunID), e.Status, nullString(e.Output), nullString(e.Error),
		e.TokensIn, e.TokensOut, nullTime(e.StartedAt), e.CompletedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update execution %s: %w", e.ID, err)
	}
	return execExpectOne(tag, "update execution %s", e.ID)
}

func scanExecution(row scannable) (*execution.Execution, error) {
	var (
		e           execution.Execution
		remoteRunID sql.NullString
		output      sql.NullString
		errMsg      sql.NullString
		startedAt   sql.NullTime
	)
	err := row.Scan(&e.ID, &e.AgentID, &e.UserID, &remoteRunID, &e.Prompt, &e.Status,
		&output, &errMsg, &e.TokensIn, &e.TokensOut, &startedAt, &e.CompletedAt,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.RemoteRunID = stringOrEmpty(remoteRunID)
	e.Output = stringOrEmpty(output)
	e.Error = stringOrEmpty(errMsg)
	e.StartedAt = timeOrZero(startedAt)
	return &e, nil
}
