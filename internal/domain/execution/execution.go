// Package execution defines the agent execution domain model.
package execution

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of an execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Execution represents a single agent run proxied to the core execution engine.
type Execution struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	UserID      string     `json:"user_id"`
	RemoteRunID string     `json:"remote_run_id,omitempty"`
	Prompt      string     `json:"prompt"`
	Status      Status     `json:"status"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	TokensIn    int64      `json:"tokens_in"`
	TokensOut   int64      `json:"tokens_out"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateRequest holds the input for starting an execution.
type CreateRequest struct {
	AgentID string `json:"agent_id"`
	Prompt  string `json:"prompt"`
}

// Validate checks that a CreateRequest is well-formed.
func (r *CreateRequest) Validate() error {
	if r.AgentID == "" {
		return errors.New("agent_id is required")
	}
	if r.Prompt == "" {
		return errors.New("prompt is required")
	}
	if len(r.Prompt) > 64*1024 {
		return errors.New("prompt too long (max 64 KiB)")
	}
	return nil
}

// CallbackRequest is the payload the core execution engine posts back when a
// run finishes.
type CallbackRequest struct {
	RemoteRunID string `json:"run_id"`
	Status      Status `json:"status"`
	Output      string `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
	TokensIn    int64  `json:"tokens_in"`
	TokensOut   int64  `json:"tokens_out"`
}

// Validate checks that a CallbackRequest carries a terminal status.
func (r *CallbackRequest) Validate() error {
	if r.RemoteRunID == "" {
		return errors.New("run_id is required")
	}
	if !r.Status.Terminal() {
		return errors.New("status must be terminal: completed, failed, or cancelled")
	}
	return nil
}

// Event is the lifecycle notification published on the event bus and relayed
// to WebSocket subscribers.
type Event struct {
	ExecutionID string    `json:"execution_id"`
	AgentID     string    `json:"agent_id"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}
