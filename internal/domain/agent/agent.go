// Package agent defines the agent domain model.
package agent

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of an agent.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusArchived Status = "archived"
)

// ValidStatus reports whether s is a known agent status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusDisabled, StatusArchived:
		return true
	}
	return false
}

// Agent represents a configured agent whose executions are forwarded to the
// core execution engine.
type Agent struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"owner_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Model        string            `json:"model"`
	SystemPrompt string            `json:"system_prompt"`
	Config       map[string]string `json:"config"`
	Status       Status            `json:"status"`
	Version      int               `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// CreateRequest holds the input for creating an agent.
type CreateRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Model        string            `json:"model"`
	SystemPrompt string            `json:"system_prompt"`
	Config       map[string]string `json:"config"`
}

// Validate checks that a CreateRequest is well-formed.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > 128 {
		return errors.New("name too long (max 128 chars)")
	}
	if r.Model == "" {
		return errors.New("model is required")
	}
	return nil
}

// UpdateRequest holds the input for updating an agent. Nil fields are left
// unchanged; Config is a full replace when non-nil.
type UpdateRequest struct {
	Name         *string           `json:"name,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Model        *string           `json:"model,omitempty"`
	SystemPrompt *string           `json:"system_prompt,omitempty"`
	Config       map[string]string `json:"config,omitempty"`
	Status       *Status           `json:"status,omitempty"`
}
