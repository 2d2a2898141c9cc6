// Package agentruntime defines the port interface for the execution
// engine that actually runs agents.
package agentruntime

import "context"

// StartRequest carries everything the engine needs to start a run.
type StartRequest struct {
	AgentID      string            `json:"agent_id"`
	ExecutionID  string            `json:"execution_id"`
	Model        string            `json:"model"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	Prompt       string            `json:"prompt"`
	Config       map[string]string `json:"config,omitempty"`
	CallbackURL  string            `json:"callback_url,omitempty"`
}

// RunStatus is a point-in-time snapshot of a remote run.
type RunStatus struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	TokensIn  int64  `json:"tokens_in"`
	TokensOut int64  `json:"tokens_out"`
}

// Runtime is the port interface for the remote execution engine.
type Runtime interface {
	// StartRun submits a run and returns the engine's run ID.
	StartRun(ctx context.Context, req StartRequest) (string, error)

	// GetRun fetches the current state of a run.
	GetRun(ctx context.Context, runID string) (*RunStatus, error)

	// CancelRun asks the engine to stop a run.
	CancelRun(ctx context.Context, runID string) error

	// Health reports whether the engine is reachable.
	Health(ctx context.Context) error
}
