package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	rnotel "github.com/rcarraroia/renum/internal/adapter/otel"
	"github.com/rcarraroia/renum/internal/domain"
	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/port/agentruntime"
	"github.com/rcarraroia/renum/internal/port/database"
	"github.com/rcarraroia/renum/internal/port/eventbus"
)

// ExecutionService proxies agent runs to the core execution engine and
// tracks their lifecycle.
type ExecutionService struct {
	store       database.Store
	runtime     agentruntime.Runtime
	bus         eventbus.Bus
	callbackURL string
	metrics     *rnotel.Metrics
}

// NewExecutionService creates an ExecutionService. bus may be nil when
// the event stream is disabled.
func NewExecutionService(store database.Store, runtime agentruntime.Runtime, bus eventbus.Bus, callbackURL string) *ExecutionService {
	return &ExecutionService{
		store:       store,
		runtime:     runtime,
		bus:         bus,
		callbackURL: callbackURL,
	}
}

// SetMetrics attaches metric instruments. Metrics are optional; a nil
// receiver value disables recording.
func (s *ExecutionService) SetMetrics(m *rnotel.Metrics) {
	s.metrics = m
}

// Create starts a new execution: the run is registered locally, then
// forwarded to the execution engine. A failed handoff marks the
// execution failed and returns the engine error.
func (s *ExecutionService) Create(ctx context.Context, u *user.User, req *execution.CreateRequest) (*execution.Execution, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	a, err := s.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleAdmin && a.OwnerID != u.ID {
		return nil, domain.ErrNotFound
	}
	if a.Status != agent.StatusActive {
		return nil, fmt.Errorf("%w: agent is %s", domain.ErrConflict, a.Status)
	}

	e := &execution.Execution{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		UserID:    u.ID,
		Prompt:    req.Prompt,
		Status:    execution.StatusPending,
		StartedAt: time.Now(),
	}
	ctx, span := rnotel.StartExecutionSpan(ctx, e.ID, a.ID)
	defer span.End()
	if err := s.store.CreateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	s.publish(ctx, e)

	runID, err := s.runtime.StartRun(ctx, agentruntime.StartRequest{
		AgentID:      a.ID,
		ExecutionID:  e.ID,
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
		Prompt:       req.Prompt,
		Config:       a.Config,
		CallbackURL:  s.callbackURL,
	})
	if err != nil {
		e.Status = execution.StatusFailed
		e.Error = err.Error()
		now := time.Now()
		e.CompletedAt = &now
		if uerr := s.store.UpdateExecution(ctx, e); uerr != nil {
			slog.Error("failed to record execution handoff failure", "execution_id", e.ID, "error", uerr)
		}
		s.publish(ctx, e)
		s.recordTerminal(ctx, e)
		return nil, fmt.Errorf("start run: %w", err)
	}

	e.RemoteRunID = runID
	e.Status = execution.StatusRunning
	if err := s.store.UpdateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}
	s.publish(ctx, e)
	if s.metrics != nil {
		s.metrics.ExecutionsStarted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent_id", a.ID),
			attribute.String("model", a.Model),
		))
	}
	return e, nil
}

// Get returns an execution visible to the user.
func (s *ExecutionService) Get(ctx context.Context, u *user.User, id string) (*execution.Execution, error) {
	e, err := s.store.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleAdmin && e.UserID != u.ID {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// List returns executions matching the filter, scoped to the user for
// non-admins.
func (s *ExecutionService) List(ctx context.Context, u *user.User, filter database.ExecutionFilter) ([]execution.Execution, error) {
	if u.Role != user.RoleAdmin {
		filter.UserID = u.ID
	}
	return s.store.ListExecutions(ctx, filter)
}

// HandleCallback applies a terminal result posted by the execution
// engine. Replayed callbacks for already-finished runs are ignored.
func (s *ExecutionService) HandleCallback(ctx context.Context, req *execution.CallbackRequest) (*execution.Execution, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	e, err := s.store.GetExecutionByRemoteRunID(ctx, req.RemoteRunID)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() {
		return e, nil
	}

	e.Status = req.Status
	e.Output = req.Output
	e.Error = req.Error
	e.TokensIn = req.TokensIn
	e.TokensOut = req.TokensOut
	now := time.Now()
	e.CompletedAt = &now

	if err := s.store.UpdateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}
	s.publish(ctx, e)
	s.recordTerminal(ctx, e)
	return e, nil
}

// Cancel asks the engine to stop a running execution.
func (s *ExecutionService) Cancel(ctx context.Context, u *user.User, id string) (*execution.Execution, error) {
	e, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() {
		return nil, fmt.Errorf("%w: execution already %s", domain.ErrConflict, e.Status)
	}

	if e.RemoteRunID != "" {
		if err := s.runtime.CancelRun(ctx, e.RemoteRunID); err != nil {
			return nil, fmt.Errorf("cancel run: %w", err)
		}
	}

	e.Status = execution.StatusCancelled
	now := time.Now()
	e.CompletedAt = &now
	if err := s.store.UpdateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}
	s.publish(ctx, e)
	s.recordTerminal(ctx, e)
	return e, nil
}

// Sync polls the engine for a non-terminal execution and applies any
// progress. Used as a fallback when callbacks are lost.
func (s *ExecutionService) Sync(ctx context.Context, u *user.User, id string) (*execution.Execution, error) {
	e, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if e.Status.Terminal() || e.RemoteRunID == "" {
		return e, nil
	}

	st, err := s.runtime.GetRun(ctx, e.RemoteRunID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	next := execution.Status(st.Status)
	if next == e.Status {
		return e, nil
	}
	e.Status = next
	e.Output = st.Output
	e.Error = st.Error
	e.TokensIn = st.TokensIn
	e.TokensOut = st.TokensOut
	if next.Terminal() {
		now := time.Now()
		e.CompletedAt = &now
	}
	if err := s.store.UpdateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}
	s.publish(ctx, e)
	if next.Terminal() {
		s.recordTerminal(ctx, e)
	}
	return e, nil
}

// recordTerminal updates metric instruments when an execution reaches a
// final state.
func (s *ExecutionService) recordTerminal(ctx context.Context, e *execution.Execution) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent_id", e.AgentID),
		attribute.String("status", string(e.Status)),
	)
	if e.Status == execution.StatusCompleted {
		s.metrics.ExecutionsCompleted.Add(ctx, 1, attrs)
	} else {
		s.metrics.ExecutionsFailed.Add(ctx, 1, attrs)
	}
	if e.CompletedAt != nil && !e.StartedAt.IsZero() {
		s.metrics.ExecutionDuration.Record(ctx, e.CompletedAt.Sub(e.StartedAt).Seconds(), attrs)
	}
}

// publish emits a lifecycle event. Event loss is tolerated; the database
// remains the source of truth.
func (s *ExecutionService) publish(ctx context.Context, e *execution.Execution) {
	if s.bus == nil {
		return
	}
	ev := execution.Event{
		ExecutionID: e.ID,
		AgentID:     e.AgentID,
		Status:      e.Status,
		Error:       e.Error,
		At:          time.Now(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish execution event", "execution_id", e.ID, "status", e.Status, "error", err)
	}
}
