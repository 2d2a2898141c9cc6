package http

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/middleware"
	"github.com/rcarraroia/renum/internal/port/database"
)

// CreateExecution handles POST /api/v1/executions.
func (h *Handlers) CreateExecution(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[execution.CreateRequest](w, r)
	if !ok {
		return
	}
	e, err := h.Executions.Create(r.Context(), u, &req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListExecutions handles GET /api/v1/executions.
func (h *Handlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())

	filter := database.ExecutionFilter{
		AgentID: r.URL.Query().Get("agent_id"),
		Status:  execution.Status(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	execs, err := h.Executions.List(r.Context(), u, filter)
	if err != nil {
		writeDomainError(w, err, "executions not found")
		return
	}
	if execs == nil {
		execs = []execution.Execution{}
	}
	writeJSON(w, http.StatusOK, execs)
}

// ListAgentExecutions handles GET /api/v1/agents/{id}/executions.
func (h *Handlers) ListAgentExecutions(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	execs, err := h.Executions.List(r.Context(), u, database.ExecutionFilter{
		AgentID: urlParam(r, "id"),
	})
	if err != nil {
		writeDomainError(w, err, "executions not found")
		return
	}
	if execs == nil {
		execs = []execution.Execution{}
	}
	writeJSON(w, http.StatusOK, execs)
}

// GetExecution handles GET /api/v1/executions/{id}.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	e, err := h.Executions.Get(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CancelExecution handles POST /api/v1/executions/{id}/cancel.
func (h *Handlers) CancelExecution(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	e, err := h.Executions.Cancel(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// SyncExecution handles POST /api/v1/executions/{id}/sync. It polls the
// execution engine directly, as a fallback for lost callbacks.
func (h *Handlers) SyncExecution(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	e, err := h.Executions.Sync(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ExecutionCallback handles POST /api/v1/executions/callback. The
// endpoint is exempt from user auth; the engine authenticates with the
// shared service key instead.
func (h *Handlers) ExecutionCallback(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Service-Key")
	if h.CallbackKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.CallbackKey)) != 1 {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "invalid service key")
		return
	}

	req, ok := readJSON[execution.CallbackRequest](w, r)
	if !ok {
		return
	}
	e, err := h.Executions.HandleCallback(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
