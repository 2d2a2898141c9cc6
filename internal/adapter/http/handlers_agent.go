package http

import (
	"net/http"

	"github.com/rcarraroia/renum/internal/domain/agent"
	"github.com/rcarraroia/renum/internal/domain/share"
	"github.com/rcarraroia/renum/internal/middleware"
)

// ListAgents handles GET /api/v1/agents.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	agents, err := h.Agents.List(r.Context(), u)
	if err != nil {
		writeDomainError(w, err, "agents not found")
		return
	}
	if agents == nil {
		agents = []agent.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// CreateAgent handles POST /api/v1/agents.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[agent.CreateRequest](w, r)
	if !ok {
		return
	}
	a, err := h.Agents.Create(r.Context(), u, &req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// GetAgent handles GET /api/v1/agents/{id}.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	a, err := h.Agents.Get(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateAgent handles PUT /api/v1/agents/{id}.
func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[agent.UpdateRequest](w, r)
	if !ok {
		return
	}
	a, err := h.Agents.Update(r.Context(), u, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAgent handles DELETE /api/v1/agents/{id}.
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if err := h.Agents.Delete(r.Context(), u, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateShare handles POST /api/v1/agents/{id}/shares.
func (h *Handlers) CreateShare(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[share.CreateRequest](w, r)
	if !ok {
		return
	}
	sh, err := h.Shares.Create(r.Context(), u, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

// ListSharesHandler handles GET /api/v1/agents/{id}/shares.
func (h *Handlers) ListSharesHandler(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	shares, err := h.Shares.List(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	if shares == nil {
		shares = []share.Share{}
	}
	writeJSON(w, http.StatusOK, shares)
}

// DeleteShare handles DELETE /api/v1/agents/{id}/shares/{shareId}.
func (h *Handlers) DeleteShare(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if err := h.Shares.Delete(r.Context(), u, urlParam(r, "id"), urlParam(r, "shareId")); err != nil {
		writeDomainError(w, err, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveShare handles GET /shared/{token}. This is the only
// unauthenticated read surface; it exposes a limited agent view.
func (h *Handlers) ResolveShare(w http.ResponseWriter, r *http.Request) {
	a, err := h.Shares.Resolve(r.Context(), urlParam(r, "token"))
	if err != nil {
		writeDomainError(w, err, "share not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          a.ID,
		"name":        a.Name,
		"description": a.Description,
		"model":       a.Model,
	})
}
