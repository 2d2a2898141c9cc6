package http

import (
	"net/http"

	"github.com/rcarraroia/renum/internal/domain/user"
)

// Admin-only user management endpoints. RequireRole(admin) guards the
// route group; handlers assume the caller is already authorized.

// ListUsersHandler handles GET /api/v1/users.
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err, "users not found")
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUserHandler handles POST /api/v1/users.
func (h *Handlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// GetUserHandler handles GET /api/v1/users/{id}.
func (h *Handlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.GetUser(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUserHandler handles PUT /api/v1/users/{id}.
func (h *Handlers) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdateRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Auth.UpdateUser(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUserHandler handles DELETE /api/v1/users/{id}.
func (h *Handlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.DeleteUser(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
