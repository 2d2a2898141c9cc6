package http

import (
	"log/slog"
	"net/http"

	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/middleware"
)

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh. The presented refresh token
// is consumed and replaced.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[refreshRequest](w, r)
	if !ok {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	resp, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		slog.Debug("token refresh failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout. All refresh tokens of the
// user are revoked.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if err := h.Auth.Logout(r.Context(), u.ID); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// GetCurrentUser handles GET /api/v1/auth/me.
func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}

// ChangePassword handles POST /api/v1/auth/change-password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[user.ChangePasswordRequest](w, r)
	if !ok {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), u.ID, req); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// CreateAPIKeyHandler handles POST /api/v1/auth/api-keys. The plaintext
// key appears only in this response.
func (h *Handlers) CreateAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[user.CreateAPIKeyRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.CreateAPIKey(r.Context(), u.ID, req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListAPIKeysHandler handles GET /api/v1/auth/api-keys.
func (h *Handlers) ListAPIKeysHandler(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	keys, err := h.Auth.ListAPIKeys(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	if keys == nil {
		keys = []user.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// DeleteAPIKeyHandler handles DELETE /api/v1/auth/api-keys/{id}. Users
// may revoke only their own keys.
func (h *Handlers) DeleteAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	id := urlParam(r, "id")

	keys, err := h.Auth.ListAPIKeys(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, "api key not found")
		return
	}
	owned := false
	for _, k := range keys {
		if k.ID == id {
			owned = true
			break
		}
	}
	if !owned && u.Role != user.RoleAdmin {
		writeError(w, http.StatusNotFound, "api key not found")
		return
	}

	if err := h.Auth.RevokeAPIKey(r.Context(), id); err != nil {
		writeDomainError(w, err, "api key not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
