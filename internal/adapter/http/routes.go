package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. The auth
// middleware runs in front of the whole tree; public paths (login,
// refresh, callback, shared links, health) are exempted there.
func MountRoutes(r chi.Router, h *Handlers) {
	// Public share links
	r.Get("/shared/{token}", h.ResolveShare)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"` + Version + `"}`))
		})

		// Auth (login/refresh are public via middleware exemption)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.GetCurrentUser)
		r.Post("/auth/change-password", h.ChangePassword)
		r.Post("/auth/api-keys", h.CreateAPIKeyHandler)
		r.Get("/auth/api-keys", h.ListAPIKeysHandler)
		r.Delete("/auth/api-keys/{id}", h.DeleteAPIKeyHandler)

		// Agents
		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{id}", h.GetAgent)
		r.Put("/agents/{id}", h.UpdateAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)

		// Shares (nested under agents)
		r.Get("/agents/{id}/executions", h.ListAgentExecutions)
		r.Post("/agents/{id}/shares", h.CreateShare)
		r.Get("/agents/{id}/shares", h.ListSharesHandler)
		r.Delete("/agents/{id}/shares/{shareId}", h.DeleteShare)

		// Executions
		r.Post("/executions", h.CreateExecution)
		r.Get("/executions", h.ListExecutions)
		r.Post("/executions/callback", h.ExecutionCallback) // engine auth, not user auth
		r.Get("/executions/{id}", h.GetExecution)
		r.Post("/executions/{id}/cancel", h.CancelExecution)
		r.Post("/executions/{id}/sync", h.SyncExecution)

		// Knowledge bases
		r.Get("/knowledge-bases", h.ListKnowledgeBases)
		r.Post("/knowledge-bases", h.CreateKnowledgeBase)
		r.Get("/knowledge-bases/{id}", h.GetKnowledgeBase)
		r.Put("/knowledge-bases/{id}", h.UpdateKnowledgeBase)
		r.Delete("/knowledge-bases/{id}", h.DeleteKnowledgeBase)
		r.Get("/knowledge-bases/{id}/documents", h.ListDocuments)
		r.Post("/knowledge-bases/{id}/documents", h.AddDocument)
		r.Delete("/knowledge-bases/{id}/documents/{docId}", h.DeleteDocument)
		r.Post("/knowledge-bases/{id}/search", h.SearchKnowledgeBase)

		// Users (admin only)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(user.RoleAdmin))
			r.Get("/", h.ListUsersHandler)
			r.Post("/", h.CreateUserHandler)
			r.Get("/{id}", h.GetUserHandler)
			r.Put("/{id}", h.UpdateUserHandler)
			r.Delete("/{id}", h.DeleteUserHandler)
		})

		// Admin diagnostics
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(user.RoleAdmin))
			r.Get("/config", h.AdminConfig)
		})
	})
}
