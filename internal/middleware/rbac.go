package middleware

import (
	"net/http"

	"github.com/rcarraroia/renum/internal/domain/user"
)

// RequireRole returns middleware that restricts access to users holding
// one of the given roles. Authenticated users with the wrong role get a
// 403; unauthenticated requests get a 401.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				unauthorized(w, "authorization required")
				return
			}
			if !allowed[u.Role] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"insufficient role"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
