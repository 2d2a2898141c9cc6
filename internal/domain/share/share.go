// Package share defines public agent shares.
package share

import "time"

// Share grants read-only public access to an agent via an opaque token.
type Share struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	CreatedBy string     `json:"created_by"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the share is past its expiry, if any.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// CreateRequest holds the input for sharing an agent. ExpiresIn is in
// seconds; zero means the share never expires.
type CreateRequest struct {
	ExpiresIn int64 `json:"expires_in,omitempty"`
}
