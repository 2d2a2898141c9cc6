package http

import (
	"context"
	"net/http"

	"github.com/rcarraroia/renum/internal/adapter/ws"
	"github.com/rcarraroia/renum/internal/envcheck"
	"github.com/rcarraroia/renum/internal/resilience"
	"github.com/rcarraroia/renum/internal/service"
)

// Version is the API version reported by the root endpoint.
const Version = "0.1.0"

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth           *service.AuthService
	Agents         *service.AgentService
	Executions     *service.ExecutionService
	KnowledgeBases *service.KnowledgeBaseService
	Shares         *service.ShareService
	Hub            *ws.Hub

	// DB is pinged by the health endpoint; nil skips the check.
	DB Pinger

	// EngineState reports the circuit breaker state of the execution
	// engine client for the health endpoint.
	EngineState func() resilience.State

	// CallbackKey authenticates execution callbacks from the engine.
	CallbackKey string
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Database    string `json:"database,omitempty"`
	Engine      string `json:"engine,omitempty"`
	Connections int    `json:"ws_connections"`
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: Version}
	if h.Hub != nil {
		resp.Connections = h.Hub.ConnectionCount()
	}
	if h.DB != nil {
		resp.Database = "ok"
		if err := h.DB.Ping(r.Context()); err != nil {
			resp.Database = "unreachable"
			resp.Status = "degraded"
		}
	}
	if h.EngineState != nil {
		resp.Engine = string(h.EngineState())
		if resp.Engine == string(resilience.StateOpen) {
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// HealthConfig handles GET /health/config. It reports which hosted
// database variables are present, with sensitive values masked.
func (h *Handlers) HealthConfig(w http.ResponseWriter, _ *http.Request) {
	report := envcheck.CheckConfiguration()
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// AdminConfig handles GET /api/v1/admin/config. Same report as
// /health/config but always 200; admins read it to diagnose a broken
// environment, so the response itself should not fail.
func (h *Handlers) AdminConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envcheck.CheckConfiguration())
}
