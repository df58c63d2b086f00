// ABOUTME: HTTP handlers for the edge forwarding gateway
// ABOUTME: Holds shared dependencies and JSON response helpers

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/codersneeded/miniapp/gateway/config"
	"github.com/codersneeded/miniapp/gateway/middleware"
	"github.com/codersneeded/miniapp/gateway/models"
	"github.com/codersneeded/miniapp/gateway/services"
)

type Handler struct {
	cfg       *config.Config
	forwarder *services.Forwarder
	metrics   *middleware.Metrics
}

// NewHandler wires handlers to a forwarder. cfg may be nil in tests.
func NewHandler(cfg *config.Config, forwarder *services.Forwarder) *Handler {
	return &Handler{
		cfg:       cfg,
		forwarder: forwarder,
	}
}

// SetMetrics enables backend failure accounting.
func (h *Handler) SetMetrics(m *middleware.Metrics) {
	h.metrics = m
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
