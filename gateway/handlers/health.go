// ABOUTME: HTTP handler for gateway liveness
// ABOUTME: Reports status without contacting the backend

package handlers

import (
	"net/http"

	"github.com/codersneeded/miniapp/gateway/models"
)

// Health reports that the gateway is serving and which backend it targets.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{Status: "ok"}
	if h.forwarder != nil {
		resp.Backend = h.forwarder.Backend()
	}
	if h.cfg != nil {
		resp.Proxy = h.cfg.AllProxy != ""
	}
	h.writeJSON(w, http.StatusOK, resp)
}
