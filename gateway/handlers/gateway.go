// ABOUTME: Wildcard /api/ handler forwarding calls to the backend origin
// ABOUTME: Maps every forwarding failure to a structured JSON response

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/codersneeded/miniapp/gateway/middleware"
	"github.com/codersneeded/miniapp/gateway/models"
	"github.com/codersneeded/miniapp/gateway/services"
)

// ProxyErrorLabel is the fixed error field of a failed forward.
const ProxyErrorLabel = "Proxy error"

// Proxy forwards /api/{path...} to <backend>/api/{path}/ and relays the
// backend's status and body verbatim.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r.Context())
	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.EscapedPath(), "/api"), "/")

	if err := services.ValidatePath(path); err != nil {
		slog.Warn("Rejected forward path", "request_id", requestID, "error", err)
		writeError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	pr, err := services.NewProxiedRequest(r, path)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.proxyFailure(w, requestID, "body", err)
		return
	}

	resp, err := h.forwarder.Forward(r.Context(), pr)
	if err != nil {
		h.proxyFailure(w, requestID, failureReason(err), err)
		return
	}

	for name, values := range resp.Header {
		w.Header()[name] = values
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		slog.Debug("Client went away before response was written", "request_id", requestID, "error", err)
	}
}

// proxyFailure answers with the fixed 500 payload; nothing from a failed
// forward reaches the caller as anything but JSON.
func (h *Handler) proxyFailure(w http.ResponseWriter, requestID, reason string, err error) {
	slog.Error("Proxy error", "request_id", requestID, "reason", reason, "error", err)
	h.metrics.BackendFailure(reason)
	h.writeJSON(w, http.StatusInternalServerError, models.ProxyErrorResponse{
		Error:   ProxyErrorLabel,
		Message: err.Error(),
	})
}

func failureReason(err error) string {
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, services.ErrInvalidBody):
		return "body"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &netErr):
		return "connect"
	default:
		return "other"
	}
}
