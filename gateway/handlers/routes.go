// ABOUTME: Declarative route table for gateway endpoints
// ABOUTME: Defines all routes with their HTTP methods and handlers

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/codersneeded/miniapp/gateway/config"
	"github.com/codersneeded/miniapp/gateway/middleware"
	"github.com/codersneeded/miniapp/gateway/services"
)

// Route defines an endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // ServeMux path pattern (e.g., "/api/{path...}")
	Handler http.HandlerFunc // Handler function
}

// ProxyPattern matches every path under /api/, including /api/ itself.
const ProxyPattern = "/api/{path...}"

// proxiedMethods are forwarded to the backend. GET patterns also match HEAD.
var proxiedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Routes returns all gateway routes for registration.
func (h *Handler) Routes() []Route {
	routes := []Route{
		{Method: http.MethodGet, Path: "/healthz", Handler: h.Health},
	}
	for _, method := range proxiedMethods {
		routes = append(routes, Route{Method: method, Path: ProxyPattern, Handler: h.Proxy})
	}
	return routes
}

// Register adds every route to mux, wrapping each handler with middlewares
// (first is outermost).
func (h *Handler) Register(mux *http.ServeMux, middlewares ...func(http.HandlerFunc) http.HandlerFunc) {
	for _, route := range h.Routes() {
		mux.HandleFunc(route.Method+" "+route.Path, middleware.Chain(route.Handler, middlewares...))
	}
}

// NewRouter builds the production mux: every route behind the full
// middleware chain, plus /metrics when metrics is non-nil.
func NewRouter(cfg *config.Config, forwarder *services.Forwarder, metrics *middleware.Metrics) *http.ServeMux {
	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		slog.Info("Rate limiting enabled", "rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		slog.Warn("Rate limiting disabled")
	}

	h := NewHandler(cfg, forwarder)
	h.SetMetrics(metrics)

	mux := http.NewServeMux()
	h.Register(mux,
		middleware.LogRequest,
		middleware.Recover,
		metrics.Instrument,
		middleware.SecurityHeaders(cfg.FrameAncestors),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.RateLimit(limiter, middleware.ClientIP),
	)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	return mux
}
