// ABOUTME: Test helpers for e2e tests
// ABOUTME: Builds a full gateway from environment config against a fake backend

package e2e

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/codersneeded/miniapp/gateway/config"
	"github.com/codersneeded/miniapp/gateway/handlers"
	"github.com/codersneeded/miniapp/gateway/middleware"
	"github.com/codersneeded/miniapp/gateway/services"
	"github.com/prometheus/client_golang/prometheus"
)

// gatewayEnvKeys are cleared before each test so a developer's shell or
// .env file cannot leak into assertions.
var gatewayEnvKeys = []string{
	"BACKEND_URL", "PORT", "GATEWAY_TIMEOUT", "GATEWAY_ALL_PROXY",
	"BACKEND_SKIP_TLS_VERIFY", "EDGE_HEADER_PREFIXES", "CORS_ALLOWED_ORIGINS",
	"FRAME_ANCESTORS", "RATE_LIMIT_ENABLED", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"GATEWAY_ENV_FILE",
}

// withTestGatewayEnv points BACKEND_URL at backendURL plus additional vars,
// returning a cleanup function that restores all original values.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(withTestGatewayEnv(t, backend.URL, map[string]string{
//	        "CORS_ALLOWED_ORIGINS": "https://example.com",
//	    }))
//	}
func withTestGatewayEnv(t *testing.T, backendURL string, extra map[string]string) func() {
	t.Helper()

	originals := make(map[string]*string)
	save := func(key string) {
		if _, seen := originals[key]; seen {
			return
		}
		if v, ok := os.LookupEnv(key); ok {
			originals[key] = &v
		} else {
			originals[key] = nil
		}
	}

	for _, key := range gatewayEnvKeys {
		save(key)
		os.Unsetenv(key)
	}
	for key := range extra {
		save(key)
	}

	os.Setenv("GATEWAY_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	os.Setenv("BACKEND_URL", backendURL)
	for key, value := range extra {
		os.Setenv(key, value)
	}

	return func() {
		for key, value := range originals {
			if value == nil {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, *value)
			}
		}
	}
}

// newGateway loads config from the environment and serves the production router.
func newGateway(t *testing.T) (*httptest.Server, *middleware.Metrics) {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	forwarder, err := services.NewForwarder(cfg)
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	metrics := middleware.NewMetrics(prometheus.NewRegistry())

	server := httptest.NewServer(handlers.NewRouter(cfg, forwarder, metrics))
	t.Cleanup(server.Close)
	return server, metrics
}
