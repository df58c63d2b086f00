// ABOUTME: Configuration loader for the edge forwarding gateway
// ABOUTME: Loads settings from environment variables (optionally seeded from .env) with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultFrameAncestors are the Telegram web clients allowed to embed the mini app.
var DefaultFrameAncestors = []string{
	"'self'",
	"https://web.telegram.org",
	"https://webk.telegram.org",
	"https://webz.telegram.org",
}

type Config struct {
	// Server
	Port               string
	CORSAllowedOrigins []string // allowed CORS origins (empty = "*")
	FrameAncestors     []string // CSP frame-ancestors sources

	// Backend origin
	BackendURL         string
	Timeout            time.Duration
	AllProxy           string   // optional ssh+socks5 tunnel to the origin
	SkipTLSVerify      bool     // explicit opt-in for certificate-less origins
	EdgeHeaderPrefixes []string // runtime-namespaced headers never forwarded
	BackendDefaultPort string   // used when BACKEND_URL has no port

	// Rate Limiting
	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int
}

// Load reads the environment into a Config. A .env file (GATEWAY_ENV_FILE,
// default ".env") is applied first when present; real environment
// variables always win over file values.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnv("GATEWAY_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),
		FrameAncestors:     getEnvStringList("FRAME_ANCESTORS"),

		BackendURL:         ensureScheme(getEnv("BACKEND_URL", "http://localhost:8000")),
		Timeout:            time.Duration(getEnvInt("GATEWAY_TIMEOUT", 30)) * time.Second,
		AllProxy:           os.Getenv("GATEWAY_ALL_PROXY"),
		SkipTLSVerify:      getEnvBool("BACKEND_SKIP_TLS_VERIFY", false),
		EdgeHeaderPrefixes: getEnvStringList("EDGE_HEADER_PREFIXES"),
		BackendDefaultPort: getEnv("BACKEND_DEFAULT_PORT", "8000"),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 40),
	}

	if len(cfg.FrameAncestors) == 0 {
		cfg.FrameAncestors = DefaultFrameAncestors
	}
	if len(cfg.EdgeHeaderPrefixes) == 0 {
		cfg.EdgeHeaderPrefixes = []string{"next-", "x-middleware-"}
	}
	for i, p := range cfg.EdgeHeaderPrefixes {
		cfg.EdgeHeaderPrefixes[i] = strings.ToLower(p)
	}

	u, err := url.Parse(cfg.BackendURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("BACKEND_URL is not a valid origin: %q", cfg.BackendURL)
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}

	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_RPS", cfg.RateLimitRPS},
		{"RATE_LIMIT_BURST", cfg.RateLimitBurst},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return cfg, nil
}

// loadEnvFile applies a dotenv file without overriding variables that are
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Loaded env file", "path", path)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds http:// if the URL has no scheme. Development origins
// are usually bare host:port pairs without certificates.
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}
