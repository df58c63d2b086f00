// ABOUTME: Security and framing headers for responses served through the gateway
// ABOUTME: Lets the chat platform's web clients embed the mini app and nothing else

package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders returns middleware that sets framing and content-type
// hardening headers. frameAncestors become the CSP frame-ancestors list.
func SecurityHeaders(frameAncestors []string) func(http.HandlerFunc) http.HandlerFunc {
	csp := "frame-ancestors " + strings.Join(frameAncestors, " ") + ";"
	if len(frameAncestors) == 0 {
		csp = "frame-ancestors 'none';"
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			// Browsers ignore ALLOWALL and fall back to frame-ancestors.
			h.Set("X-Frame-Options", "ALLOWALL")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next(w, r)
		}
	}
}
