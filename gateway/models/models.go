// ABOUTME: Data models for forwarded requests and gateway responses
// ABOUTME: JSON-serializable structures shared by handlers and the forwarder

package models

import "net/http"

// ProxiedRequest is a single inbound call captured for forwarding.
type ProxiedRequest struct {
	Method      string
	Path        string // backend path relative to /api/, still escaped
	RawQuery    string
	Header      http.Header
	ContentType string
	Body        []byte
	// Form holds parsed multipart content when ContentType is multipart/form-data.
	Form *MultipartForm
}

// MultipartForm is a decoded multipart body ready to be re-encoded.
// Parts keep their inbound order.
type MultipartForm struct {
	Parts []FormPart
}

// FormPart is one field of a multipart body. Filename is empty for plain values.
type FormPart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// IsFile reports whether the part carries an uploaded file.
func (p FormPart) IsFile() bool {
	return p.Filename != ""
}

// ForwardedResponse is what the backend returned for a ProxiedRequest.
type ForwardedResponse struct {
	StatusCode  int
	ContentType string
	Header      http.Header // whitelisted backend headers passed back to the caller
	Body        []byte
}

// ProxyErrorResponse is returned when the backend could not be reached.
type ProxyErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse reports gateway liveness and the configured backend.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Proxy   bool   `json:"proxy"`
}
