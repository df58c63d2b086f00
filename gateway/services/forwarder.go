// ABOUTME: Edge forwarder that reshapes inbound API calls for the backend origin
// ABOUTME: Normalizes paths, filters headers, re-encodes bodies and issues one raw round trip

package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudfoundry/socks5-proxy"

	"github.com/codersneeded/miniapp/gateway/config"
	"github.com/codersneeded/miniapp/gateway/models"
)

const (
	// SkipBrowserWarningHeader tells tunnelling intermediaries in front of
	// the backend not to serve their interstitial page.
	SkipBrowserWarningHeader = "ngrok-skip-browser-warning"

	// MaxBodyBytes caps how much of an inbound body is buffered.
	MaxBodyBytes = 32 << 20

	defaultContentType = "application/json"
)

// ErrInvalidBody is returned when a body cannot be decoded under its declared content type.
var ErrInvalidBody = errors.New("invalid request body")

// forwardedResponseHeaders are the backend headers copied back to the caller
// in addition to Content-Type.
var forwardedResponseHeaders = []string{
	"Cache-Control",
	"Content-Disposition",
	"Content-Encoding",
	"ETag",
	"Last-Modified",
	"Location",
	"Retry-After",
}

// Forwarder issues proxied requests against a single backend origin.
type Forwarder struct {
	backend      *url.URL
	edgePrefixes []string
	timeout      time.Duration
	transport    http.RoundTripper
}

// NewForwarder builds a Forwarder for cfg.BackendURL. Requests bypass
// http.Client entirely: redirects are never followed and no cookie jar is kept.
func NewForwarder(cfg *config.Config) (*Forwarder, error) {
	backend, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend URL: %w", err)
	}
	// Development origins are often bare host names; the backend listens on 8000.
	if backend.Scheme == "http" && backend.Port() == "" && cfg.BackendDefaultPort != "" {
		backend.Host = net.JoinHostPort(backend.Hostname(), cfg.BackendDefaultPort)
	}
	backend.Path = strings.TrimRight(backend.Path, "/")

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify},
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.SkipTLSVerify {
		slog.Warn("Backend TLS verification disabled", "backend", backend.String())
	}

	if cfg.AllProxy != "" {
		dialContextFunc := createSOCKS5DialContextFunc(cfg.AllProxy)
		if dialContextFunc == nil {
			return nil, fmt.Errorf("GATEWAY_ALL_PROXY could not be used")
		}
		transport.DialContext = dialContextFunc
	}

	return &Forwarder{
		backend:      backend,
		edgePrefixes: cfg.EdgeHeaderPrefixes,
		timeout:      cfg.Timeout,
		transport:    transport,
	}, nil
}

// SetTransport allows overriding the round tripper (useful for testing)
func (f *Forwarder) SetTransport(rt http.RoundTripper) {
	f.transport = rt
}

// Backend returns the resolved backend origin.
func (f *Forwarder) Backend() string {
	return f.backend.String()
}

// NormalizePath appends exactly one trailing slash to a non-empty path.
// Applying it twice yields the same result.
func NormalizePath(p string) string {
	p = strings.TrimLeft(p, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// TargetURL builds <backend>/api/<path>/?<query> for an escaped relative path.
func (f *Forwarder) TargetURL(path, rawQuery string) string {
	target := f.backend.String() + "/api/" + NormalizePath(path)
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// FilterHeaders copies inbound headers, dropping Host, Connection and any
// header namespaced to the edge runtime, then adds the tunnel override.
func (f *Forwarder) FilterHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in)+1)
	for name, values := range in {
		if f.dropHeader(name) {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	out.Set(SkipBrowserWarningHeader, "true")
	return out
}

func (f *Forwarder) dropHeader(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case "host", "connection":
		return true
	}
	for _, prefix := range f.edgePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// carriesBody reports whether the method's body is read and forwarded.
func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// NewProxiedRequest captures r for forwarding. path is the escaped backend
// path relative to the /api/ prefix.
func NewProxiedRequest(r *http.Request, path string) (*models.ProxiedRequest, error) {
	pr := &models.ProxiedRequest{
		Method:      r.Method,
		Path:        path,
		RawQuery:    r.URL.RawQuery,
		Header:      r.Header.Clone(),
		ContentType: r.Header.Get("Content-Type"),
	}
	if !carriesBody(r.Method) || r.Body == nil {
		return pr, nil
	}

	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer body.Close()

	if mediaType(pr.ContentType) == "multipart/form-data" {
		form, err := readMultipart(body, pr.ContentType)
		if err != nil {
			return nil, err
		}
		pr.Form = form
		return pr, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	pr.Body = data
	return pr, nil
}

func readMultipart(body io.Reader, contentType string) (*models.MultipartForm, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["boundary"] == "" {
		return nil, fmt.Errorf("%w: multipart boundary missing", ErrInvalidBody)
	}

	reader := multipart.NewReader(body, params["boundary"])
	form := &models.MultipartForm{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart field %q: %w", part.FormName(), err)
		}
		form.Parts = append(form.Parts, models.FormPart{
			Field:       part.FormName(),
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}
}

// EncodeBody re-encodes the captured body by content type and returns the
// bytes to send with the Content-Type to declare. JSON is parsed and
// re-serialized, multipart is rebuilt with a fresh boundary, anything else
// is sent as-is. Methods without a body yield nil.
func EncodeBody(pr *models.ProxiedRequest) ([]byte, string, error) {
	if !carriesBody(pr.Method) {
		return nil, pr.ContentType, nil
	}

	switch {
	case pr.Form != nil:
		return encodeMultipart(pr.Form)
	case mediaType(pr.ContentType) == "application/json":
		data, err := reencodeJSON(pr.Body)
		if err != nil {
			return nil, "", err
		}
		return data, pr.ContentType, nil
	default:
		return pr.Body, pr.ContentType, nil
	}
}

func reencodeJSON(body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidBody)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON body: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeMultipart(form *models.MultipartForm) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range form.Parts {
		if !p.IsFile() {
			if err := w.WriteField(p.Field, string(p.Data)); err != nil {
				return nil, "", fmt.Errorf("failed to write multipart field %q: %w", p.Field, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     p.Field,
			"filename": p.Filename,
		}))
		ct := p.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create multipart file %q: %w", p.Field, err)
		}
		if _, err := pw.Write(p.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write multipart file %q: %w", p.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// Forward sends pr to the backend and returns its status and body verbatim.
// A returned error always means the backend produced no response.
func (f *Forwarder) Forward(ctx context.Context, pr *models.ProxiedRequest) (*models.ForwardedResponse, error) {
	body, contentType, err := EncodeBody(pr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	target := f.TargetURL(pr.Path, pr.RawQuery)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, pr.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend request: %w", err)
	}
	req.Header = f.FilterHeaders(pr.Header)
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := f.transport.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	slog.Debug("Forwarded request",
		"method", pr.Method,
		"target", target,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	out := &models.ForwardedResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      make(http.Header),
		Body:        respBody,
	}
	if out.ContentType == "" {
		out.ContentType = defaultContentType
	}
	for _, h := range forwardedResponseHeaders {
		if v := resp.Header.Get(h); v != "" {
			out.Header.Set(h, v)
		}
	}
	return out, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

// createSOCKS5DialContextFunc tunnels backend connections through an
// ssh+socks5://user@jumpbox:22?private-key=/path URL.
func createSOCKS5DialContextFunc(allProxy string) func(ctx context.Context, network, address string) (net.Conn, error) {
	allProxy = strings.TrimPrefix(allProxy, "ssh+")

	proxyURL, err := url.Parse(allProxy)
	if err != nil {
		slog.Error("Failed to parse GATEWAY_ALL_PROXY URL", "error", err)
		return nil
	}

	queryMap, err := url.ParseQuery(proxyURL.RawQuery)
	if err != nil {
		slog.Error("Failed to parse GATEWAY_ALL_PROXY query params", "error", err)
		return nil
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	keyPath := queryMap.Get("private-key")
	if keyPath == "" {
		slog.Error("GATEWAY_ALL_PROXY missing required 'private-key' query param")
		return nil
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		slog.Error("Failed to read SSH private key", "path", keyPath, "error", err)
		return nil
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		haveDialer := dialer != nil
		mut.RUnlock()

		if haveDialer {
			return dialer(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(username, string(key), proxyURL.Host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = proxyDialer
		}
		return dialer(network, address)
	}
}
