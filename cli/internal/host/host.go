// ABOUTME: Host Platform Bridge exposing the embedding host's signed assertion
// ABOUTME: Absent variant for plain runs, WebApp variant when init data is supplied

package host

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"
)

// Bridge reports whether the process runs inside the host platform and
// hands out the host's signed identity assertion verbatim.
type Bridge interface {
	CurrentAssertion() (string, bool)
	IsHostPresent() bool
}

type absent struct{}

func (absent) CurrentAssertion() (string, bool) { return "", false }
func (absent) IsHostPresent() bool              { return false }

// Absent returns the bridge used outside the host, e.g. during local development.
func Absent() Bridge {
	return absent{}
}

// Detect returns a WebApp bridge when initData is non-empty, otherwise Absent.
func Detect(initData string, vp Viewport) Bridge {
	initData = strings.TrimSpace(initData)
	if initData == "" {
		return Absent()
	}
	return NewWebApp(initData, vp)
}

// WebApp is the bridge for a session launched by the host with signed init data.
type WebApp struct {
	initData string
	viewport Viewport

	once sync.Once
	mu   sync.RWMutex
	size Size
}

// NewWebApp wraps raw init data. vp may be nil.
func NewWebApp(initData string, vp Viewport) *WebApp {
	return &WebApp{initData: initData, viewport: vp}
}

// setup expands the viewport and registers the resize observer exactly once.
// Failures are logged; the host being unusable never blocks authentication.
func (w *WebApp) setup() {
	w.once.Do(func() {
		if w.viewport == nil {
			return
		}
		size, err := w.viewport.Expand()
		if err != nil {
			slog.Debug("Viewport expand failed", "error", err)
		} else {
			w.setSize(size)
		}
		if err := w.viewport.OnResize(w.setSize); err != nil {
			slog.Debug("Viewport resize observer not registered", "error", err)
		}
	})
}

func (w *WebApp) setSize(s Size) {
	w.mu.Lock()
	w.size = s
	w.mu.Unlock()
}

// Size returns the last known viewport size.
func (w *WebApp) Size() Size {
	w.setup()
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// CurrentAssertion returns the raw init data. It is never inspected for trust.
func (w *WebApp) CurrentAssertion() (string, bool) {
	w.setup()
	return w.initData, w.initData != ""
}

// IsHostPresent is always true for a WebApp.
func (w *WebApp) IsHostPresent() bool {
	w.setup()
	return true
}

// HostUser is the unverified user block inside init data.
type HostUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// DisplayName returns @username when set, otherwise the full name.
func (u HostUser) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UnsafeUser decodes the user field of the init data for display before
// the backend has verified it. Never use it for trust decisions.
func (w *WebApp) UnsafeUser() (*HostUser, bool) {
	values, err := url.ParseQuery(w.initData)
	if err != nil {
		return nil, false
	}
	raw := values.Get("user")
	if raw == "" {
		return nil, false
	}
	var u HostUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == 0 {
		return nil, false
	}
	return &u, true
}
