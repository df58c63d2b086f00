// ABOUTME: Shared fixtures for command tests
// ABOUTME: A fake job board backend and global flag isolation

package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const fakeToken = "fake-token"

type fakeBackend struct {
	*httptest.Server
	logins      atomic.Int32
	platform    atomic.Int32
	logouts     atomic.Int32
	rejectLogin bool
	// jobsRevoked makes /jobs/ reject the credential while /auth/me/ still accepts it.
	jobsRevoked atomic.Bool
}

func fakeUser() map[string]interface{} {
	return map[string]interface{}{
		"id":          1,
		"telegram_id": 100,
		"username":    "ada",
		"first_name":  "Ada",
		"role":        "employer",
		"created_at":  "2024-01-01T00:00:00",
	}
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()

	login := func(w http.ResponseWriter, r *http.Request) {
		if fb.rejectLogin {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Dev login disabled"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": fakeToken,
			"token_type":   "bearer",
			"user":         fakeUser(),
		})
	}
	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+fakeToken
	}

	mux.HandleFunc("POST /api/auth/dev-login/", func(w http.ResponseWriter, r *http.Request) {
		fb.logins.Add(1)
		login(w, r)
	})
	mux.HandleFunc("POST /api/auth/telegram/", func(w http.ResponseWriter, r *http.Request) {
		fb.platform.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid Telegram data"})
	})
	mux.HandleFunc("GET /api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(fakeUser())
	})
	mux.HandleFunc("POST /api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		fb.logouts.Add(1)
		w.Write([]byte(`{"message":"ok"}`))
	})
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) || fb.jobsRevoked.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[{"id":1,"title":"Go engineer"}]`))
		case http.MethodPost:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 2, "title": body["title"]})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","backend":"http://backend:8000","proxy":false}`))
	})

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

// withCLIFlags points the global flags at url and a fresh state dir.
func withCLIFlags(t *testing.T, url string) {
	t.Helper()
	t.Setenv("JOBBOARD_API_URL", "")
	t.Setenv("JOBBOARD_STATE_DIR", "")
	t.Setenv("TELEGRAM_INIT_DATA", "")

	apiURL = strings.TrimRight(url, "/") + "/api"
	stateDir = t.TempDir()
	initData = ""
	jsonOutput = false
	ephemeral = false
	timeout = 0
	t.Cleanup(func() {
		apiURL, stateDir, initData = "", "", ""
		jsonOutput = false
		ephemeral = false
		timeout = 0
	})
}
