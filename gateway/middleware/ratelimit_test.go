// ABOUTME: Unit tests for rate limiting middleware
// ABOUTME: Tests token-bucket limiter, key extraction, and middleware factory

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance the limiter's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(rps, burst int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rps, burst)
	rl.now = clock.Now
	return rl, clock
}

// --- RateLimiter core tests ---

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("test-key")
		if !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl, _ := newTestLimiter(2, 2)

	rl.Allow("test-key")
	rl.Allow("test-key")

	allowed, retryAfter := rl.Allow("test-key")
	if allowed {
		t.Fatal("Third request should be rejected")
	}
	if retryAfter <= 0 || retryAfter > time.Second {
		t.Errorf("Expected retryAfter in (0, 1s], got %v", retryAfter)
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl, clock := newTestLimiter(1, 1)

	if allowed, _ := rl.Allow("k"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := rl.Allow("k"); allowed {
		t.Fatal("second immediate request should be rejected")
	}

	clock.Advance(time.Second)
	if allowed, _ := rl.Allow("k"); !allowed {
		t.Fatal("request after refill should be allowed")
	}
}

func TestRateLimiter_RejectionDoesNotConsumeTokens(t *testing.T) {
	rl, clock := newTestLimiter(1, 1)

	rl.Allow("k")
	for i := 0; i < 5; i++ {
		rl.Allow("k")
	}

	clock.Advance(time.Second)
	if allowed, _ := rl.Allow("k"); !allowed {
		t.Fatal("rejected requests must not push the refill further out")
	}
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)

	allowed, _ := rl.Allow("key-a")
	if !allowed {
		t.Fatal("First request for key-a should be allowed")
	}

	allowed, _ = rl.Allow("key-b")
	if !allowed {
		t.Fatal("First request for key-b should be allowed (separate quota)")
	}

	allowed, _ = rl.Allow("key-a")
	if allowed {
		t.Fatal("Second request for key-a should be rejected")
	}
}

func TestRateLimiter_IdleEntriesSwept(t *testing.T) {
	rl, clock := newTestLimiter(10, 10)

	rl.Allow("stale")
	clock.Advance(idleLimiterTTL + time.Second)

	// 100 new keys trigger a sweep.
	for i := 0; i < 100; i++ {
		rl.Allow(string(rune('a'+i%26)) + time.Duration(i).String())
	}

	rl.mu.Lock()
	_, exists := rl.limiters["stale"]
	rl.mu.Unlock()
	if exists {
		t.Error("idle limiter should have been swept")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(1, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := rl.Allow("shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The burst bounds admissions; a slow runner may see one refilled token.
	if allowed < 100 || allowed > 102 {
		t.Errorf("allowed = %d, want about 100", allowed)
	}
}

// --- Key extraction tests ---

func TestClientIP_XForwardedFor(t *testing.T) {
	tests := []struct {
		name     string
		xff      string
		remote   string
		expected string
	}{
		{
			name:     "single IP",
			xff:      "203.0.113.1",
			expected: "ip:203.0.113.1",
		},
		{
			name:     "multiple IPs takes leftmost",
			xff:      "203.0.113.1, 198.51.100.1, 10.0.0.1",
			expected: "ip:203.0.113.1",
		},
		{
			name:     "no XFF falls back to RemoteAddr",
			remote:   "192.168.1.1:12345",
			expected: "ip:192.168.1.1",
		},
		{
			name:     "garbage XFF falls back to RemoteAddr",
			xff:      "not-an-ip",
			remote:   "192.168.1.2:12345",
			expected: "ip:192.168.1.2",
		},
		{
			name:     "IPv6 RemoteAddr",
			remote:   "[2001:db8::1]:443",
			expected: "ip:2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}

			key := ClientIP(r)
			if key != tt.expected {
				t.Errorf("ClientIP() = %q, want %q", key, tt.expected)
			}
		})
	}
}

// --- Middleware tests ---

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	called := false
	handler := RateLimit(nil, ClientIP)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs/", nil))
	if !called {
		t.Error("nil limiter should pass requests through")
	}
}

func TestRateLimitMiddleware_EmptyKey(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	calls := 0
	handler := RateLimit(rl, func(*http.Request) string { return "" })(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	for i := 0; i < 3; i++ {
		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs/", nil))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (unidentifiable clients pass through)", calls)
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := RateLimit(rl, ClientIP)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/", nil)
	req.RemoteAddr = "10.1.1.1:1234"

	first := httptest.NewRecorder()
	handler(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", second.Header().Get("Retry-After"))
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(second.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Rate limit exceeded" {
		t.Errorf("error = %v, want Rate limit exceeded", body["error"])
	}
}
