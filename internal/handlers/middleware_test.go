package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anhthoxay/internal/models"
)

func TestRateLimiterThrottlesMutations(t *testing.T) {
	env := setupTestWith(t, testOptions{rps: 0.001, burst: 2})
	home := env.tokens[models.RoleHomeowner]

	for i := 0; i < 2; i++ {
		if w := env.do("POST", "/notifications/read-all", home, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	if w := env.do("POST", "/notifications/read-all", home, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w := env.do("GET", "/notifications", home, nil); w.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", w.Code)
	}
	if w := env.do("POST", "/notifications/read-all", env.tokens[models.RoleAdmin], nil); w.Code != http.StatusOK {
		t.Fatalf("limits are per user, got %d", w.Code)
	}
}

func TestRateLimiterThrottlesFailedAuthPerIP(t *testing.T) {
	env := setupTestWith(t, testOptions{rps: 0.001, burst: 2})

	fromIP := func(ip, token string) int {
		req := httptest.NewRequest("POST", "/escrows", strings.NewReader("{}"))
		req.RemoteAddr = ip + ":5000"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		env.r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := fromIP("198.51.100.7", "forged"); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i, code)
		}
	}
	if code := fromIP("198.51.100.7", "forged"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", code)
	}
	if code := fromIP("198.51.100.7", ""); code != http.StatusTooManyRequests {
		t.Fatalf("missing token from a throttled IP must be limited, got %d", code)
	}
	if code := fromIP("203.0.113.9", "forged"); code != http.StatusUnauthorized {
		t.Fatalf("other IPs are not affected, got %d", code)
	}
	if w := env.do("GET", "/notifications", env.tokens[models.RoleHomeowner], nil); w.Code != http.StatusOK {
		t.Fatalf("successful authentication spends nothing, got %d", w.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.limiter("a")
	rl.limiter("b")
	rl.Cleanup(time.Hour)
	if len(rl.limiters) != 2 {
		t.Fatalf("fresh limiters dropped")
	}
	rl.limiters["a"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.Cleanup(time.Hour)
	if _, ok := rl.limiters["a"]; ok || len(rl.limiters) != 1 {
		t.Fatalf("idle limiter kept")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTest(t)
	esc := env.createEscrow(t, "bid_metrics", 400_000_000)
	env.do("POST", "/escrows/"+esc.ID+"/confirm", env.tokens[models.RoleAdmin], nil)
	env.do("GET", "/escrows/"+esc.ID, env.tokens[models.RoleAdmin], nil)

	w := env.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`anhthoxay_escrow_transitions_total{from="PENDING",to="HELD"} 1`,
		`anhthoxay_http_requests_total{method="GET",path="/escrows/:ref",status="200"} 1`,
		`anhthoxay_http_requests_total{method="POST",path="/escrows",status="201"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %s", want)
		}
	}
	if strings.Contains(body, `path="/metrics"`) {
		t.Fatalf("metrics endpoint must not record itself")
	}
}
