package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	handler := RateLimit(2, time.Minute)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/images/generate", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/generate", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error_code"] != "rate_limit_exceeded" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestRateLimitTracksClientsIndependently(t *testing.T) {
	handler := RateLimit(1, time.Minute)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/v1/images/generate", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client: status = %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/v1/images/generate", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client must have its own budget, got %d", rec.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	handler := RateLimit(1, 20*time.Millisecond)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/generate", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	time.Sleep(30 * time.Millisecond)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status after window reset = %d, want 200", rec.Code)
	}
}

func TestLimiterEvictsExpiredBuckets(t *testing.T) {
	l := newLimiter(5, time.Minute)

	start := time.Now()
	for i := 0; i < 50; i++ {
		l.allow(fmt.Sprintf("10.0.%d.1", i), start)
	}
	if l.size() != 50 {
		t.Fatalf("buckets = %d, want 50", l.size())
	}

	// All 50 windows have expired; the next touch must prune them.
	later := start.Add(2 * time.Minute)
	if !l.allow("10.1.0.1", later) {
		t.Fatal("fresh client must be allowed")
	}
	if l.size() != 1 {
		t.Fatalf("buckets after prune = %d, want 1", l.size())
	}
}

func TestLimiterKeepsLiveBucketsWhenPruning(t *testing.T) {
	l := newLimiter(3, time.Minute)

	start := time.Now()
	l.allow("10.0.0.2", start)
	l.allow("10.0.0.1", start.Add(45*time.Second))
	l.allow("10.0.0.1", start.Add(45*time.Second))

	// The prune pass at start+70s drops 10.0.0.2 but must keep 10.0.0.1,
	// whose window runs until start+105s, count intact.
	mid := start.Add(70 * time.Second)
	if !l.allow("10.0.0.1", mid) {
		t.Fatal("third request within the window must be allowed")
	}
	if l.size() != 1 {
		t.Fatalf("buckets = %d, want only the expired entry gone", l.size())
	}
	if l.allow("10.0.0.1", mid) {
		t.Fatal("count must survive the prune pass")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.7")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q, want 203.0.113.7", got)
	}

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	bare.RemoteAddr = "10.0.0.9:5555"
	if got := clientIP(bare); got != "10.0.0.9" {
		t.Fatalf("clientIP = %q, want 10.0.0.9", got)
	}
}

func TestLoggerSetsProcessTimeHeader(t *testing.T) {
	handler := Logger(discardLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Process-Time") == "" {
		t.Fatal("X-Process-Time header missing")
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	handler := RequestID(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("request id missing from context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("header = %q, context = %q", rec.Header().Get("X-Request-ID"), seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-chosen")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "client-chosen" {
		t.Fatalf("client supplied id not honored: %q", rec.Header().Get("X-Request-ID"))
	}
}
