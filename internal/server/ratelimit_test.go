package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMultiLimiterAllow(t *testing.T) {
	ml := perMinute(2, time.Minute)
	key := "test"
	if !ml.allow(key) {
		t.Fatal("first allow should pass")
	}
	if !ml.allow(key) {
		t.Fatal("second allow should pass")
	}
	// burst exhausted
	if ml.allow(key) {
		t.Fatal("third allow should be rate limited")
	}
	if !ml.allow("other") {
		t.Fatal("separate keys get separate buckets")
	}
}

func TestMultiLimiterEvictsIdleBuckets(t *testing.T) {
	ml := perMinute(1, time.Millisecond)
	ml.allow("stale")
	time.Sleep(5 * time.Millisecond)
	ml.allow("fresh")
	ml.mu.Lock()
	_, ok := ml.entries["stale"]
	ml.mu.Unlock()
	if ok {
		t.Fatal("idle bucket should be evicted")
	}
}

func TestLoginRateLimitPerUsername(t *testing.T) {
	_, srv := newTestServer(t)

	var last *http.Response
	for i := 0; i < 6; i++ {
		last, _ = postJSON(t, srv.URL+"/login", map[string]string{
			"username": "nosuchuser", "password": "pw", "totp_code": "000000",
		}, "")
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt: status %d, want 429", last.StatusCode)
	}
}

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if ip := getClientIP(r); ip != "10.0.0.1" {
		t.Fatalf("ip = %q", ip)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := getClientIP(r); ip != "203.0.113.9" {
		t.Fatalf("ip = %q", ip)
	}
}
