package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(h http.Handler, opts ...Option) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	opts = append([]Option{WithTokenSource(func() string { return "test-token" })}, opts...)
	return New(srv.URL, opts...), srv
}

func TestRegisterSuccess(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["regtoken"] != "tok" {
			t.Errorf("regtoken = %q", req["regtoken"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "all good", "secret": "JBSWY3DPEHPK3PXP"})
	}))
	defer srv.Close()

	res, err := c.Register(context.Background(), "alice", "pw", "tok")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if res.Msg != "all good" || res.Secret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRegisterMsgReturnedEvenOnErrorStatus(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Invalid registration token"})
	}))
	defer srv.Close()

	res, err := c.Register(context.Background(), "alice", "pw", "bad")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if res.Msg != "Invalid registration token" {
		t.Fatalf("msg = %q", res.Msg)
	}
}

func TestRegisterBodyWithoutMsgIsValidationError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	_, err := c.Register(context.Background(), "alice", "pw", "tok")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt", "role": "admin", "username": "alice"})
	}))
	defer srv.Close()

	res, err := c.Login(context.Background(), "alice", "pw", "123456")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if res.Token != "jwt" || res.Role != "admin" || res.Username != "alice" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLoginDetailSurfacedAsStatusError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid TOTP code"})
	}))
	defer srv.Close()

	_, err := c.Login(context.Background(), "alice", "pw", "000000")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusUnauthorized || se.Detail != "Invalid TOTP code" {
		t.Fatalf("unexpected status error %+v", se)
	}
	if !IsUnauthorized(err) {
		t.Fatal("401 should report IsUnauthorized")
	}
}

func TestLoginSuccessWithoutToken(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"role": "user"})
	}))
	defer srv.Close()

	_, err := c.Login(context.Background(), "alice", "pw", "123456")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAuthedCallWithoutToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL) // no token source
	_, err := c.Agents(context.Background())
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("no request should reach the server without a token")
	}
}

func TestAgentsSendsBearerToken(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"agents": []map[string]string{
			{"agent_number": "AGT-001", "name": "Viktor Reyes"},
		}})
	}))
	defer srv.Close()

	agents, err := c.Agents(context.Background())
	if err != nil {
		t.Fatalf("Agents error: %v", err)
	}
	if len(agents) != 1 || agents[0].AgentNumber != "AGT-001" {
		t.Fatalf("unexpected agents %+v", agents)
	}
}

func TestListMissingEnvelopeKey(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []string{}})
	}))
	defer srv.Close()

	_, err := c.Locations(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEmptyListIsNotAnError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"operations": []any{}})
	}))
	defer srv.Close()

	ops, err := c.Operations(context.Background())
	if err != nil {
		t.Fatalf("Operations error: %v", err)
	}
	if ops == nil || len(ops) != 0 {
		t.Fatalf("expected empty slice, got %#v", ops)
	}
}

func TestDetailValidatesRecord(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"agent": map[string]string{"name": "No Number"}})
	}))
	defer srv.Close()

	_, err := c.AgentByID(context.Background(), "AGT-404")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for incomplete record, got %v", err)
	}
}

func TestFileByIDUsesContentDisposition(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/files/DOC-001" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="brief.txt"`)
		_, _ = w.Write([]byte("contents"))
	}))
	defer srv.Close()

	fc, err := c.FileByID(context.Background(), "DOC-001")
	if err != nil {
		t.Fatalf("FileByID error: %v", err)
	}
	if fc.Filename != "brief.txt" || string(fc.Data) != "contents" {
		t.Fatalf("unexpected content %+v", fc)
	}
}

func TestFileByIDFilenameFallsBackToID(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	fc, err := c.FileByID(context.Background(), "DOC-002")
	if err != nil {
		t.Fatalf("FileByID error: %v", err)
	}
	if fc.Filename != "DOC-002" {
		t.Fatalf("filename = %q, want id fallback", fc.Filename)
	}
}

func TestGetRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// kill the connection mid-response to force a client error
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("hijacking unsupported")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatal(err)
			}
			conn.Close()
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": []any{}})
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(func() string { return "t" }))
	if _, err := c.Files(context.Background()); err != nil {
		t.Fatalf("Files should succeed on retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestErrorDetailFallsBackToRawBody(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := c.Agents(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !strings.Contains(se.Detail, "upstream exploded") {
		t.Fatalf("detail = %q", se.Detail)
	}
}
