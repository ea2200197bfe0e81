package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/api"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/session"
)

func newTestFlow(t *testing.T, h http.Handler) (*Flow, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	client := api.New(srv.URL, api.WithTokenSource(func() string {
		s, err := store.Get()
		if err != nil {
			return ""
		}
		return s.Token
	}))
	return NewFlow(client, store, nil), store
}

func TestRegisterSuccessReturnsProvisioning(t *testing.T) {
	f, store := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "all good", "secret": "JBSWY3DPEHPK3PXP"})
	}))

	prov, err := f.Register(context.Background(), "alice", "pw", "tok")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if prov.Secret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("secret = %q", prov.Secret)
	}
	want := "otpauth://totp/DeepWatch:alice?secret=JBSWY3DPEHPK3PXP&issuer=DeepWatch"
	if prov.URI != want {
		t.Fatalf("URI = %q, want %q", prov.URI, want)
	}
	if f.State() != StateProvisioned {
		t.Fatalf("state = %v", f.State())
	}

	// registration never logs in
	s, err := store.Get()
	if err != nil {
		t.Fatal(err)
	}
	if s.Valid() {
		t.Fatalf("register created a session: %+v", s)
	}
}

func TestRegisterServerMessageSurfacedVerbatim(t *testing.T) {
	f, _ := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Invalid registration token"})
	}))

	_, err := f.Register(context.Background(), "alice", "pw", "bad")
	var rm *RegisterMessage
	if !errors.As(err, &rm) {
		t.Fatalf("expected RegisterMessage, got %v", err)
	}
	if rm.Msg != "Invalid registration token" {
		t.Fatalf("msg = %q", rm.Msg)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	f, _ := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent for missing fields")
	}))
	if _, err := f.Register(context.Background(), "  ", "pw", "tok"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestLoginPersistsSessionTriplet(t *testing.T) {
	f, store := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc", "role": "admin", "username": "alice"})
	}))

	if err := f.Login(context.Background(), "alice", "pw", "123456"); err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if f.State() != StateAuthenticated {
		t.Fatalf("state = %v", f.State())
	}
	s, err := store.Get()
	if err != nil {
		t.Fatal(err)
	}
	if s.Token != "jwt-abc" || s.Username != "alice" || s.Role != "admin" {
		t.Fatalf("stored session %+v", s)
	}
}

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	f, store := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid TOTP code"})
	}))

	err := f.Login(context.Background(), "alice", "pw", "000000")
	var lf *LoginFailure
	if !errors.As(err, &lf) {
		t.Fatalf("expected LoginFailure, got %v", err)
	}
	if lf.Detail != "Invalid TOTP code" {
		t.Fatalf("detail = %q", lf.Detail)
	}
	s, err := store.Get()
	if err != nil {
		t.Fatal(err)
	}
	if s.Valid() {
		t.Fatalf("failed login created a session: %+v", s)
	}
}

func TestCheckSessionAcceptsVerifiedSession(t *testing.T) {
	f, store := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"username": "alice", "role": "user"})
	}))
	if err := store.Set(session.Session{Token: "jwt", Username: "alice", Role: "user"}); err != nil {
		t.Fatal(err)
	}

	if !f.CheckSession(context.Background()) {
		t.Fatal("verified session should pass")
	}
	if f.State() != StateAuthenticated {
		t.Fatalf("state = %v", f.State())
	}
}

func TestCheckSessionClearsRejectedSession(t *testing.T) {
	f, store := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid or expired token"})
	}))
	if err := store.Set(session.Session{Token: "stale", Username: "alice", Role: "user"}); err != nil {
		t.Fatal(err)
	}

	if f.CheckSession(context.Background()) {
		t.Fatal("rejected session should fail the check")
	}
	s, err := store.Get()
	if err != nil {
		t.Fatal(err)
	}
	if s.Valid() {
		t.Fatalf("rejected session not cleared: %+v", s)
	}
}

func TestCheckSessionWithoutStoredSession(t *testing.T) {
	f, _ := newTestFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a stored session")
	}))
	if f.CheckSession(context.Background()) {
		t.Fatal("empty store should fail the check")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f, store := newTestFlow(t, http.NotFoundHandler())
	if err := store.Set(session.Session{Token: "jwt", Username: "alice", Role: "user"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Logout(); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	if err := f.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if f.State() != StateAnonymous {
		t.Fatalf("state = %v", f.State())
	}
}

func TestHandleUnauthorized(t *testing.T) {
	f, store := newTestFlow(t, http.NotFoundHandler())
	if err := store.Set(session.Session{Token: "jwt", Username: "alice", Role: "user"}); err != nil {
		t.Fatal(err)
	}

	if f.HandleUnauthorized(errors.New("boom")) {
		t.Fatal("plain errors should not destroy the session")
	}
	if f.HandleUnauthorized(&api.StatusError{Status: http.StatusForbidden}) {
		t.Fatal("403 should not destroy the session")
	}
	if !f.HandleUnauthorized(&api.StatusError{Status: http.StatusUnauthorized}) {
		t.Fatal("401 should destroy the session")
	}
	s, err := store.Get()
	if err != nil {
		t.Fatal(err)
	}
	if s.Valid() {
		t.Fatalf("session survived 401: %+v", s)
	}
}
