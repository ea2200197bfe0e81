package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetGetRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := NewStore(path)

	want := Session{Token: "tok-123", Username: "alice", Role: "user"}
	if err := st.Set(want); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err := st.Get()
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("session file perm = %o, want 600", perm)
	}
}

func TestGetMissingFileIsEmptySession(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "session.json"))
	got, err := st.Get()
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Valid() {
		t.Fatalf("expected invalid session, got %+v", got)
	}
}

func TestGetCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	st := NewStore(path)
	if _, err := st.Get(); err == nil {
		t.Fatal("expected error for corrupt session file")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	st := NewStore(path)
	if err := st.Set(Session{Token: "t", Username: "u", Role: "r"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("first Clear error: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("second Clear error: %v", err)
	}
	got, err := st.Get()
	if err != nil {
		t.Fatal(err)
	}
	if got.Valid() {
		t.Fatalf("session survived Clear: %+v", got)
	}
}

func TestValidRequiresToken(t *testing.T) {
	if (Session{Username: "alice", Role: "admin"}).Valid() {
		t.Fatal("session without token should be invalid")
	}
	if !(Session{Token: "x"}).Valid() {
		t.Fatal("session with token should be valid")
	}
}
