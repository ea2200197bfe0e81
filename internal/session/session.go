// Package session persists the client's bearer session: an opaque token
// plus the username and role it was issued for. Nothing else is ever
// written here; credentials and TOTP secrets stay out.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Session is the persisted triplet. A session is usable only when Token is
// present; partial state (e.g. a username left over from a bad write) must
// be treated as no session.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Valid reports whether the session can authenticate requests.
func (s Session) Valid() bool { return s.Token != "" }

// Store reads and writes the session file. Writes are atomic: the triplet
// is written to a temp file and renamed into place, so a reader never
// observes a half-written session.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns ~/.deepwatch/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".deepwatch", "session.json"), nil
}

// Set overwrites all three fields.
func (st *Store) Set(s Session) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, st.path)
}

// Get returns whatever is stored. A missing file is an empty session, not
// an error; a corrupt file is an error.
func (st *Store) Get() (Session, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("corrupt session file %s: %w", st.path, err)
	}
	return s, nil
}

// Clear removes the session file. Clearing an already-empty store succeeds.
func (st *Store) Clear() error {
	err := os.Remove(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
