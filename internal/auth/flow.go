// Package auth is the client-side authentication flow controller. It owns
// the state machine around registration and login and is the only writer
// of the session store; views read the session but never mutate it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/api"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/session"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/totp"
)

// State is where the controller currently stands. Registration walks
// Anonymous -> Registering -> Provisioned -> Anonymous; login walks
// Anonymous -> Authenticating -> Authenticated.
type State int

const (
	StateAnonymous State = iota
	StateRegistering
	StateProvisioned
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateRegistering:
		return "registering"
	case StateProvisioned:
		return "provisioned"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// RegisterSentinel is the exact msg the backend sends when registration
// succeeded and a secret is attached.
const RegisterSentinel = "all good"

// ErrServer stands in for transport and parse failures; the UI shows it as
// a generic "server error" rather than leaking wire details.
var ErrServer = errors.New("server error")

// ErrMissingFields is returned before any network call when a required
// input is empty.
var ErrMissingFields = errors.New("all fields are required")

// RegisterMessage is a non-success registration outcome. The server's
// message is surfaced verbatim.
type RegisterMessage struct {
	Msg string
}

func (e *RegisterMessage) Error() string { return e.Msg }

// LoginFailure is a rejected login. Detail is the server's message, or a
// generic fallback when the body carried none.
type LoginFailure struct {
	Detail string
}

func (e *LoginFailure) Error() string {
	if e.Detail == "" {
		return "login failed, please check your credentials"
	}
	return e.Detail
}

// Provisioning is what a successful registration yields: the shared secret
// and the otpauth URI to enroll it. It is displayed once and never stored.
type Provisioning struct {
	Username string
	Secret   string
	URI      string
}

// Flow drives the handshake against one backend and one session store.
type Flow struct {
	client *api.Client
	store  *session.Store
	logger *log.Logger
	state  State
}

func NewFlow(client *api.Client, store *session.Store, logger *log.Logger) *Flow {
	if logger == nil {
		logger = log.New(os.Stderr, "[auth] ", log.LstdFlags)
	}
	return &Flow{client: client, store: store, logger: logger, state: StateAnonymous}
}

func (f *Flow) State() State { return f.state }

// Session returns the currently stored session; an unreadable store reads
// as no session.
func (f *Flow) Session() session.Session {
	s, err := f.store.Get()
	if err != nil {
		f.logger.Printf("session read failed: %v", err)
		return session.Session{}
	}
	return s
}

// Register runs the registration branch. On the success sentinel it
// transitions to Provisioned and returns the enrollment material; on any
// other server message it stays in Registering and returns that message as
// a *RegisterMessage. No session is ever created here.
func (f *Flow) Register(ctx context.Context, username, password, regtoken string) (*Provisioning, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || regtoken == "" {
		return nil, ErrMissingFields
	}

	f.state = StateRegistering
	res, err := f.client.Register(ctx, username, password, regtoken)
	if err != nil {
		f.logger.Printf("register failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	if res.Msg != RegisterSentinel || res.Secret == "" {
		return nil, &RegisterMessage{Msg: res.Msg}
	}

	f.state = StateProvisioned
	return &Provisioning{
		Username: username,
		Secret:   res.Secret,
		URI:      totp.ProvisionURI(username, res.Secret),
	}, nil
}

// Login runs the login branch. On success the session triplet is persisted
// and the state becomes Authenticated; on any failure the session store is
// left untouched. Retrying is just calling Login again.
func (f *Flow) Login(ctx context.Context, username, password, totpCode string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || totpCode == "" {
		return ErrMissingFields
	}

	f.state = StateAuthenticating
	res, err := f.client.Login(ctx, username, password, totpCode)
	if err != nil {
		f.state = StateAnonymous
		var se *api.StatusError
		if errors.As(err, &se) {
			return &LoginFailure{Detail: se.Detail}
		}
		f.logger.Printf("login failed: %v", err)
		return fmt.Errorf("%w: %v", ErrServer, err)
	}

	if err := f.store.Set(session.Session{Token: res.Token, Username: username, Role: res.Role}); err != nil {
		f.state = StateAnonymous
		return fmt.Errorf("persist session: %w", err)
	}
	f.state = StateAuthenticated
	return nil
}

// CheckSession is the courtesy check run when the login view is entered
// with a stored session: verify the token and skip straight to the main
// view, or clear the session on any failure whatsoever. The backend still
// validates the token on every protected call regardless.
func (f *Flow) CheckSession(ctx context.Context) bool {
	s := f.Session()
	if !s.Valid() {
		f.state = StateAnonymous
		return false
	}
	if err := f.client.Verify(ctx, s.Username, s.Role); err != nil {
		f.logger.Printf("stored session rejected: %v", err)
		if cerr := f.store.Clear(); cerr != nil {
			f.logger.Printf("session clear failed: %v", cerr)
		}
		f.state = StateAnonymous
		return false
	}
	f.state = StateAuthenticated
	return true
}

// Logout clears the session unconditionally. Calling it twice ends in the
// same empty state as calling it once.
func (f *Flow) Logout() error {
	f.state = StateAnonymous
	return f.store.Clear()
}

// HandleUnauthorized destroys the session when err is a 401 from a
// protected call. It reports whether it did so, letting the caller
// redirect to login instead of rendering an error.
func (f *Flow) HandleUnauthorized(err error) bool {
	if !api.IsUnauthorized(err) {
		return false
	}
	if cerr := f.store.Clear(); cerr != nil {
		f.logger.Printf("session clear failed: %v", cerr)
	}
	f.state = StateAnonymous
	return true
}
