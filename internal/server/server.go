// Package server is a self-contained stand-in for the dashboard backend:
// the same wire contract the production service speaks, backed by SQLite,
// for local development and integration tests.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/server/store"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/totp"
)

type ctxKey int

const claimsKey ctxKey = iota

type Server struct {
	cfg    Config
	router *mux.Router
	signer *jwtSigner
	store  *store.Store
	logger *log.Logger

	rlLoginIP   *multiLimiter
	rlLoginUser *multiLimiter
}

func New(cfg Config) (*Server, error) {
	cfg.setDefaults()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	signer, err := newJWTSigner(cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		st.Close()
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
		signer: signer,
		store:  st,
		logger: log.New(os.Stdout, "[deepwatchd] ", log.LstdFlags|log.Lshortfile),

		rlLoginIP:   perMinute(10, time.Hour),
		rlLoginUser: perMinute(5, time.Hour),
	}

	if cfg.RegToken != "" {
		if err := st.AddRegToken(cfg.RegToken); err != nil {
			st.Close()
			return nil, err
		}
	}
	if cfg.SeedDemo {
		if err := st.Seed(); err != nil {
			st.Close()
			return nil, err
		}
	}
	if err := s.ensureSeedUsers(); err != nil {
		st.Close()
		return nil, err
	}

	s.routes()
	return s, nil
}

func (s *Server) Close() error { return s.store.Close() }

func (s *Server) routes() {
	s.router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := s.router.NewRoute().Subrouter()
	authed.Use(s.authRequired)
	authed.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	authed.HandleFunc("/agents", s.handleAgents).Methods(http.MethodGet)
	authed.HandleFunc("/agents/{id}", s.handleAgentByID).Methods(http.MethodGet)
	authed.HandleFunc("/locations", s.handleLocations).Methods(http.MethodGet)
	authed.HandleFunc("/locations/{id}", s.handleLocationByID).Methods(http.MethodGet)
	authed.HandleFunc("/operations", s.handleOperations).Methods(http.MethodGet)
	authed.HandleFunc("/operations/{id}", s.handleOperationByID).Methods(http.MethodGet)
	authed.HandleFunc("/api/files", s.handleFiles).Methods(http.MethodGet)
	authed.HandleFunc("/api/files/{id}", s.handleFileByID).Methods(http.MethodGet)
	authed.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
		}
	}()
	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.router.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler { return s }

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
}

// authRequired rejects requests without a valid bearer token and stashes
// the token claims in the request context.
func (s *Server) authRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(h, prefix) {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		c, err := s.signer.parseAndValidate(strings.TrimSpace(h[len(prefix):]))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, c)))
	})
}

func requestClaims(r *http.Request) *claims {
	c, _ := r.Context().Value(claimsKey).(*claims)
	return c
}

func (s *Server) ensureSeedUsers() error {
	for _, seed := range s.cfg.SeedUsers {
		if strings.TrimSpace(seed.Username) == "" || strings.TrimSpace(seed.Password) == "" {
			continue
		}
		if _, err := s.store.FindUser(seed.Username); err == nil {
			continue
		}
		hash, err := hashPassword(defaultArgon, seed.Password)
		if err != nil {
			return err
		}
		secret := seed.TOTPSecret
		if secret == "" {
			if secret, err = totp.GenerateSecret(seed.Username); err != nil {
				return err
			}
		}
		u := store.User{
			Username:   seed.Username,
			PassHash:   hash,
			Role:       seed.Role,
			TOTPSecret: secret,
		}
		if err := s.store.CreateUser(u); err != nil {
			return err
		}
		s.logger.Printf("seeded user %s (%s) totp_secret=%s", u.Username, u.Role, secret)
	}
	return nil
}
