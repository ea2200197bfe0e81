package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/server/store"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/totp"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RegToken string `json:"regtoken"`
}

type registerResponse struct {
	Msg    string `json:"msg"`
	Secret string `json:"secret,omitempty"`
}

// handleRegister always answers 200 with a msg field; only the sentinel
// "all good" means an account was created. Clients surface any other msg
// to the operator verbatim.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, registerResponse{Msg: "Malformed request body"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.RegToken == "" {
		writeJSON(w, registerResponse{Msg: "All fields are required"})
		return
	}
	if _, err := s.store.FindUser(req.Username); err == nil {
		writeJSON(w, registerResponse{Msg: "Username already exists"})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ok, err := s.store.ConsumeRegToken(req.RegToken)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeJSON(w, registerResponse{Msg: "Invalid registration token"})
		return
	}

	hash, err := hashPassword(defaultArgon, req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	secret, err := totp.GenerateSecret(req.Username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	u := store.User{Username: req.Username, PassHash: hash, Role: "user", TOTPSecret: secret}
	if err := s.store.CreateUser(u); err != nil {
		writeJSON(w, registerResponse{Msg: "Username already exists"})
		return
	}

	s.store.LogActivity(req.Username, "user", "register", "account created")
	s.logger.Printf("registered user %s", req.Username)
	writeJSON(w, registerResponse{Msg: "all good", Secret: secret})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.rlLoginIP.allow(getClientIP(r)) {
		tooManyRequests(w)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.TOTPCode == "" {
		writeDetail(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if !s.rlLoginUser.allow(strings.ToLower(req.Username)) {
		tooManyRequests(w)
		return
	}

	u, err := s.store.FindUser(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		// burn cycles so missing users cost the same as bad passwords
		_, _ = verifyPassword(req.Password, phantomHash)
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ok, err := verifyPassword(req.Password, u.PassHash)
	if err != nil || !ok {
		s.store.LogActivity(u.Username, u.Role, "login_failed", "bad password")
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !totp.Verify(req.TOTPCode, u.TOTPSecret, time.Now()) {
		s.store.LogActivity(u.Username, u.Role, "login_failed", "bad totp code")
		writeDetail(w, http.StatusUnauthorized, "Invalid TOTP code")
		return
	}

	token, err := s.signer.issueToken(u.Username, u.Role)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(u.Username, u.Role, "login", "session issued")
	writeJSON(w, loginResponse{Token: token, Role: u.Role, Username: u.Username})
}

// phantomHash is a valid argon2id encoding of a throwaway password, used
// to equalize timing when the username does not exist.
const phantomHash = "argon2id$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$JZtVJSOMH6v7y5MHc9EHz0ZVbpSyAG/AtAqvLMwvdDY"

type verifyRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// handleVerify confirms that a stored session triplet still matches a
// live token. Clients call it at startup before trusting a cached login.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Username != c.Username || req.Role != c.Role {
		writeDetail(w, http.StatusUnauthorized, "Session mismatch")
		return
	}
	writeJSON(w, map[string]string{"username": c.Username, "role": c.Role})
}
