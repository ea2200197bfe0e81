package server

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Username string
	Role     string
	TokenID  string
}

// jwtSigner issues and validates the bearer tokens handed out by /login.
// Keys are generated per process; restarting the daemon invalidates all
// outstanding sessions, which is acceptable for a dev backend.
type jwtSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	iss  string
	ttl  time.Duration
}

func newJWTSigner(iss string, ttl time.Duration) (*jwtSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &jwtSigner{priv: priv, pub: pub, iss: iss, ttl: ttl}, nil
}

func (s *jwtSigner) issueToken(username, role string) (string, error) {
	now := time.Now()
	mc := jwt.MapClaims{
		"iss":  s.iss,
		"sub":  username,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  randomJTI(),
		"role": role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, mc)
	return token.SignedString(s.priv)
}

func (s *jwtSigner) parseAndValidate(tokenStr string) (*claims, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodEdDSA {
			return nil, errors.New("unexpected signing method")
		}
		return s.pub, nil
	}

	tok, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, keyFunc, jwt.WithIssuer(s.iss))
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	mc := tok.Claims.(jwt.MapClaims)

	getString := func(k string) string {
		if v, ok := mc[k].(string); ok {
			return v
		}
		return ""
	}
	c := &claims{
		Username: getString("sub"),
		Role:     getString("role"),
		TokenID:  getString("jti"),
	}
	if c.Username == "" {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

func randomJTI() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
