package server

import "time"

// SeedUser is created at startup with a fixed TOTP secret so operators
// can enroll an authenticator against a fresh database.
type SeedUser struct {
	Username   string
	Password   string
	Role       string
	TOTPSecret string
}

type Config struct {
	Addr      string
	DBPath    string
	RegToken  string
	JWTIssuer string
	TokenTTL  time.Duration
	SeedUsers []SeedUser
	SeedDemo  bool
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.DBPath == "" {
		c.DBPath = "deepwatch.db"
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "deepwatch-backend"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 8 * time.Hour
	}
}
