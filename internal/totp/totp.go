// Package totp wraps time-based one-time password handling for the
// DeepWatch second factor: secret generation, code computation, and the
// provisioning URI the dashboard displays after registration.
package totp

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	ptotp "github.com/pquerna/otp/totp"
)

const (
	// Issuer is the label authenticator apps file the account under.
	Issuer = "DeepWatch"

	Digits = 6
	Period = 30 * time.Second
)

// GenerateSecret returns a fresh base32 shared secret for account.
func GenerateSecret(account string) (string, error) {
	key, err := ptotp.Generate(ptotp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), nil
}

// ProvisionURI builds the enrollment URI in the exact form the dashboard
// shows: otpauth://totp/DeepWatch:<user>?secret=<secret>&issuer=DeepWatch.
func ProvisionURI(username, secret string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		Issuer, url.PathEscape(username), secret, Issuer)
}

// Code computes the 6-digit code for secret at the given time.
func Code(secret string, when time.Time) (string, error) {
	code, err := ptotp.GenerateCode(strings.TrimSpace(secret), when)
	if err != nil {
		return "", fmt.Errorf("compute totp code: %w", err)
	}
	return code, nil
}

// Verify checks a submitted code against secret, accepting one period of
// clock skew on either side, matching the backend's validation window.
func Verify(code, secret string, when time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != Digits {
		return false
	}
	ok, err := ptotp.ValidateCustom(code, strings.TrimSpace(secret), when, ptotp.ValidateOpts{
		Period:    uint(Period / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
