package mfa

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateSecret creates a new TOTP key for a subject and returns the base32
// secret together with the otpauth:// enrollment URL an authenticator app can
// scan.
func GenerateSecret(issuer, account string) (secret, enrollmentURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// ValidateCode checks a 6-digit code against the secret with the standard
// ±1 period clock-skew window.
func ValidateCode(code, secret string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

// GenerateBackupCodes returns single-use recovery codes. Callers hash them
// before storage; the plaintext is shown to the subject exactly once.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = 10
	}

	codes := make([]string, count)
	for i := range codes {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes[i] = base64.RawURLEncoding.EncodeToString(buf)[:8]
	}

	return codes, nil
}
