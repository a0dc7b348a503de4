package mfa

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, url, err := GenerateSecret("SecOps", "admin-1")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")
	assert.Contains(t, url, "SecOps")

	other, _, err := GenerateSecret("SecOps", "admin-1")
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestValidateCode(t *testing.T) {
	secret, _, err := GenerateSecret("SecOps", "admin-1")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ValidateCode(code, secret))

	assert.False(t, ValidateCode("000000", secret))
	assert.False(t, ValidateCode("", secret))
	assert.False(t, ValidateCode(code, "NOTABASE32SECRET"))
}

func TestValidateCodeSkew(t *testing.T) {
	secret, _, err := GenerateSecret("SecOps", "admin-1")
	require.NoError(t, err)

	// A code from the previous period is still inside the skew window.
	previous, err := totp.GenerateCode(secret, time.Now().UTC().Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, ValidateCode(previous, secret))

	// Five minutes back is well outside it.
	stale, err := totp.GenerateCode(secret, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.False(t, ValidateCode(stale, secret))
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Len(t, code, 8)
		assert.False(t, seen[code], "duplicate backup code %q", code)
		seen[code] = true
	}

	defaulted, err := GenerateBackupCodes(0)
	require.NoError(t, err)
	assert.Len(t, defaulted, 10)
}
