package encryption

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/config"
)

func testManager() *Manager {
	return NewManager(&config.Config{
		KMS: config.KMSConfig{Enabled: false},
	}, nil)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	sealed, err := m.EncryptSecret(ctx, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEmpty(t, sealed.Ciphertext)
	assert.NotEmpty(t, sealed.EncryptedDEK)
	assert.NotContains(t, sealed.Ciphertext, "JBSWY3DPEHPK3PXP")

	plaintext, err := m.DecryptSecret(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plaintext)
}

func TestDecryptAfterCacheClear(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	sealed, err := m.EncryptSecret(ctx, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	// With local wrapping the DEK is recoverable without the cache.
	m.ClearCache()
	plaintext, err := m.DecryptSecret(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plaintext)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	sealed, err := m.EncryptSecret(ctx, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	tampered := &EncryptedSecret{
		Ciphertext:   base64.StdEncoding.EncodeToString(raw),
		EncryptedDEK: sealed.EncryptedDEK,
		KeyID:        sealed.KeyID,
	}
	_, err = m.DecryptSecret(ctx, tampered)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFreshKeyPerSecret(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	first, err := m.EncryptSecret(ctx, "SECRETONE")
	require.NoError(t, err)
	second, err := m.EncryptSecret(ctx, "SECRETONE")
	require.NoError(t, err)

	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
	assert.NotEqual(t, first.EncryptedDEK, second.EncryptedDEK)
}
