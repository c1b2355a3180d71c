package totp_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
)

func TestSecretCipher_SealOpen(t *testing.T) {
	t.Parallel()
	key, err := totp.GenerateEncryptionKey()
	require.NoError(t, err)
	c, err := totp.NewSecretCipher(key)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
	}{
		{name: "Secret", secret: "JBSWY3DPEHPK3PXP"},
		{name: "Empty", secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sealed, err := c.Seal("user-1", tt.secret)
			require.NoError(t, err)
			assert.NotEqual(t, tt.secret, sealed)

			opened, err := c.Open("user-1", sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.secret, opened)
		})
	}
}

func TestSecretCipher_BoundToUser(t *testing.T) {
	t.Parallel()
	c, err := totp.NewSecretCipher(make([]byte, totp.AESKeySize))
	require.NoError(t, err)

	sealed, err := c.Seal("user-1", "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	_, err = c.Open("user-2", sealed)
	assert.ErrorIs(t, err, totp.ErrFailedToOpenSecret)
}

func TestSecretCipher_FreshNonce(t *testing.T) {
	t.Parallel()
	c, err := totp.NewSecretCipher(make([]byte, totp.AESKeySize))
	require.NoError(t, err)

	a, err := c.Seal("u", "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	b, err := c.Seal("u", "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSecretCipher_Invalid(t *testing.T) {
	t.Parallel()
	_, err := totp.NewSecretCipher(make([]byte, 16))
	assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)

	c, err := totp.NewSecretCipher(make([]byte, totp.AESKeySize))
	require.NoError(t, err)

	tests := []struct {
		name   string
		sealed string
	}{
		{name: "Invalid base64", sealed: "invalid-base64!@#$"},
		{name: "Too short ciphertext", sealed: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "Tampered", sealed: base64.StdEncoding.EncodeToString(make([]byte, 40))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := c.Open("u", tt.sealed)
			assert.ErrorIs(t, err, totp.ErrFailedToOpenSecret)
		})
	}
}

func TestGetEncryptionKey(t *testing.T) {
	t.Parallel()
	encoded, err := totp.GenerateEncodedEncryptionKey()
	require.NoError(t, err)

	key, err := totp.GetEncryptionKey(totp.Config{EncryptionKey: encoded})
	require.NoError(t, err)
	assert.Len(t, key, totp.AESKeySize)

	_, err = totp.GetEncryptionKey(totp.Config{})
	assert.ErrorIs(t, err, totp.ErrEncryptionKeyNotSet)

	_, err = totp.GetEncryptionKey(totp.Config{EncryptionKey: base64.StdEncoding.EncodeToString([]byte("short"))})
	assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)

	c, err := totp.NewSecretCipherFromConfig(totp.Config{})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = totp.NewSecretCipherFromConfig(totp.Config{EncryptionKey: encoded})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
