package twofactor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

func TestConfigOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("issuer without key stores plaintext", func(t *testing.T) {
		t.Parallel()
		opts, err := twofactor.ConfigOptions(totp.Config{Issuer: "Acme"})
		require.NoError(t, err)

		store := twofactor.NewMemoryStore()
		setup, err := newService(t, store, opts...).BeginSetup(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(setup.URI, "otpauth://totp/Acme:u1?"))

		rec, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, setup.Secret, rec.Secret)
	})

	t.Run("encryption key seals secrets", func(t *testing.T) {
		t.Parallel()
		key, err := totp.GenerateEncodedEncryptionKey()
		require.NoError(t, err)
		opts, err := twofactor.ConfigOptions(totp.Config{EncryptionKey: key})
		require.NoError(t, err)

		store := twofactor.NewMemoryStore()
		setup, err := newService(t, store, opts...).BeginSetup(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, setup.URI)

		rec, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.NotEqual(t, setup.Secret, rec.Secret)
	})

	t.Run("invalid key", func(t *testing.T) {
		t.Parallel()
		_, err := twofactor.ConfigOptions(totp.Config{EncryptionKey: "c2hvcnQ="})
		assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)
	})
}
