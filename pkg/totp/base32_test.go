package totp_test

import (
	"crypto/rand"
	"testing"

	"github.com/creachadair/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
)

func TestDecodeSecret(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		secret string
		want   []byte
	}{
		{
			name:   "Known vector",
			secret: "JBSWY3DPEHPK3PXP",
			want:   []byte("Hello!\xde\xad\xbe\xef"),
		},
		{
			name:   "Lowercase with separators and padding",
			secret: "jbsw y3dp-ehpk 3pxp==",
			want:   []byte("Hello!\xde\xad\xbe\xef"),
		},
		{
			name:   "Trailing partial byte discarded",
			secret: "MZXW6YQ",
			want:   []byte("foob"),
		},
		{
			name:   "Single full byte",
			secret: "MY",
			want:   []byte("f"),
		},
		{
			name:   "Too short for one byte",
			secret: "M",
			want:   []byte{},
		},
		{
			name:   "Nothing from the alphabet",
			secret: "0189!@#$",
			want:   []byte{},
		},
		{
			name:   "Empty",
			secret: "",
			want:   []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, totp.DecodeSecret(tt.secret))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	for n := 0; n <= 64; n++ {
		raw := make([]byte, n)
		_, err := rand.Read(raw)
		require.NoError(t, err)

		encoded := totp.EncodeSecret(raw)
		assert.NotContains(t, encoded, "=")
		assert.Equal(t, raw, totp.DecodeSecret(encoded), "length %d", n)
	}
}

func TestDecodeSecret_AgreesWithReferenceParser(t *testing.T) {
	t.Parallel()
	for range 20 {
		secret, err := totp.GenerateSecretKey()
		require.NoError(t, err)

		ref, err := otp.ParseKey(secret)
		require.NoError(t, err)
		assert.Equal(t, ref, totp.DecodeSecret(secret))
	}
}
