package totp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
)

const backupCodePattern = `^[0-9A-F]{4}-[0-9A-F]{4}$`

func TestGenerateBackupCodes(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for range 20 {
		codes, err := totp.GenerateBackupCodes()
		require.NoError(t, err)
		require.Len(t, codes, totp.BackupCodeCount)

		for _, code := range codes {
			assert.Regexp(t, backupCodePattern, code)
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
		}
	}
}

func TestGenerateRecoveryCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{name: "Generate 8 codes", count: 8},
		{name: "Generate 1 code", count: 1},
		{name: "Generate 0 codes", count: 0, wantErr: true},
		{name: "Generate negative codes", count: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			codes, err := totp.GenerateRecoveryCodes(tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, totp.ErrInvalidRecoveryCodeCount)
				assert.Nil(t, codes)
				return
			}

			require.NoError(t, err)
			assert.Len(t, codes, tt.count)
		})
	}
}

func TestHashRecoveryCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		code string
	}{
		{name: "Normal code", code: "ABCD-1234"},
		{name: "Empty code", code: ""},
		{name: "Special characters", code: "!@#$%^&*()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			hash := totp.HashRecoveryCode(tt.code)
			assert.Len(t, hash, 64) // SHA-256 as hex
			assert.Equal(t, hash, totp.HashRecoveryCode(tt.code))
			assert.NotEqual(t, tt.code, hash)
		})
	}
}

func TestHashRecoveryCode_Normalizes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, totp.HashRecoveryCode("ABCD-12EF"), totp.HashRecoveryCode("  abcd-12ef\n"))
	assert.NotEqual(t, totp.HashRecoveryCode("ABCD-12EF"), totp.HashRecoveryCode("ABCD12EF"))
}

func TestVerifyRecoveryCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		code       string
		hashedCode string
		wantResult bool
	}{
		{name: "Valid code", code: "ABCD-1234", hashedCode: totp.HashRecoveryCode("ABCD-1234"), wantResult: true},
		{name: "Lowercase input", code: "abcd-1234", hashedCode: totp.HashRecoveryCode("ABCD-1234"), wantResult: true},
		{name: "Different code", code: "ABCD-1234", hashedCode: totp.HashRecoveryCode("4321-DCBA"), wantResult: false},
		{name: "Code vs empty hash", code: "ABCD-1234", hashedCode: "", wantResult: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantResult, totp.VerifyRecoveryCode(tt.code, tt.hashedCode))
		})
	}
}

func TestMatchRecoveryCode(t *testing.T) {
	t.Parallel()
	codes, err := totp.GenerateBackupCodes()
	require.NoError(t, err)
	hashes := totp.HashRecoveryCodes(codes)

	for i, code := range codes {
		hash, ok := totp.MatchRecoveryCode(code, hashes)
		assert.True(t, ok)
		assert.Equal(t, hashes[i], hash)
	}

	_, ok := totp.MatchRecoveryCode("0000-0000-0000", hashes)
	assert.False(t, ok)

	_, ok = totp.MatchRecoveryCode(codes[0], nil)
	assert.False(t, ok)
}

func BenchmarkMatchRecoveryCode(b *testing.B) {
	codes, _ := totp.GenerateBackupCodes()
	hashes := totp.HashRecoveryCodes(codes)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		totp.MatchRecoveryCode(codes[len(codes)-1], hashes)
	}
}
