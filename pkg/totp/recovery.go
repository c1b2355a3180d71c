package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// BackupCodeCount is the number of codes issued when two-factor authentication is enabled.
const BackupCodeCount = 10

// GenerateBackupCodes returns the standard batch of BackupCodeCount codes.
func GenerateBackupCodes() ([]string, error) {
	return GenerateRecoveryCodes(BackupCodeCount)
}

// GenerateRecoveryCodes creates distinct single-use codes shaped XXXX-XXXX,
// each carrying 32 random bits rendered as uppercase hex.
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidRecoveryCodeCount
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	var raw [4]byte
	for len(codes) < count {
		if _, err := rand.Read(raw[:]); err != nil {
			return nil, errors.Join(ErrFailedToGenerateRecoveryCode, err)
		}
		code := fmt.Sprintf("%02X%02X-%02X%02X", raw[0], raw[1], raw[2], raw[3])
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// NormalizeRecoveryCode trims surrounding whitespace and upper-cases the code
// so that "abcd-1234 " and "ABCD-1234" hash identically.
func NormalizeRecoveryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// HashRecoveryCode returns the SHA-256 hex digest stored in place of the code.
func HashRecoveryCode(code string) string {
	hash := sha256.Sum256([]byte(NormalizeRecoveryCode(code)))
	return hex.EncodeToString(hash[:])
}

// HashRecoveryCodes hashes every code in order.
func HashRecoveryCodes(codes []string) []string {
	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = HashRecoveryCode(code)
	}
	return hashes
}

// VerifyRecoveryCode compares code against hashedCode in constant time.
func VerifyRecoveryCode(code, hashedCode string) bool {
	computed := HashRecoveryCode(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashedCode)) == 1
}

// MatchRecoveryCode finds the stored hash matching code. Every hash is compared,
// even after a match, so timing does not reveal the matching position.
func MatchRecoveryCode(code string, hashes []string) (string, bool) {
	computed := []byte(HashRecoveryCode(code))
	match := -1
	for i, h := range hashes {
		if subtle.ConstantTimeCompare(computed, []byte(h)) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return "", false
	}
	return hashes[match], true
}
