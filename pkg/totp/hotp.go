package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
)

const (
	DefaultDigits    = 6      // Standard 6-digit codes
	DefaultPeriod    = 30     // 30-second time step (RFC 6238 standard)
	DefaultAlgorithm = "SHA1" // HMAC-SHA1 (RFC 4226/6238 standard)
	DefaultSkew      = 1      // Adjacent time steps accepted on each side

	maxDigits = 10 // 31-bit truncated value never has more than 10 digits
)

// HOTP returns the 6-digit RFC 4226 code for key and counter.
func HOTP(key []byte, counter uint64) string {
	return GenerateHOTP(key, counter, DefaultDigits)
}

// GenerateHOTP implements RFC 4226 HMAC-based One-Time Password algorithm.
// The result is zero-padded to exactly digits characters.
func GenerateHOTP(key []byte, counter uint64, digits int) string {
	if digits <= 0 || digits > maxDigits {
		digits = DefaultDigits
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a 4-byte window,
	// top bit cleared so the value is a positive 31-bit integer.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", digits, uint64(code)%pow10(digits))
}

func pow10(n int) uint64 {
	result := uint64(1)
	for range n {
		result *= 10
	}
	return result
}
