package totp

import (
	"encoding/base32"
	"strings"
)

// base32Alphabet is the RFC 4648 alphabet; a symbol's index is its 5-bit value.
const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var rawBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeSecret decodes a Base32 secret the way authenticator apps read it.
// Input is upper-cased and every character outside the alphabet (padding,
// spaces, dashes) is dropped. Bits are emitted MSB-first in whole bytes and a
// trailing partial byte is discarded. Malformed input never fails; it simply
// decodes to fewer (or zero) bytes.
func DecodeSecret(secret string) []byte {
	out := make([]byte, 0, len(secret)*5/8)

	var (
		buf  uint64
		bits uint
	)
	for _, r := range strings.ToUpper(secret) {
		v := strings.IndexRune(base32Alphabet, r)
		if v < 0 {
			continue
		}
		buf = buf<<5 | uint64(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
		}
	}

	return out
}

// EncodeSecret renders raw key bytes as unpadded RFC 4648 Base32.
func EncodeSecret(key []byte) string {
	return rawBase32.EncodeToString(key)
}
