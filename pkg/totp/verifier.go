package totp

import (
	"crypto/subtle"
	"time"
)

// Verifier checks presented codes against the current 30-second step and its
// immediate neighbours. The zero value is ready to use.
type Verifier struct {
	// generate is replaced in tests to observe how many HMACs were computed.
	generate func(key []byte, counter uint64) string
}

// NewVerifier returns a Verifier using RFC 6238 defaults.
func NewVerifier() *Verifier {
	return &Verifier{generate: HOTP}
}

// Counter returns the time-step counter for t.
func Counter(t time.Time) int64 {
	return floorDiv(t.Unix(), DefaultPeriod)
}

// ValidateCode reports ErrInvalidOTP unless code is exactly six ASCII digits.
func ValidateCode(code string) error {
	if len(code) != DefaultDigits {
		return ErrInvalidOTP
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrInvalidOTP
		}
	}
	return nil
}

// Match verifies code for the window containing now. On success it returns
// the counter that matched, which callers may persist for replay protection.
//
// Format is checked before any cryptographic work. All candidate windows are
// always computed and compared in constant time so the response time does not
// depend on which window (if any) matched.
func (v *Verifier) Match(secret, code string, now time.Time) (int64, bool, error) {
	if err := ValidateCode(code); err != nil {
		return 0, false, err
	}

	key := DecodeSecret(secret)
	if len(key) == 0 {
		return 0, false, ErrInvalidSecret
	}

	generate := v.generate
	if generate == nil {
		generate = HOTP
	}

	current := Counter(now)
	matched := int64(-1)
	for step := -int64(DefaultSkew); step <= DefaultSkew; step++ {
		candidate := current + step
		if candidate < 0 {
			continue
		}
		expected := generate(key, uint64(candidate))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 && matched < 0 {
			matched = candidate
		}
	}

	if matched < 0 {
		return 0, false, nil
	}
	return matched, true, nil
}

// Verify is Match without the counter.
func (v *Verifier) Verify(secret, code string, now time.Time) (bool, error) {
	_, ok, err := v.Match(secret, code, now)
	return ok, err
}

// ValidateTOTP validates the code provided by the user at time now.
// A malformed code yields ErrInvalidOTP; a wrong code yields false and no error.
func ValidateTOTP(secret, code string, now time.Time) (bool, error) {
	return NewVerifier().Verify(secret, code, now)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
