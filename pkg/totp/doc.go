// Package totp implements the cryptographic half of two-factor authentication:
// RFC 4226 HOTP, RFC 6238 TOTP verification with a one-step drift window,
// lenient Base32 secret handling, single-use backup codes and AES-256-GCM
// sealing of secrets at rest.
//
// Everything here is pure and stateless. Persistence, the enrollment lifecycle
// and redemption bookkeeping live in svc/twofactor.
//
// # Protocol constants
//
// Codes are 6 decimal digits, HMAC-SHA1, 30-second steps, and a presented code
// is accepted for the current step and one step on either side. Secrets are
// unpadded RFC 4648 Base32. These values are fixed for interoperability with
// Google Authenticator, 1Password and compatible apps.
//
// # Usage
//
//	secret, _ := totp.GenerateSecretKey()
//
//	uri, _ := totp.GetTOTPURI(totp.TOTPParams{
//	    Secret:      secret,
//	    AccountName: "alice@example.com",
//	    Issuer:      "Acme",
//	})
//
//	ok, err := totp.ValidateTOTP(secret, "123456", time.Now())
//	if errors.Is(err, totp.ErrInvalidOTP) {
//	    // not six digits; no HMAC was computed
//	}
//
// Backup codes are issued once and only their hashes are kept:
//
//	codes, _ := totp.GenerateBackupCodes() // 10 x "XXXX-XXXX"
//	hashes := totp.HashRecoveryCodes(codes)
//	hash, ok := totp.MatchRecoveryCode(input, hashes)
//
// # Decoding
//
// DecodeSecret never fails. Characters outside the Base32 alphabet are
// dropped and a trailing partial byte is discarded, matching what
// authenticator apps tolerate. A secret that decodes to nothing is reported as
// ErrInvalidSecret by the verifier rather than panicking.
//
// # Replay
//
// The verifier itself does not remember accepted codes, so a code stays valid
// for its whole window. Match returns the matched counter so that callers can
// persist it and refuse counters that are not strictly newer.
package totp
