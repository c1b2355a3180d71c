package totp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// SecretSize is the length of generated keys: 160 bits, the RFC 4226 recommendation.
const SecretSize = 20

// ValidateSecretKeyRegex matches canonical secrets: uppercase A-Z, digits 2-7, optional padding.
var ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

// TOTPParams contains the parameters for key URI generation
type TOTPParams struct {
	Secret      string // Base32-encoded secret (required)
	AccountName string // User identifier like email (required)
	Issuer      string // Service name displayed in authenticator apps (required)
}

// Validate ensures all required parameters are present and valid
func (p TOTPParams) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !ValidateSecretKeyRegex.MatchString(p.Secret) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	return nil
}

// GenerateSecretKey generates a new unpadded Base32-encoded secret key.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return EncodeSecret(secret), nil
}

// GetTOTPURI builds the otpauth:// key URI understood by authenticator apps.
// See https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func GetTOTPURI(params TOTPParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	label := fmt.Sprintf("%s:%s",
		url.PathEscape(params.Issuer),
		url.PathEscape(params.AccountName),
	)

	query := url.Values{}
	query.Set("secret", params.Secret)
	query.Set("issuer", params.Issuer)
	query.Set("algorithm", DefaultAlgorithm)
	query.Set("digits", strconv.Itoa(DefaultDigits))
	query.Set("period", strconv.Itoa(DefaultPeriod))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

// GenerateTOTP generates the code for the 30-second window containing t.
func GenerateTOTP(secret string, t time.Time) (string, error) {
	key := DecodeSecret(secret)
	if len(key) == 0 {
		return "", ErrInvalidSecret
	}
	counter := Counter(t)
	if counter < 0 {
		return "", ErrInvalidSecret
	}
	return HOTP(key, uint64(counter)), nil
}
