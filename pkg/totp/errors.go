package totp

import "errors"

var (
	ErrInvalidOTP                    = errors.New("invalid OTP format")
	ErrInvalidSecret                 = errors.New("invalid secret")
	ErrMissingSecret                 = errors.New("missing secret")
	ErrMissingAccountName            = errors.New("missing account name")
	ErrMissingIssuer                 = errors.New("missing issuer")
	ErrFailedToGenerateSecretKey     = errors.New("failed to generate TOTP secret key")
	ErrFailedToGenerateRecoveryCode  = errors.New("failed to generate recovery code")
	ErrInvalidRecoveryCodeCount      = errors.New("invalid recovery code count, must be greater than 0")
	ErrFailedToSealSecret            = errors.New("failed to seal TOTP secret")
	ErrFailedToOpenSecret            = errors.New("failed to open sealed TOTP secret")
	ErrInvalidCipherTooShort         = errors.New("cipher text too short")
	ErrInvalidEncryptionKeyLength    = errors.New("invalid encryption key length")
	ErrFailedToGenerateEncryptionKey = errors.New("failed to generate encryption key")
	ErrFailedToLoadEncryptionKey     = errors.New("failed to load encryption key")
	ErrEncryptionKeyNotSet           = errors.New("TOTP encryption key not set")
)
