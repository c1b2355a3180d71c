package totp

import (
	"encoding/base64"
	"errors"

	"github.com/dmitrymomot/twofactor/pkg/config"
)

type Config struct {
	EncryptionKey string `env:"TOTP_ENCRYPTION_KEY"` // Base64 32-byte key sealing secrets at rest; empty stores secrets as-is
	Issuer        string `env:"TOTP_ISSUER"`         // Issuer shown in authenticator apps; empty disables key URI generation
}

// LoadConfig reads the TOTP configuration from the environment (and .env).
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GetEncryptionKey decodes the configured key.
// The key must be a 32-byte base64-encoded string.
func GetEncryptionKey(cfg Config) ([]byte, error) {
	if cfg.EncryptionKey == "" {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrEncryptionKeyNotSet)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}

	if len(key) != AESKeySize {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrInvalidEncryptionKeyLength)
	}

	return key, nil
}

// NewSecretCipherFromConfig returns nil and no error when no key is configured.
func NewSecretCipherFromConfig(cfg Config) (*SecretCipher, error) {
	if cfg.EncryptionKey == "" {
		return nil, nil
	}
	key, err := GetEncryptionKey(cfg)
	if err != nil {
		return nil, err
	}
	return NewSecretCipher(key)
}
