package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	AESKeySize = 32 // Required key size for AES-256

	sealInfo = "twofactor-totp-secret-v1"
)

// SecretCipher seals TOTP secrets for storage with AES-256-GCM. Each user's
// secret is encrypted under its own key, derived from the application key with
// HKDF-SHA256 salted by the user identifier, so a ciphertext copied to another
// user's record does not open.
type SecretCipher struct {
	appKey []byte
}

// NewSecretCipher returns a cipher bound to a 32-byte application key.
func NewSecretCipher(appKey []byte) (*SecretCipher, error) {
	if len(appKey) != AESKeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}
	key := make([]byte, AESKeySize)
	copy(key, appKey)
	return &SecretCipher{appKey: key}, nil
}

// Seal encrypts secret for userID and returns base64 ciphertext (nonce prefixed).
func (c *SecretCipher) Seal(userID, secret string) (string, error) {
	aesGCM, err := c.aead(userID)
	if err != nil {
		return "", errors.Join(ErrFailedToSealSecret, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrFailedToSealSecret, err)
	}

	cipherText := aesGCM.Seal(nonce, nonce, []byte(secret), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// Open decrypts a value produced by Seal for the same userID.
func (c *SecretCipher) Open(userID, sealed string) (string, error) {
	cipherText, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Join(ErrFailedToOpenSecret, err)
	}

	aesGCM, err := c.aead(userID)
	if err != nil {
		return "", errors.Join(ErrFailedToOpenSecret, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(cipherText) < nonceSize {
		return "", errors.Join(ErrFailedToOpenSecret, ErrInvalidCipherTooShort)
	}
	nonce, cipherText := cipherText[:nonceSize], cipherText[nonceSize:]

	plainText, err := aesGCM.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", errors.Join(ErrFailedToOpenSecret, err)
	}
	return string(plainText), nil
}

func (c *SecretCipher) aead(userID string) (cipher.AEAD, error) {
	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.appKey, []byte(userID), []byte(sealInfo)), key); err != nil {
		return nil, err
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateEncryptionKey creates a new random 32-byte key suitable for AES-256.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return key, nil
}

// GenerateEncodedEncryptionKey returns a fresh key as base64, the format
// expected in TOTP_ENCRYPTION_KEY.
func GenerateEncodedEncryptionKey() (string, error) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
