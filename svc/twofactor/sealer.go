package twofactor

// SecretSealer protects TOTP secrets at rest. Implementations should bind the
// sealed value to userID so a sealed secret cannot be moved between users.
type SecretSealer interface {
	Seal(userID, secret string) (string, error)
	Open(userID, sealed string) (string, error)
}

// plaintextSealer stores secrets as is.
type plaintextSealer struct{}

func (plaintextSealer) Seal(_, secret string) (string, error) { return secret, nil }
func (plaintextSealer) Open(_, sealed string) (string, error) { return sealed, nil }
