package twofactor

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/audit"
	"github.com/dmitrymomot/twofactor/pkg/totp"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Secrets and codes are never logged.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithAuditLogger records security events through al.
func WithAuditLogger(al *audit.Logger) ServiceOption {
	return func(s *Service) { s.audit = al }
}

// WithClock overrides the time source used for TOTP windows and timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer sets the issuer shown by authenticator apps. When set,
// BeginSetup also returns an otpauth:// key URI.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) { s.issuer = issuer }
}

// WithSecretSealer encrypts secrets before they reach the store.
// A *totp.SecretCipher satisfies SecretSealer.
func WithSecretSealer(sealer SecretSealer) ServiceOption {
	return func(s *Service) {
		if sealer != nil {
			s.sealer = sealer
		}
	}
}

// WithReplayProtection rejects a TOTP code whose time step is not newer than
// the last accepted one, so each code can be used at most once.
func WithReplayProtection() ServiceOption {
	return func(s *Service) { s.replayProtection = true }
}

// ConfigOptions turns a totp.Config into service options: the issuer, and a
// secret cipher when an encryption key is configured.
func ConfigOptions(cfg totp.Config) ([]ServiceOption, error) {
	opts := []ServiceOption{WithIssuer(cfg.Issuer)}

	cipher, err := totp.NewSecretCipherFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cipher != nil {
		opts = append(opts, WithSecretSealer(cipher))
	}
	return opts, nil
}
