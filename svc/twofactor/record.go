package twofactor

import (
	"slices"
	"time"
)

// State is the enrollment state of a user.
type State string

const (
	StateUnregistered State = "unregistered"
	StatePending      State = "pending"
	StateEnabled      State = "enabled"
)

// Name implements statemachine.State.
func (s State) Name() string { return string(s) }

// Record is the persisted two-factor data of one user.
type Record struct {
	UserID string
	// Secret is the Base32 TOTP secret, sealed when the service has a
	// SecretSealer. It never leaves the service once Enabled is true.
	Secret  string
	Enabled bool
	// BackupCodeHashes holds SHA-256 hex digests of unused backup codes.
	// Empty while pending.
	BackupCodeHashes []string
	EnabledAt        time.Time
	// LastCounter is the last accepted TOTP counter, 0 if none was recorded.
	LastCounter int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// State maps r onto the enrollment state machine. A nil record is unregistered.
func (r *Record) State() State {
	switch {
	case r == nil:
		return StateUnregistered
	case r.Enabled:
		return StateEnabled
	default:
		return StatePending
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.BackupCodeHashes = slices.Clone(r.BackupCodeHashes)
	return &c
}
