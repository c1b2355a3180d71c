package twofactor

import "errors"

var (
	ErrInvalidInput     = errors.New("twofactor: invalid input")
	ErrNotFound         = errors.New("twofactor: not found")
	ErrAlreadyEnabled   = errors.New("twofactor: already enabled")
	ErrInvalidCode      = errors.New("twofactor: invalid code")
	ErrConflict         = errors.New("twofactor: concurrent update conflict")
	ErrStoreUnavailable = errors.New("twofactor: store unavailable")
	ErrNilStore         = errors.New("twofactor: store is required")
)
