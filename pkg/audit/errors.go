package audit

import "errors"

var (
	ErrEventValidation = errors.New("event validation failed")
	ErrNilStorage      = errors.New("audit storage cannot be nil")
)
