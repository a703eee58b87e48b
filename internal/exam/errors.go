package exam

import "errors"

// Sentinel errors; handlers map these to HTTP status codes with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExpired = errors.New("window already closed")
)
