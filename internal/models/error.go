package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")

	// Auth flow errors. ErrInvalidCredentials uses the same wording for an
	// unknown account and a wrong password so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrInvalidAnswer      = errors.New("invalid challenge answer")
	ErrPendingExpired     = errors.New("challenge token expired")
)
