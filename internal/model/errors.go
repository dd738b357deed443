package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountExists           = errors.New("account already exists")
	ErrAccountBanned           = errors.New("account is banned")
	ErrPersistenceSizeMismatch = errors.New("persistence blob size mismatch")

	// Session errors
	ErrInvalidProofToken   = errors.New("invalid identity proof token")
	ErrMissingGameAccess   = errors.New("missing game access")
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrSessionExpired      = errors.New("session token expired")

	// Server errors
	ErrServerNotFound     = errors.New("server not found")
	ErrInvalidDescriptor  = errors.New("invalid server descriptor")
	ErrWrongPassword      = errors.New("wrong server password")
	ErrOriginMismatch     = errors.New("caller origin does not match server")
	ErrNotCurrentServer   = errors.New("account is not on the claimed server")
	ErrRemoteAuthRejected = errors.New("game server rejected the player")

	// Infrastructure errors
	ErrUnavailable = errors.New("dependency unavailable")
)

var rejections = []error{
	ErrAccountNotFound,
	ErrAccountExists,
	ErrAccountBanned,
	ErrPersistenceSizeMismatch,
	ErrInvalidProofToken,
	ErrMissingGameAccess,
	ErrInvalidSessionToken,
	ErrSessionExpired,
	ErrServerNotFound,
	ErrInvalidDescriptor,
	ErrWrongPassword,
	ErrOriginMismatch,
	ErrNotCurrentServer,
	ErrRemoteAuthRejected,
}

// IsRejection reports whether err is a terminal per-request rejection rather
// than an infrastructure failure
func IsRejection(err error) bool {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return false
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// UnavailableError wraps a failure of the store, the identity oracle or a
// remote game server. It matches ErrUnavailable with errors.Is.
type UnavailableError struct {
	Op  string
	Err error
}

// Unavailable wraps err as an UnavailableError for op
func Unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}
