// Package apperr holds the sentinel errors shared across layers.
// Wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound is returned for missing or expired records
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a live record already exists for a key
	ErrConflict = errors.New("conflict")
	// ErrInvalidToken covers every remember-me resolution failure
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedInput is returned by parsers for unusable user input
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnknownMetric is returned for metric types outside the closed set
	ErrUnknownMetric = errors.New("unknown metric type")
	// ErrInvalidCredentials is returned by the authenticator
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when a user acts on another user's thread
	ErrForbidden = errors.New("forbidden")
)
