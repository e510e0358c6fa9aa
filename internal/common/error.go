// Package common defines shared constants and sentinel errors used across
// the client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage errors.
	ErrorNotFound = errors.New("not found")

	// Session lifecycle errors.
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)
