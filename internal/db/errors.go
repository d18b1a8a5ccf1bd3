package db

import "errors"

// Sentinel errors for type-safe error checking
// Use errors.Is() instead of string comparison
var (
	// ErrSessionNotFound means no durable record exists for the session id.
	// For read-through paths this is the creation trigger, not a failure.
	ErrSessionNotFound = errors.New("session not found")
)
