// Package validation checks request inputs at the service boundary.
package validation

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Validation limits for request fields
const (
	MaxSessionIDLength = 256    // Max session id length
	MaxMessageLength   = 16_384 // Max chat message length in bytes
)

// ValidateSessionID validates a session id from a request.
// Session ids are opaque printable strings; callers only use equality.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if len(sessionID) > MaxSessionIDLength {
		return fmt.Errorf("session_id must be at most %d characters", MaxSessionIDLength)
	}
	if !utf8.ValidString(sessionID) {
		return fmt.Errorf("session_id must be valid UTF-8")
	}
	for _, r := range sessionID {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("session_id must contain only printable characters")
		}
	}
	return nil
}

// ValidateChatMessage validates the user message text of a chat request.
func ValidateChatMessage(message string) error {
	if message == "" {
		return fmt.Errorf("message is required")
	}
	if len(message) > MaxMessageLength {
		return fmt.Errorf("message must be at most %d bytes", MaxMessageLength)
	}
	if !utf8.ValidString(message) {
		return fmt.Errorf("message must be valid UTF-8")
	}
	return nil
}
