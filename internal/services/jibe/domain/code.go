package domain

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
)

const (
	// SessionCodeAlphabet omits 0 and O so codes read back unambiguously.
	SessionCodeAlphabet = "123456789ABCDEFGHIJKLMNPQRSTUVWXYZ"
	// SessionCodeLength is the number of characters in a join code.
	SessionCodeLength = 8
)

// NewSessionCode draws a random join code.
func NewSessionCode() (string, error) {
	return gonanoid.Generate(SessionCodeAlphabet, SessionCodeLength)
}

// NormalizeSessionID trims and upper-cases a user-entered code.
func NormalizeSessionID(value string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(value))
	if id == "" {
		return "", apperrors.New(apperrors.CodeSessionIDEmpty, "session id is required")
	}
	return id, nil
}

// IsSessionCode reports whether value is a well-formed join code.
func IsSessionCode(value string) bool {
	if len(value) != SessionCodeLength {
		return false
	}
	for _, r := range value {
		if !strings.ContainsRune(SessionCodeAlphabet, r) {
			return false
		}
	}
	return true
}
