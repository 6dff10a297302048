// Package domain holds the jibe game model and its lifecycle rules.
package domain

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
)

// SessionStatus is the lifecycle label of a game session.
type SessionStatus string

const (
	SessionStatusUnspecified SessionStatus = ""
	SessionStatusCreated     SessionStatus = "created"
	SessionStatusStarted     SessionStatus = "started"
	SessionStatusCompleted   SessionStatus = "completed"
)

// ParseSessionStatus canonicalizes stored or wire status labels.
func ParseSessionStatus(value string) (SessionStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "CREATED", "SESSION_STATUS_CREATED":
		return SessionStatusCreated, true
	case "STARTED", "SESSION_STATUS_STARTED":
		return SessionStatusStarted, true
	case "COMPLETED", "SESSION_STATUS_COMPLETED":
		return SessionStatusCompleted, true
	default:
		return SessionStatusUnspecified, false
	}
}

// CanTransitionTo reports whether the session lifecycle allows from -> to.
func (from SessionStatus) CanTransitionTo(to SessionStatus) bool {
	switch from {
	case SessionStatusCreated:
		return to == SessionStatusStarted
	case SessionStatusStarted:
		return to == SessionStatusCompleted
	case SessionStatusCompleted:
		return false
	default:
		return false
	}
}

// TransitionSession validates a lifecycle move and returns the target status.
func TransitionSession(from, to SessionStatus) (SessionStatus, error) {
	if !from.CanTransitionTo(to) {
		return from, apperrors.WithMetadata(
			apperrors.CodeSessionInvalidStatus,
			"invalid session status transition",
			map[string]string{"FromStatus": string(from), "ToStatus": string(to)},
		)
	}
	return to, nil
}

// Winner identifies the player who ended the session.
type Winner struct {
	UserID      string
	DisplayName string
	Avatar      string
}

// Session is one game instance keyed by its join code.
type Session struct {
	ID           string
	Status       SessionStatus
	CreatorID    string
	CurrentRound int
	// RoundWords[i] is the word id assigned to round i+1.
	RoundWords []int
	Winner     *Winner
	CreatedAt  time.Time
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// RoundCount is the number of rounds the session has words for.
func (s Session) RoundCount() int {
	return len(s.RoundWords)
}

// WordFor returns the word id pre-assigned to the given round.
func (s Session) WordFor(round int) (int, bool) {
	if round < 1 || round > len(s.RoundWords) {
		return 0, false
	}
	return s.RoundWords[round-1], true
}

// NotJoinableError reports a join against a session that already left Created.
func NotJoinableError(s Session) error {
	return apperrors.WithMetadata(apperrors.CodeSessionNotJoinable, "session is not accepting players",
		map[string]string{"SessionID": s.ID, "Status": string(s.Status)})
}

// NotStartableError reports a start against a session that is not Created.
func NotStartableError(s Session) error {
	return apperrors.WithMetadata(apperrors.CodeSessionNotStartable, "session cannot be started",
		map[string]string{"SessionID": s.ID, "Status": string(s.Status)})
}

// NotStartedError reports play against a session that is not Started.
func NotStartedError(s Session) error {
	return apperrors.WithMetadata(apperrors.CodeSessionNotStarted, "session is not in play",
		map[string]string{"SessionID": s.ID, "Status": string(s.Status)})
}

// SessionNotFoundError reports a missing session.
func SessionNotFoundError(id string) error {
	return apperrors.WithMetadata(apperrors.CodeSessionNotFound, "session not found",
		map[string]string{"SessionID": id})
}

func roundMeta(sessionID string, round int) map[string]string {
	return map[string]string{"SessionID": sessionID, "Round": strconv.Itoa(round)}
}
