package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
)

// RoundStatus is the lifecycle label of a round.
type RoundStatus string

const (
	RoundStatusUnspecified RoundStatus = ""
	RoundStatusStarted     RoundStatus = "started"
	RoundStatusScoring     RoundStatus = "scoring"
	RoundStatusCompleted   RoundStatus = "completed"
)

// ParseRoundStatus canonicalizes stored or wire status labels.
func ParseRoundStatus(value string) (RoundStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "STARTED", "ROUND_STATUS_STARTED":
		return RoundStatusStarted, true
	case "SCORING", "ROUND_STATUS_SCORING":
		return RoundStatusScoring, true
	case "COMPLETED", "ROUND_STATUS_COMPLETED":
		return RoundStatusCompleted, true
	default:
		return RoundStatusUnspecified, false
	}
}

// CanTransitionTo reports whether the round lifecycle allows from -> to.
// A round may be tallied straight from Started when scoring does not wait
// for the watcher.
func (from RoundStatus) CanTransitionTo(to RoundStatus) bool {
	switch from {
	case RoundStatusStarted:
		return to == RoundStatusScoring || to == RoundStatusCompleted
	case RoundStatusScoring:
		return to == RoundStatusCompleted
	case RoundStatusCompleted:
		return false
	default:
		return false
	}
}

// AcceptsTurns reports whether answers can still be submitted.
func (s RoundStatus) AcceptsTurns() bool {
	return s == RoundStatusStarted
}

// TransitionRound validates a lifecycle move and returns the target status.
func TransitionRound(from, to RoundStatus) (RoundStatus, error) {
	if !from.CanTransitionTo(to) {
		return from, apperrors.WithMetadata(
			apperrors.CodeRoundInvalidStatus,
			"invalid round status transition",
			map[string]string{"FromStatus": string(from), "ToStatus": string(to)},
		)
	}
	return to, nil
}

// Round is one word-guessing cycle of a session.
type Round struct {
	SessionID string
	Number    int
	WordID    int
	Word      string
	Status    RoundStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one player's answer for a round.
type Turn struct {
	SessionID   string
	RoundNumber int
	PlayerID    string
	Answer      string
	// Score stays nil until the round is tallied.
	Score       *int
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// ValidateRoundNumber rejects round numbers below 1.
func ValidateRoundNumber(round int) error {
	if round < 1 {
		return apperrors.New(apperrors.CodeRoundInvalidNumber, "round number must be at least 1")
	}
	return nil
}

// RoundNotFoundError reports a missing round.
func RoundNotFoundError(sessionID string, round int) error {
	return apperrors.WithMetadata(apperrors.CodeRoundNotFound, "round not found", roundMeta(sessionID, round))
}

// RoundClosedError reports a submission after the round stopped taking answers.
func RoundClosedError(sessionID string, round int) error {
	return apperrors.WithMetadata(apperrors.CodeRoundClosed, "round is closed", roundMeta(sessionID, round))
}

// RoundAlreadyScoredError reports a repeated tally.
func RoundAlreadyScoredError(sessionID string, round int) error {
	return apperrors.WithMetadata(apperrors.CodeRoundAlreadyScored, "round already scored", roundMeta(sessionID, round))
}

// WordsExhaustedError reports an advance past the pre-sampled words.
func WordsExhaustedError(sessionID string, round int) error {
	return apperrors.WithMetadata(apperrors.CodeRoundWordsExhausted, "no word assigned for round", roundMeta(sessionID, round))
}
