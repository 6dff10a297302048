// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Session errors
	CodeSessionIDEmpty        Code = "SESSION_ID_EMPTY"
	CodeSessionNotFound       Code = "SESSION_NOT_FOUND"
	CodeSessionNotJoinable    Code = "SESSION_NOT_JOINABLE"
	CodeSessionNotStartable   Code = "SESSION_NOT_STARTABLE"
	CodeSessionNotStarted     Code = "SESSION_NOT_STARTED"
	CodeSessionInvalidStatus  Code = "SESSION_INVALID_STATUS_TRANSITION"
	CodeSessionCodeExhausted  Code = "SESSION_CODE_EXHAUSTED"
	CodePlayerNotInSession    Code = "PLAYER_NOT_IN_SESSION"
	CodePlayerEmptyUserID     Code = "PLAYER_EMPTY_USER_ID"
	CodeRoundNotFound         Code = "ROUND_NOT_FOUND"
	CodeRoundInvalidNumber    Code = "ROUND_INVALID_NUMBER"
	CodeRoundClosed           Code = "ROUND_CLOSED"
	CodeRoundAlreadyScored    Code = "ROUND_ALREADY_SCORED"
	CodeRoundInvalidStatus    Code = "ROUND_INVALID_STATUS_TRANSITION"
	CodeScoreNegative         Code = "SCORE_NEGATIVE"
	CodeRoundWordsExhausted   Code = "ROUND_WORDS_EXHAUSTED"
	CodeWordNotFound          Code = "WORD_NOT_FOUND"
	CodeWordPoolTooSmall      Code = "WORD_POOL_TOO_SMALL"
	CodeSampleInvalidArgument Code = "SAMPLE_INVALID_ARGUMENT"

	// Storage errors
	CodeInternal Code = "INTERNAL"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeUnauthenticated:
		return codes.Unauthenticated

	// InvalidArgument - validation failures, bad input
	case CodeSessionIDEmpty,
		CodePlayerEmptyUserID,
		CodeRoundInvalidNumber,
		CodeScoreNegative,
		CodeWordPoolTooSmall,
		CodeSampleInvalidArgument:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionNotJoinable,
		CodeSessionNotStartable,
		CodeSessionNotStarted,
		CodeSessionInvalidStatus,
		CodePlayerNotInSession,
		CodeRoundClosed,
		CodeRoundAlreadyScored,
		CodeRoundInvalidStatus:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeSessionNotFound,
		CodeRoundNotFound:
		return codes.NotFound

	// ResourceExhausted - the game outran its pre-sampled words
	case CodeRoundWordsExhausted:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}
