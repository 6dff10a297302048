package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeSessionIDEmpty        = "SESSION_ID_EMPTY"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionNotJoinable    = "SESSION_NOT_JOINABLE"
	CodeSessionNotStartable   = "SESSION_NOT_STARTABLE"
	CodeSessionNotStarted     = "SESSION_NOT_STARTED"
	CodeSessionInvalidStatus  = "SESSION_INVALID_STATUS_TRANSITION"
	CodeSessionCodeExhausted  = "SESSION_CODE_EXHAUSTED"
	CodePlayerNotInSession    = "PLAYER_NOT_IN_SESSION"
	CodePlayerEmptyUserID     = "PLAYER_EMPTY_USER_ID"
	CodeRoundNotFound         = "ROUND_NOT_FOUND"
	CodeRoundInvalidNumber    = "ROUND_INVALID_NUMBER"
	CodeRoundClosed           = "ROUND_CLOSED"
	CodeRoundAlreadyScored    = "ROUND_ALREADY_SCORED"
	CodeRoundInvalidStatus    = "ROUND_INVALID_STATUS_TRANSITION"
	CodeScoreNegative         = "SCORE_NEGATIVE"
	CodeRoundWordsExhausted   = "ROUND_WORDS_EXHAUSTED"
	CodeWordNotFound          = "WORD_NOT_FOUND"
	CodeWordPoolTooSmall      = "WORD_POOL_TOO_SMALL"
	CodeSampleInvalidArgument = "SAMPLE_INVALID_ARGUMENT"
	CodeInternal              = "INTERNAL"
)

var enUSMessages = map[Code]string{
	CodeUnauthenticated: "You must be signed in to play",

	// Session errors
	CodeSessionIDEmpty:       "A game code is required",
	CodeSessionNotFound:      "Game {{.SessionID}} does not exist",
	CodeSessionNotJoinable:   "Can't join game {{.SessionID}} because it is {{.Status}}",
	CodeSessionNotStartable:  "Can't start game {{.SessionID}} because it is {{.Status}}",
	CodeSessionNotStarted:    "Game {{.SessionID}} is {{.Status}}",
	CodeSessionInvalidStatus: "Cannot move game from {{.FromStatus}} to {{.ToStatus}}",
	CodeSessionCodeExhausted: "Could not allocate a game code, try again",
	CodePlayerNotInSession:   "You are not a player in game {{.SessionID}}",
	CodePlayerEmptyUserID:    "A player id is required",

	// Round errors
	CodeRoundNotFound:       "Round {{.Round}} does not exist",
	CodeRoundInvalidNumber:  "Round number must be at least 1",
	CodeRoundClosed:         "Round {{.Round}} is no longer accepting answers",
	CodeRoundAlreadyScored:  "Round {{.Round}} has already been scored",
	CodeRoundInvalidStatus:  "Cannot move round from {{.FromStatus}} to {{.ToStatus}}",
	CodeScoreNegative:       "Scores cannot be negative",
	CodeRoundWordsExhausted: "Game {{.SessionID}} has run out of words",

	// Word errors
	CodeWordNotFound:          "Word {{.WordID}} is missing from the word pool",
	CodeWordPoolTooSmall:      "The word pool has {{.PoolSize}} words, {{.Count}} are needed",
	CodeSampleInvalidArgument: "Cannot sample {{.Count}} words from a pool of {{.PoolSize}}",

	CodeInternal: "Something went wrong, please try again",
}
