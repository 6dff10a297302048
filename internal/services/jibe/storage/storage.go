// Package storage defines persistence contracts for jibe game state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/jibe/internal/services/jibe/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates a conditional write found the record in another state.
	ErrConflict = errors.New("record changed concurrently")
)

// Store runs unit-of-work transactions against game state.
//
// InTx commits when fn returns nil and rolls back otherwise. Writers are
// serialized, so reads inside fn see a stable snapshot for the whole call.
// Implementations may invoke fn more than once when the backend reports
// transient contention, so fn must not have side effects outside tx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside one transaction.
type Tx interface {
	WordReader
	SessionTx
	PlayerTx
	RoundTx
	TurnTx
}

// WordReader reads the word pool.
type WordReader interface {
	CountWords(ctx context.Context) (int, error)
	GetWord(ctx context.Context, number int) (string, error)
}

// SessionTx persists sessions.
type SessionTx interface {
	// CreateSession returns ErrAlreadyExists when the code is taken.
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// UpdateSession writes status, current round, start time and winner only
	// when the stored status still equals expected; otherwise ErrConflict.
	UpdateSession(ctx context.Context, session domain.Session, expected domain.SessionStatus) error
}

// PlayerTx persists players.
type PlayerTx interface {
	// InsertPlayer returns ErrAlreadyExists for a duplicate user or number.
	InsertPlayer(ctx context.Context, player domain.Player) error
	GetPlayer(ctx context.Context, sessionID, userID string) (domain.Player, error)
	CountPlayers(ctx context.Context, sessionID string) (int, error)
	// ListPlayers orders by player number.
	ListPlayers(ctx context.Context, sessionID string) ([]domain.Player, error)
	// IncrementPlayerScore adds delta in place without reading the old score.
	IncrementPlayerScore(ctx context.Context, sessionID, userID string, delta int, at time.Time) error
}

// RoundTx persists rounds.
type RoundTx interface {
	// CreateRound returns ErrAlreadyExists when the round is already open.
	CreateRound(ctx context.Context, round domain.Round) error
	GetRound(ctx context.Context, sessionID string, number int) (domain.Round, error)
	// SetRoundStatus moves a round from -> to and reports whether it did.
	SetRoundStatus(ctx context.Context, sessionID string, number int, from, to domain.RoundStatus, at time.Time) (bool, error)
}

// TurnTx persists turns.
type TurnTx interface {
	// UpsertTurn writes the answer (last write wins) and enqueues a TurnWrite
	// in the same transaction.
	UpsertTurn(ctx context.Context, turn domain.Turn) error
	// ListTurns orders by player id.
	ListTurns(ctx context.Context, sessionID string, round int) ([]domain.Turn, error)
	CountTurns(ctx context.Context, sessionID string, round int) (int, error)
	SetTurnScore(ctx context.Context, sessionID string, round int, playerID string, score int, at time.Time) error
}

// TurnWrite is one notification that a turn was created or updated.
type TurnWrite struct {
	ID          int64
	SessionID   string
	RoundNumber int
	PlayerID    string
	Attempt     int
}

// TurnWriteFeed delivers turn writes at least once.
type TurnWriteFeed interface {
	// ClaimTurnWrites leases up to limit due writes. Leases that are not
	// acknowledged or retried expire and the write is delivered again.
	ClaimTurnWrites(ctx context.Context, now time.Time, limit int) ([]TurnWrite, error)
	// AckTurnWrite removes a handled write.
	AckTurnWrite(ctx context.Context, write TurnWrite) error
	// RetryTurnWrite schedules a failed write for another attempt, or parks
	// it once the attempt budget is spent.
	RetryTurnWrite(ctx context.Context, write TurnWrite, now time.Time, cause error) error
}

// WordCatalog replaces the word pool.
type WordCatalog interface {
	// ReplaceWords numbers words 1..len(words) in order.
	ReplaceWords(ctx context.Context, words []string) error
}
