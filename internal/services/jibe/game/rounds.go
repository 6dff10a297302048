package game

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

// RoundEngine opens rounds and records answers.
type RoundEngine struct {
	*deps
}

// RoundView is a round with its turns.
type RoundView struct {
	Round domain.Round
	Turns []domain.Turn
}

// SubmitTurn records playerID's answer for the round. Submitting again
// before the round closes replaces the earlier answer.
func (e *RoundEngine) SubmitTurn(ctx context.Context, sessionID string, round int, playerID, answer string) (_ domain.Turn, err error) {
	ctx, span := e.startSpan(ctx, "jibe.RoundEngine.SubmitTurn", attribute.Int("jibe.round", round))
	defer func() { endSpan(span, err) }()

	id, err := domain.NormalizeSessionID(sessionID)
	if err != nil {
		return domain.Turn{}, err
	}
	span.SetAttributes(attribute.String("jibe.session_id", id))
	if err := domain.ValidateRoundNumber(round); err != nil {
		return domain.Turn{}, err
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return domain.Turn{}, apperrors.New(apperrors.CodePlayerEmptyUserID, "player id is required")
	}

	var turn domain.Turn
	err = e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		session, err := loadSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if session.Status != domain.SessionStatusStarted {
			return domain.NotStartedError(session)
		}
		current, err := loadRound(ctx, tx, id, round)
		if err != nil {
			return err
		}
		if _, err := tx.GetPlayer(ctx, id, playerID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.NotInSessionError(id, playerID)
			}
			return err
		}
		if !current.Status.AcceptsTurns() {
			return domain.RoundClosedError(id, round)
		}

		now := e.now()
		turn = domain.Turn{
			SessionID:   id,
			RoundNumber: round,
			PlayerID:    playerID,
			Answer:      answer,
			SubmittedAt: now,
			UpdatedAt:   now,
		}
		return tx.UpsertTurn(ctx, turn)
	})
	if err != nil {
		return domain.Turn{}, e.fault(ctx, "submit turn", err)
	}

	e.log(ctx).Debug().Str("session_id", id).Int("round", round).Str("player_id", playerID).Msg("turn submitted")
	return turn, nil
}

// OpenRound creates round number in Started status with the given word.
// It runs inside the caller's transaction.
func (e *RoundEngine) OpenRound(ctx context.Context, tx storage.Tx, sessionID string, number, wordID int) (domain.Round, error) {
	word, err := tx.GetWord(ctx, wordID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Round{}, apperrors.WithMetadata(apperrors.CodeWordNotFound, "assigned word missing from pool",
				map[string]string{"WordID": strconv.Itoa(wordID)})
		}
		return domain.Round{}, err
	}

	now := e.now()
	round := domain.Round{
		SessionID: sessionID,
		Number:    number,
		WordID:    wordID,
		Word:      word,
		Status:    domain.RoundStatusStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.CreateRound(ctx, round); err != nil {
		return domain.Round{}, err
	}
	e.log(ctx).Debug().Str("session_id", sessionID).Int("round", number).Int("word_id", wordID).Msg("round opened")
	return round, nil
}

// GetRound returns a round and its turns.
func (e *RoundEngine) GetRound(ctx context.Context, sessionID string, number int) (_ RoundView, err error) {
	ctx, span := e.startSpan(ctx, "jibe.RoundEngine.GetRound", attribute.Int("jibe.round", number))
	defer func() { endSpan(span, err) }()

	id, err := domain.NormalizeSessionID(sessionID)
	if err != nil {
		return RoundView{}, err
	}
	if err := domain.ValidateRoundNumber(number); err != nil {
		return RoundView{}, err
	}

	var view RoundView
	err = e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadSession(ctx, tx, id); err != nil {
			return err
		}
		round, err := loadRound(ctx, tx, id, number)
		if err != nil {
			return err
		}
		turns, err := tx.ListTurns(ctx, id, number)
		if err != nil {
			return err
		}
		view = RoundView{Round: round, Turns: turns}
		return nil
	})
	if err != nil {
		return RoundView{}, e.fault(ctx, "get round", err)
	}
	return view, nil
}
