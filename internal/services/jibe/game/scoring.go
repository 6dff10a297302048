package game

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

// ScoringEngine tallies rounds and decides when a session ends.
type ScoringEngine struct {
	*deps
	rounds *RoundEngine
}

// ScoreResult reports the outcome of a tally.
type ScoreResult struct {
	SessionID      string
	WinnerDeclared bool
	Winner         *domain.Winner
	// NextRound is the round opened by this tally, or 0 when the session ended.
	NextRound int
}

// ScoreRound applies awards (player id -> points) to the round's turns,
// closes the round and then either ends the session or opens the next round.
// All of it commits together. A round can be tallied once; repeating the
// call fails without crediting anyone again.
func (e *ScoringEngine) ScoreRound(ctx context.Context, sessionID string, round int, awards map[string]int) (_ ScoreResult, err error) {
	ctx, span := e.startSpan(ctx, "jibe.ScoringEngine.ScoreRound", attribute.Int("jibe.round", round))
	defer func() { endSpan(span, err) }()

	id, err := domain.NormalizeSessionID(sessionID)
	if err != nil {
		return ScoreResult{}, err
	}
	span.SetAttributes(attribute.String("jibe.session_id", id))
	if err := domain.ValidateRoundNumber(round); err != nil {
		return ScoreResult{}, err
	}
	if err := domain.ValidateAwards(awards); err != nil {
		return ScoreResult{}, err
	}

	var result ScoreResult
	err = e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		result = ScoreResult{SessionID: id}
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
		if current.Status == domain.RoundStatusCompleted {
			return domain.RoundAlreadyScoredError(id, round)
		}
		closed, err := domain.TransitionRound(current.Status, domain.RoundStatusCompleted)
		if err != nil {
			return err
		}

		now := e.now()
		turns, err := tx.ListTurns(ctx, id, round)
		if err != nil {
			return err
		}
		for _, turn := range turns {
			points := awards[turn.PlayerID]
			if err := tx.SetTurnScore(ctx, id, round, turn.PlayerID, points, now); err != nil {
				return err
			}
			if points == 0 {
				continue
			}
			if err := tx.IncrementPlayerScore(ctx, id, turn.PlayerID, points, now); err != nil {
				return err
			}
		}

		moved, err := tx.SetRoundStatus(ctx, id, round, current.Status, closed, now)
		if err != nil {
			return err
		}
		if !moved {
			return domain.RoundAlreadyScoredError(id, round)
		}

		players, err := tx.ListPlayers(ctx, id)
		if err != nil {
			return err
		}
		updated := session
		updated.UpdatedAt = now
		if winner, ok := domain.DetermineWinner(players, e.cfg.WinThreshold); ok {
			status, err := domain.TransitionSession(session.Status, domain.SessionStatusCompleted)
			if err != nil {
				return err
			}
			updated.Status = status
			updated.Winner = &domain.Winner{UserID: winner.UserID, DisplayName: winner.DisplayName, Avatar: winner.Avatar}
			result.WinnerDeclared = true
			result.Winner = updated.Winner
		} else {
			next := round + 1
			wordID, ok := session.WordFor(next)
			if !ok {
				return domain.WordsExhaustedError(id, next)
			}
			if _, err := e.rounds.OpenRound(ctx, tx, id, next, wordID); err != nil {
				return err
			}
			updated.CurrentRound = next
			result.NextRound = next
		}
		if err := tx.UpdateSession(ctx, updated, session.Status); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return domain.NotStartedError(session)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return ScoreResult{}, e.fault(ctx, "score round", err)
	}

	event := e.log(ctx).Info().Str("session_id", id).Int("round", round).Bool("winner_declared", result.WinnerDeclared)
	if result.Winner != nil {
		event = event.Str("winner_id", result.Winner.UserID)
	}
	event.Int("next_round", result.NextRound).Msg("round scored")
	return result, nil
}
