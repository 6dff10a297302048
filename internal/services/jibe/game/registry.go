package game

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

// Registry creates sessions, admits players and starts play.
type Registry struct {
	*deps
	rounds *RoundEngine
}

// SessionView is a session with its players in join order.
type SessionView struct {
	Session domain.Session
	Players []domain.Player
}

// CreateSession opens a new session with creator as player #1.
func (r *Registry) CreateSession(ctx context.Context, creator domain.Profile) (_ domain.Session, err error) {
	ctx, span := r.startSpan(ctx, "jibe.Registry.CreateSession")
	defer func() { endSpan(span, err) }()

	profile, err := creator.Normalize()
	if err != nil {
		return domain.Session{}, err
	}

	for attempt := 1; attempt <= r.cfg.CodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return domain.Session{}, apperrors.Wrap(apperrors.CodeInternal, "generate session code", err)
		}

		var session domain.Session
		err = r.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			poolSize, err := tx.CountWords(ctx)
			if err != nil {
				return err
			}
			if poolSize < r.cfg.RoundWords {
				return apperrors.WithMetadata(apperrors.CodeWordPoolTooSmall, "word pool is smaller than the round count",
					map[string]string{"PoolSize": strconv.Itoa(poolSize), "Count": strconv.Itoa(r.cfg.RoundWords)})
			}
			words, err := r.sample(poolSize, r.cfg.RoundWords)
			if err != nil {
				return err
			}

			now := r.now()
			session = domain.Session{
				ID:         code,
				Status:     domain.SessionStatusCreated,
				CreatorID:  profile.UserID,
				RoundWords: words,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.CreateSession(ctx, session); err != nil {
				return err
			}
			return tx.InsertPlayer(ctx, domain.Player{
				SessionID:   code,
				UserID:      profile.UserID,
				DisplayName: profile.DisplayName,
				Avatar:      profile.Avatar,
				Number:      1,
				JoinedAt:    now,
			})
		})
		if errors.Is(err, storage.ErrAlreadyExists) {
			r.log(ctx).Debug().Str("session_id", code).Int("attempt", attempt).Msg("session code collision")
			continue
		}
		if err != nil {
			return domain.Session{}, r.fault(ctx, "create session", err)
		}

		span.SetAttributes(attribute.String("jibe.session_id", session.ID))
		r.log(ctx).Info().Str("session_id", session.ID).Str("creator_id", profile.UserID).Msg("session created")
		return session, nil
	}
	return domain.Session{}, apperrors.New(apperrors.CodeSessionCodeExhausted, "no free session code")
}

// JoinSession admits a player and returns their player record. Joining
// twice returns the original record.
//
// Counting and inserting share one serialized transaction, so concurrent
// joins receive player numbers 1..N with no gaps or repeats.
func (r *Registry) JoinSession(ctx context.Context, sessionID string, profile domain.Profile) (_ domain.Player, err error) {
	ctx, span := r.startSpan(ctx, "jibe.Registry.JoinSession")
	defer func() { endSpan(span, err) }()

	id, err := domain.NormalizeSessionID(sessionID)
	if err != nil {
		return domain.Player{}, err
	}
	span.SetAttributes(attribute.String("jibe.session_id", id))
	profile, err = profile.Normalize()
	if err != nil {
		return domain.Player{}, err
	}

	var (
		player domain.Player
		rejoin bool
	)
	err = r.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		rejoin = false
		session, err := loadSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if session.Status != domain.SessionStatusCreated {
			return domain.NotJoinableError(session)
		}

		existing, err := tx.GetPlayer(ctx, id, profile.UserID)
		if err == nil {
			player = existing
			rejoin = true
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		count, err := tx.CountPlayers(ctx, id)
		if err != nil {
			return err
		}
		player = domain.Player{
			SessionID:   id,
			UserID:      profile.UserID,
			DisplayName: profile.DisplayName,
			Avatar:      profile.Avatar,
			Number:      count + 1,
			JoinedAt:    r.now(),
		}
		return tx.InsertPlayer(ctx, player)
	})
	if err != nil {
		return domain.Player{}, r.fault(ctx, "join session", err)
	}

	r.log(ctx).Info().
		Str("session_id", id).
		Str("user_id", player.UserID).
		Int("player_number", player.Number).
		Bool("rejoin", rejoin).
		Msg("player joined")
	return player, nil
}

// StartSession moves a session into play and opens round 1 in the same
// transaction.
func (r *Registry) StartSession(ctx context.Context, sessionID, requesterID string) (_ domain.Session, err error) {
	ctx, span := r.startSpan(ctx, "jibe.Registry.StartSession")
	defer func() { endSpan(span, err) }()

	id, err := domain.NormalizeSessionID(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	span.SetAttributes(attribute.String("jibe.session_id", id))

	var session domain.Session
	err = r.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := loadSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.SessionStatusCreated {
			return domain.NotStartableError(current)
		}
		next, err := domain.TransitionSession(current.Status, domain.SessionStatusStarted)
		if err != nil {
			return err
		}
		wordID, ok := current.WordFor(1)
		if !ok {
			return domain.WordsExhaustedError(id, 1)
		}

		now := r.now()
		session = current
		session.Status = next
		session.CurrentRound = 1
		session.StartedAt = now
		session.UpdatedAt = now
		if err := tx.UpdateSession(ctx, session, current.Status); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return domain.NotStartableError(current)
			}
			return err
		}
		_, err = r.rounds.OpenRound(ctx, tx, id, 1, wordID)
		return err
	})
	if err != nil {
		return domain.Session{}, r.fault(ctx, "start session", err)
	}

	r.log(ctx).Info().Str("session_id", id).Str("requester_id", requesterID).Msg("session started")
	return session, nil
}

// GetSession returns a session and its players.
func (r *Registry) GetSession(ctx context.Context, sessionID string) (_ SessionView, err error) {
	ctx, span := r.startSpan(ctx, "jibe.Registry.GetSession")
	defer func() { endSpan(span, err) }()

	id, err := domain.NormalizeSessionID(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	var view SessionView
	err = r.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		session, err := loadSession(ctx, tx, id)
		if err != nil {
			return err
		}
		players, err := tx.ListPlayers(ctx, id)
		if err != nil {
			return err
		}
		view = SessionView{Session: session, Players: players}
		return nil
	})
	if err != nil {
		return SessionView{}, r.fault(ctx, "get session", err)
	}
	return view, nil
}
