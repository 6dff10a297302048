package game

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

// fault passes domain and context errors through and hides everything else
// behind INTERNAL after logging it.
func (d *deps) fault(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	d.log(ctx).Error().Err(err).Str("op", op).Msg("storage failure")
	return apperrors.Wrap(apperrors.CodeInternal, op+": storage failure", err)
}

func loadSession(ctx context.Context, tx storage.Tx, id string) (domain.Session, error) {
	session, err := tx.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Session{}, domain.SessionNotFoundError(id)
	}
	return session, err
}

func loadRound(ctx context.Context, tx storage.Tx, sessionID string, number int) (domain.Round, error) {
	round, err := tx.GetRound(ctx, sessionID, number)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Round{}, domain.RoundNotFoundError(sessionID, number)
	}
	return round, err
}
