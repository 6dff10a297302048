package game

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

const (
	// DefaultWatcherPollInterval is how often the watcher checks for turn writes.
	DefaultWatcherPollInterval = 250 * time.Millisecond
	// DefaultWatcherBatchSize bounds turn writes claimed per poll.
	DefaultWatcherBatchSize = 32
	// DefaultWatcherConcurrency bounds turn writes handled at once.
	DefaultWatcherConcurrency = 4
)

// Watcher closes a round for answers once every player has submitted.
//
// Turn writes arrive at least once and possibly concurrently; the handler
// is a conditional transition that succeeds at most once per round.
type Watcher struct {
	*deps
	feed         storage.TurnWriteFeed
	pollInterval time.Duration
	batchSize    int
	concurrency  int
}

func newWatcher(d *deps, feed storage.TurnWriteFeed) *Watcher {
	return &Watcher{
		deps:         d,
		feed:         feed,
		pollInterval: DefaultWatcherPollInterval,
		batchSize:    DefaultWatcherBatchSize,
		concurrency:  DefaultWatcherConcurrency,
	}
}

// Configure overrides polling parameters; non-positive values keep defaults.
func (w *Watcher) Configure(pollInterval time.Duration, batchSize, concurrency int) {
	if pollInterval > 0 {
		w.pollInterval = pollInterval
	}
	if batchSize > 0 {
		w.batchSize = batchSize
	}
	if concurrency > 0 {
		w.concurrency = concurrency
	}
}

// HandleTurnWrite moves the written round to Scoring when every player of
// the session has a turn in it. It reports whether this call made the move.
// Writes for stale rounds or sessions not in play are ignored.
func (w *Watcher) HandleTurnWrite(ctx context.Context, write storage.TurnWrite) (_ bool, err error) {
	ctx, span := w.startSpan(ctx, "jibe.Watcher.HandleTurnWrite",
		attribute.String("jibe.session_id", write.SessionID),
		attribute.Int("jibe.round", write.RoundNumber),
	)
	defer func() { endSpan(span, err) }()

	var moved bool
	err = w.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		moved = false
		players, err := tx.CountPlayers(ctx, write.SessionID)
		if err != nil {
			return err
		}
		turns, err := tx.CountTurns(ctx, write.SessionID, write.RoundNumber)
		if err != nil {
			return err
		}
		if players == 0 || turns != players {
			return nil
		}

		session, err := tx.GetSession(ctx, write.SessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.SessionStatusStarted || session.CurrentRound != write.RoundNumber {
			return nil
		}
		round, err := tx.GetRound(ctx, write.SessionID, write.RoundNumber)
		if err != nil {
			return err
		}
		if !round.Status.CanTransitionTo(domain.RoundStatusScoring) {
			return nil
		}
		moved, err = tx.SetRoundStatus(ctx, write.SessionID, write.RoundNumber, round.Status, domain.RoundStatusScoring, w.now())
		return err
	})
	if err != nil {
		return false, w.fault(ctx, "handle turn write", err)
	}
	if moved {
		w.log(ctx).Info().Str("session_id", write.SessionID).Int("round", write.RoundNumber).Msg("round ready for scoring")
	}
	return moved, nil
}

// ProcessDue claims one batch of turn writes and handles them concurrently.
// Handled writes are acknowledged; failed ones are rescheduled.
func (w *Watcher) ProcessDue(ctx context.Context) (int, error) {
	if w.feed == nil {
		return 0, fmt.Errorf("turn write feed is not configured")
	}
	now := w.now()
	writes, err := w.feed.ClaimTurnWrites(ctx, now, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim turn writes: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(w.concurrency)
	for _, write := range writes {
		group.Go(func() error {
			if _, handleErr := w.HandleTurnWrite(groupCtx, write); handleErr != nil {
				w.log(groupCtx).Warn().Err(handleErr).Int64("write_id", write.ID).Int("attempt", write.Attempt+1).Msg("turn write failed")
				if err := w.feed.RetryTurnWrite(groupCtx, write, now, handleErr); err != nil {
					return fmt.Errorf("retry turn write %d: %w", write.ID, err)
				}
				return nil
			}
			if err := w.feed.AckTurnWrite(groupCtx, write); err != nil {
				return fmt.Errorf("ack turn write %d: %w", write.ID, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return len(writes), err
	}
	return len(writes), nil
}

// Run polls for turn writes until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.feed == nil {
		return fmt.Errorf("turn write feed is not configured")
	}
	w.log(ctx).Info().Dur("poll_interval", w.pollInterval).Int("batch_size", w.batchSize).Msg("turn watcher started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				processed, err := w.ProcessDue(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					w.log(ctx).Error().Err(err).Msg("process turn writes")
					break
				}
				if processed < w.batchSize {
					break
				}
			}
		}
	}
}
