package game

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

func roundStatus(t *testing.T, g *Game, sessionID string, round int) domain.RoundStatus {
	t.Helper()
	view, err := g.Rounds.GetRound(context.Background(), sessionID, round)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	return view.Round.Status
}

func TestHandleTurnWriteWaitsForAllPlayers(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, DefaultConfig())
	ctx := context.Background()
	session := startedSession(t, g, "p1", "p2", "p3")
	submitAll(t, g, session.ID, 1, "p1", "p2")

	moved, err := g.Watcher.HandleTurnWrite(ctx, storage.TurnWrite{SessionID: session.ID, RoundNumber: 1, PlayerID: "p2"})
	require.NoError(t, err)
	require.False(t, moved)
	require.Equal(t, domain.RoundStatusStarted, roundStatus(t, g, session.ID, 1))

	submitAll(t, g, session.ID, 1, "p3")
	moved, err = g.Watcher.HandleTurnWrite(ctx, storage.TurnWrite{SessionID: session.ID, RoundNumber: 1, PlayerID: "p3"})
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, domain.RoundStatusScoring, roundStatus(t, g, session.ID, 1))
}

func TestHandleTurnWriteExactlyOnceUnderConcurrency(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, DefaultConfig())
	ctx := context.Background()
	users := []string{"p1", "p2", "p3", "p4"}
	session := startedSession(t, g, users...)

	// Submissions and duplicate deliveries race; only complete rounds may move.
	var moves atomic.Int32
	group, groupCtx := errgroup.WithContext(ctx)
	for _, user := range users {
		group.Go(func() error {
			if _, err := g.Rounds.SubmitTurn(groupCtx, session.ID, 1, user, "kite"); err != nil {
				return err
			}
			for i := 0; i < 3; i++ {
				moved, err := g.Watcher.HandleTurnWrite(groupCtx, storage.TurnWrite{SessionID: session.ID, RoundNumber: 1, PlayerID: user})
				if err != nil {
					return err
				}
				if moved {
					moves.Add(1)
				}
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	require.Equal(t, int32(1), moves.Load())
	require.Equal(t, domain.RoundStatusScoring, roundStatus(t, g, session.ID, 1))
}

func TestHandleTurnWriteIgnoresStaleRound(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, DefaultConfig())
	ctx := context.Background()
	session := startedSession(t, g, "p1")
	submitAll(t, g, session.ID, 1, "p1")

	_, err := g.Scoring.ScoreRound(ctx, session.ID, 1, nil)
	require.NoError(t, err)

	moved, err := g.Watcher.HandleTurnWrite(ctx, storage.TurnWrite{SessionID: session.ID, RoundNumber: 1, PlayerID: "p1"})
	require.NoError(t, err)
	require.False(t, moved)
	require.Equal(t, domain.RoundStatusCompleted, roundStatus(t, g, session.ID, 1))
}

func TestHandleTurnWriteIgnoresCompletedSession(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, Config{WinThreshold: 1})
	ctx := context.Background()
	session := startedSession(t, g, "p1")
	submitAll(t, g, session.ID, 1, "p1")

	result, err := g.Scoring.ScoreRound(ctx, session.ID, 1, map[string]int{"p1": 1})
	require.NoError(t, err)
	require.True(t, result.WinnerDeclared)

	moved, err := g.Watcher.HandleTurnWrite(ctx, storage.TurnWrite{SessionID: session.ID, RoundNumber: 1, PlayerID: "p1"})
	require.NoError(t, err)
	require.False(t, moved)
}

func TestHandleTurnWriteUnknownSession(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, DefaultConfig())

	moved, err := g.Watcher.HandleTurnWrite(context.Background(), storage.TurnWrite{SessionID: "NOPE2345", RoundNumber: 1})
	require.NoError(t, err)
	require.False(t, moved)
}

func TestProcessDueDrainsOutbox(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, DefaultConfig())
	ctx := context.Background()
	session := startedSession(t, g, "p1", "p2")
	submitAll(t, g, session.ID, 1, "p1", "p2")
	submitAll(t, g, session.ID, 1, "p1")

	processed, err := g.Watcher.ProcessDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, processed)
	require.Equal(t, domain.RoundStatusScoring, roundStatus(t, g, session.ID, 1))

	summary, err := store.TurnWriteSummary(ctx)
	require.NoError(t, err)
	require.Zero(t, summary.PendingCount+summary.ProcessingCount+summary.FailedCount+summary.DeadCount)

	processed, err = g.Watcher.ProcessDue(ctx)
	require.NoError(t, err)
	require.Zero(t, processed)
}

func TestProcessDueRetriesFailedWrites(t *testing.T) {
	store := openStore(t, 60)
	feed := &fakeFeed{writes: []storage.TurnWrite{
		{ID: 1, SessionID: "ABCD2345", RoundNumber: 1, PlayerID: "p1"},
		{ID: 2, SessionID: "ABCD2345", RoundNumber: 1, PlayerID: "p2"},
	}}
	g := newTestGame(t, &faultyStore{Store: store, failOn: "CountPlayers"}, feed, DefaultConfig())

	processed, err := g.Watcher.ProcessDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.ElementsMatch(t, []int64{1, 2}, feed.retried)
	require.Empty(t, feed.acked)
}

func TestHandleTurnWriteStorageFaultIsInternal(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, &faultyStore{Store: store, failOn: "CountPlayers"}, nil, DefaultConfig())

	_, err := g.Watcher.HandleTurnWrite(context.Background(), storage.TurnWrite{SessionID: "ABCD2345", RoundNumber: 1})
	require.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
}

func TestProcessDueRequiresFeed(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, nil, DefaultConfig())

	if _, err := g.Watcher.ProcessDue(context.Background()); err == nil {
		t.Fatal("expected missing feed error")
	}
	if err := g.Watcher.Run(context.Background()); err == nil {
		t.Fatal("expected missing feed error")
	}
}

func TestRunMovesRoundsUntilCanceled(t *testing.T) {
	store := openStore(t, 60)
	g := newTestGame(t, store, store, DefaultConfig())
	g.Watcher.Configure(5*time.Millisecond, 8, 2)
	session := startedSession(t, g, "p1", "p2")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Watcher.Run(ctx) }()

	submitAll(t, g, session.ID, 1, "p1", "p2")
	require.Eventually(t, func() bool {
		view, err := g.Rounds.GetRound(context.Background(), session.ID, 1)
		return err == nil && view.Round.Status == domain.RoundStatusScoring
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
