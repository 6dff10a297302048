package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

var testNow = time.Date(2026, time.March, 14, 18, 30, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "jibe.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func inTx(t *testing.T, store *Store, fn func(ctx context.Context, tx storage.Tx) error) {
	t.Helper()
	if err := store.InTx(context.Background(), fn); err != nil {
		t.Fatalf("in tx: %v", err)
	}
}

func seedSession(t *testing.T, store *Store, id string, players ...string) {
	t.Helper()
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.CreateSession(ctx, domain.Session{
			ID:         id,
			Status:     domain.SessionStatusStarted,
			CreatorID:  "creator",
			RoundWords: []int{3, 1, 2},
			CreatedAt:  testNow,
			StartedAt:  testNow,
			UpdatedAt:  testNow,
		}); err != nil {
			return err
		}
		for i, userID := range players {
			if err := tx.InsertPlayer(ctx, domain.Player{
				SessionID:   id,
				UserID:      userID,
				DisplayName: userID,
				Avatar:      domain.DefaultAvatar,
				Number:      i + 1,
				JoinedAt:    testNow,
			}); err != nil {
				return err
			}
		}
		return tx.CreateRound(ctx, domain.Round{
			SessionID: id,
			Number:    1,
			WordID:    3,
			Word:      "kite",
			Status:    domain.RoundStatusStarted,
			CreatedAt: testNow,
			UpdatedAt: testNow,
		})
	})
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsRepeatable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jibe.db")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open pass %d: %v", i, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close pass %d: %v", i, err)
		}
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := domain.Session{
		ID:         "ABCD2345",
		Status:     domain.SessionStatusCreated,
		CreatorID:  "u1",
		RoundWords: []int{9, 4, 7},
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateSession(ctx, input)
	})

	var got domain.Session
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		var err error
		got, err = tx.GetSession(ctx, "ABCD2345")
		return err
	})
	if diff := cmp.Diff(input, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateSessionDuplicateReturnsAlreadyExists(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	session := domain.Session{ID: "ABCD2345", Status: domain.SessionStatusCreated, CreatorID: "u1", CreatedAt: testNow, UpdatedAt: testNow}
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateSession(ctx, session)
	})
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateSession(ctx, session)
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateSessionRejectsDuplicateWords(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateSession(ctx, domain.Session{
			ID: "ABCD2345", Status: domain.SessionStatusCreated, CreatorID: "u1",
			RoundWords: []int{5, 5}, CreatedAt: testNow, UpdatedAt: testNow,
		})
	})
	if err == nil {
		t.Fatal("expected duplicate word assignment to fail")
	}
	err = store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetSession(ctx, "ABCD2345")
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after rollback", err)
	}
}

func TestGetSessionMissing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetSession(ctx, "NOPE2345")
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateSessionComparesStatus(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1")

	completed := domain.Session{
		ID:           "ABCD2345",
		Status:       domain.SessionStatusCompleted,
		CurrentRound: 1,
		StartedAt:    testNow,
		UpdatedAt:    testNow.Add(time.Minute),
		Winner:       &domain.Winner{UserID: "u1", DisplayName: "Ana", Avatar: "a.png"},
	}
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.UpdateSession(ctx, completed, domain.SessionStatusCreated)
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		return tx.UpdateSession(ctx, completed, domain.SessionStatusStarted)
	})
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		got, err := tx.GetSession(ctx, "ABCD2345")
		if err != nil {
			return err
		}
		if got.Status != domain.SessionStatusCompleted {
			t.Fatalf("status = %q, want completed", got.Status)
		}
		if diff := cmp.Diff(completed.Winner, got.Winner); diff != "" {
			t.Fatalf("winner mismatch (-want +got):\n%s", diff)
		}
		if got.CreatorID != "creator" {
			t.Fatalf("creator = %q, want creator", got.CreatorID)
		}
		return nil
	})
}

func TestPlayersOrderedAndUnique(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1", "u2")

	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertPlayer(ctx, domain.Player{SessionID: "ABCD2345", UserID: "u1", DisplayName: "x", Avatar: "y", Number: 3, JoinedAt: testNow})
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate user err = %v, want ErrAlreadyExists", err)
	}
	err = store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertPlayer(ctx, domain.Player{SessionID: "ABCD2345", UserID: "u3", DisplayName: "x", Avatar: "y", Number: 2, JoinedAt: testNow})
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate number err = %v, want ErrAlreadyExists", err)
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		players, err := tx.ListPlayers(ctx, "ABCD2345")
		if err != nil {
			return err
		}
		got := make([]string, 0, len(players))
		for _, p := range players {
			got = append(got, p.UserID)
		}
		if diff := cmp.Diff([]string{"u1", "u2"}, got); diff != "" {
			t.Fatalf("players mismatch (-want +got):\n%s", diff)
		}
		count, err := tx.CountPlayers(ctx, "ABCD2345")
		if err != nil {
			return err
		}
		if count != 2 {
			t.Fatalf("count = %d, want 2", count)
		}
		return nil
	})
}

func TestIncrementPlayerScoreConcurrent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1")

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
				return tx.IncrementPlayerScore(ctx, "ABCD2345", "u1", 5, testNow)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		player, err := tx.GetPlayer(ctx, "ABCD2345", "u1")
		if err != nil {
			return err
		}
		if player.Score != workers*5 {
			t.Fatalf("score = %d, want %d", player.Score, workers*5)
		}
		return nil
	})
}

func TestIncrementPlayerScoreMissingPlayer(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1")
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.IncrementPlayerScore(ctx, "ABCD2345", "ghost", 5, testNow)
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetRoundStatusIsConditional(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1")

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		moved, err := tx.SetRoundStatus(ctx, "ABCD2345", 1, domain.RoundStatusStarted, domain.RoundStatusScoring, testNow)
		if err != nil {
			return err
		}
		if !moved {
			t.Fatal("expected first transition to apply")
		}
		moved, err = tx.SetRoundStatus(ctx, "ABCD2345", 1, domain.RoundStatusStarted, domain.RoundStatusScoring, testNow)
		if err != nil {
			return err
		}
		if moved {
			t.Fatal("expected repeated transition to be a no-op")
		}
		round, err := tx.GetRound(ctx, "ABCD2345", 1)
		if err != nil {
			return err
		}
		if round.Status != domain.RoundStatusScoring {
			t.Fatalf("status = %q, want scoring", round.Status)
		}
		if round.Word != "kite" || round.WordID != 3 {
			t.Fatalf("round word = %q/%d, want kite/3", round.Word, round.WordID)
		}
		return nil
	})
}

func TestCreateRoundDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1")
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateRound(ctx, domain.Round{SessionID: "ABCD2345", Number: 1, WordID: 1, Word: "x", Status: domain.RoundStatusStarted, CreatedAt: testNow, UpdatedAt: testNow})
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpsertTurnLastWriteWinsAndEnqueues(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1", "u2")

	for _, answer := range []string{"kit", "kite"} {
		inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
			return tx.UpsertTurn(ctx, domain.Turn{
				SessionID: "ABCD2345", RoundNumber: 1, PlayerID: "u1", Answer: answer,
				SubmittedAt: testNow, UpdatedAt: testNow,
			})
		})
	}

	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		turns, err := tx.ListTurns(ctx, "ABCD2345", 1)
		if err != nil {
			return err
		}
		if len(turns) != 1 {
			t.Fatalf("turns = %d, want 1", len(turns))
		}
		if turns[0].Answer != "kite" {
			t.Fatalf("answer = %q, want kite", turns[0].Answer)
		}
		if turns[0].Score != nil {
			t.Fatalf("score = %v, want nil before tally", *turns[0].Score)
		}
		count, err := tx.CountTurns(ctx, "ABCD2345", 1)
		if err != nil {
			return err
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1", count)
		}
		return nil
	})

	summary, err := store.TurnWriteSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.PendingCount != 2 {
		t.Fatalf("pending = %d, want 2", summary.PendingCount)
	}
}

func TestSetTurnScore(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedSession(t, store, "ABCD2345", "u1")
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.UpsertTurn(ctx, domain.Turn{SessionID: "ABCD2345", RoundNumber: 1, PlayerID: "u1", Answer: "kite", SubmittedAt: testNow, UpdatedAt: testNow}); err != nil {
			return err
		}
		return tx.SetTurnScore(ctx, "ABCD2345", 1, "u1", 0, testNow)
	})
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		turns, err := tx.ListTurns(ctx, "ABCD2345", 1)
		if err != nil {
			return err
		}
		if turns[0].Score == nil || *turns[0].Score != 0 {
			t.Fatalf("score = %v, want 0", turns[0].Score)
		}
		return nil
	})

	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.SetTurnScore(ctx, "ABCD2345", 1, "ghost", 5, testNow)
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	boom := errors.New("boom")
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.CreateSession(ctx, domain.Session{ID: "ABCD2345", Status: domain.SessionStatusCreated, CreatorID: "u1", CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	err = store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetSession(ctx, "ABCD2345")
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInTxHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := store.InTx(ctx, func(context.Context, storage.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("callback should not run for canceled context")
	}
}

func TestReplaceWords(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.ReplaceWords(context.Background(), []string{"kite", " ", "lamp", "river"}); err != nil {
		t.Fatalf("replace words: %v", err)
	}
	count, err := store.CountWords(context.Background())
	if err != nil {
		t.Fatalf("count words: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	inTx(t, store, func(ctx context.Context, tx storage.Tx) error {
		word, err := tx.GetWord(ctx, 2)
		if err != nil {
			return err
		}
		if word != "lamp" {
			t.Fatalf("word 2 = %q, want lamp", word)
		}
		if _, err := tx.GetWord(ctx, 4); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("word 4 err = %v, want ErrNotFound", err)
		}
		return nil
	})

	if err := store.ReplaceWords(context.Background(), []string{"sun"}); err != nil {
		t.Fatalf("replace words again: %v", err)
	}
	if count, _ := store.CountWords(context.Background()); count != 1 {
		t.Fatalf("count after replace = %d, want 1", count)
	}
}
