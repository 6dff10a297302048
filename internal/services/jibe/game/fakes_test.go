package game

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/jibe/internal/platform/random"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
	"github.com/louisbranch/jibe/internal/services/jibe/storage/sqlite"
)

var errInjected = errors.New("injected storage fault")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, time.March, 14, 18, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func openStore(t *testing.T, words int) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "jibe.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	pool := make([]string, words)
	for i := range pool {
		pool[i] = fmt.Sprintf("word-%02d", i+1)
	}
	if err := store.ReplaceWords(context.Background(), pool); err != nil {
		t.Fatalf("seed words: %v", err)
	}
	return store
}

func newTestGame(t *testing.T, store storage.Store, feed storage.TurnWriteFeed, cfg Config, opts ...Option) *Game {
	t.Helper()
	clock := newTestClock()
	base := []Option{WithRand(random.NewDeterministic(1)), WithClock(clock.Now)}
	g, err := New(store, feed, cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func profile(userID string) domain.Profile {
	return domain.Profile{UserID: userID, DisplayName: "Player " + userID, Avatar: "https://example.com/" + userID + ".png"}
}

// faultyStore wraps a store so one Tx method fails.
type faultyStore struct {
	storage.Store
	failOn string
}

func (s *faultyStore) InTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, failOn: s.failOn})
	})
}

type faultyTx struct {
	storage.Tx
	failOn string
}

func (t *faultyTx) CreateRound(ctx context.Context, round domain.Round) error {
	if t.failOn == "CreateRound" {
		return errInjected
	}
	return t.Tx.CreateRound(ctx, round)
}

func (t *faultyTx) UpdateSession(ctx context.Context, session domain.Session, expected domain.SessionStatus) error {
	if t.failOn == "UpdateSession" {
		return errInjected
	}
	return t.Tx.UpdateSession(ctx, session, expected)
}

func (t *faultyTx) CountPlayers(ctx context.Context, sessionID string) (int, error) {
	if t.failOn == "CountPlayers" {
		return 0, errInjected
	}
	return t.Tx.CountPlayers(ctx, sessionID)
}

// collidingCodes returns the queued codes in order, then fresh ones.
type collidingCodes struct {
	mu    sync.Mutex
	codes []string
}

func (c *collidingCodes) Next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.codes) == 0 {
		return domain.NewSessionCode()
	}
	code := c.codes[0]
	c.codes = c.codes[1:]
	return code, nil
}

// fakeFeed serves fixed writes and records acknowledgements.
type fakeFeed struct {
	mu      sync.Mutex
	writes  []storage.TurnWrite
	acked   []int64
	retried []int64
}

func (f *fakeFeed) ClaimTurnWrites(_ context.Context, _ time.Time, limit int) ([]storage.TurnWrite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.writes) {
		limit = len(f.writes)
	}
	out := append([]storage.TurnWrite(nil), f.writes[:limit]...)
	f.writes = f.writes[limit:]
	return out, nil
}

func (f *fakeFeed) AckTurnWrite(_ context.Context, write storage.TurnWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, write.ID)
	return nil
}

func (f *fakeFeed) RetryTurnWrite(_ context.Context, write storage.TurnWrite, _ time.Time, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, write.ID)
	return nil
}
