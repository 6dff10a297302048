package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

// txStore implements storage.Tx over one open transaction.
type txStore struct {
	tx *sql.Tx
}

var _ storage.Tx = (*txStore)(nil)

func (t *txStore) CountWords(ctx context.Context) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return count, nil
}

func (t *txStore) GetWord(ctx context.Context, number int) (string, error) {
	var word string
	err := t.tx.QueryRowContext(ctx, `SELECT word FROM words WHERE number = ?`, number).Scan(&word)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get word %d: %w", number, err)
	}
	return word, nil
}

func (t *txStore) CreateSession(ctx context.Context, session domain.Session) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO sessions (id, status, creator_id, current_round, created_at, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		string(session.Status),
		session.CreatorID,
		session.CurrentRound,
		toMillis(session.CreatedAt),
		toNullMillis(session.StartedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	for i, wordID := range session.RoundWords {
		if _, err := t.tx.ExecContext(
			ctx,
			`INSERT INTO session_round_words (session_id, round_number, word_id) VALUES (?, ?, ?)`,
			session.ID,
			i+1,
			wordID,
		); err != nil {
			return fmt.Errorf("assign word for round %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *txStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var (
		session   domain.Session
		status    string
		winnerID  sql.NullString
		winnerNm  sql.NullString
		winnerAv  sql.NullString
		createdAt int64
		startedAt sql.NullInt64
		updatedAt int64
	)
	err := t.tx.QueryRowContext(
		ctx,
		`SELECT id, status, creator_id, current_round,
		        winner_user_id, winner_display_name, winner_avatar,
		        created_at, started_at, updated_at
		   FROM sessions
		  WHERE id = ?`,
		id,
	).Scan(
		&session.ID,
		&status,
		&session.CreatorID,
		&session.CurrentRound,
		&winnerID,
		&winnerNm,
		&winnerAv,
		&createdAt,
		&startedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	parsed, ok := domain.ParseSessionStatus(status)
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s has unknown status %q", id, status)
	}
	session.Status = parsed
	session.CreatedAt = fromMillis(createdAt)
	session.StartedAt = fromNullMillis(startedAt)
	session.UpdatedAt = fromMillis(updatedAt)
	if winnerID.Valid {
		session.Winner = &domain.Winner{
			UserID:      winnerID.String,
			DisplayName: winnerNm.String,
			Avatar:      winnerAv.String,
		}
	}

	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT word_id FROM session_round_words WHERE session_id = ? ORDER BY round_number`,
		id,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("list round words for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var wordID int
		if err := rows.Scan(&wordID); err != nil {
			return domain.Session{}, fmt.Errorf("scan round word: %w", err)
		}
		session.RoundWords = append(session.RoundWords, wordID)
	}
	if err := rows.Err(); err != nil {
		return domain.Session{}, fmt.Errorf("iterate round words: %w", err)
	}
	return session, nil
}

func (t *txStore) UpdateSession(ctx context.Context, session domain.Session, expected domain.SessionStatus) error {
	var winnerID, winnerName, winnerAvatar sql.NullString
	if session.Winner != nil {
		winnerID = sql.NullString{String: session.Winner.UserID, Valid: true}
		winnerName = sql.NullString{String: session.Winner.DisplayName, Valid: true}
		winnerAvatar = sql.NullString{String: session.Winner.Avatar, Valid: true}
	}
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE sessions
		    SET status = ?,
		        current_round = ?,
		        winner_user_id = ?,
		        winner_display_name = ?,
		        winner_avatar = ?,
		        started_at = ?,
		        updated_at = ?
		  WHERE id = ? AND status = ?`,
		string(session.Status),
		session.CurrentRound,
		winnerID,
		winnerName,
		winnerAvatar,
		toNullMillis(session.StartedAt),
		toMillis(session.UpdatedAt),
		session.ID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", session.ID, err)
	}
	if err := ensureSingleRow(result, "update session"); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrConflict
		}
		return err
	}
	return nil
}

func (t *txStore) InsertPlayer(ctx context.Context, player domain.Player) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO players (session_id, user_id, display_name, avatar, player_number, score, joined_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		player.SessionID,
		player.UserID,
		player.DisplayName,
		player.Avatar,
		player.Number,
		player.Score,
		toMillis(player.JoinedAt),
		toMillis(player.JoinedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

const playerColumns = `session_id, user_id, display_name, avatar, player_number, score, joined_at`

func scanPlayer(scan func(...any) error) (domain.Player, error) {
	var (
		player   domain.Player
		joinedAt int64
	)
	if err := scan(
		&player.SessionID,
		&player.UserID,
		&player.DisplayName,
		&player.Avatar,
		&player.Number,
		&player.Score,
		&joinedAt,
	); err != nil {
		return domain.Player{}, err
	}
	player.JoinedAt = fromMillis(joinedAt)
	return player, nil
}

func (t *txStore) GetPlayer(ctx context.Context, sessionID, userID string) (domain.Player, error) {
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = ? AND user_id = ?`,
		sessionID,
		userID,
	)
	player, err := scanPlayer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Player{}, storage.ErrNotFound
		}
		return domain.Player{}, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

func (t *txStore) CountPlayers(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return count, nil
}

func (t *txStore) ListPlayers(ctx context.Context, sessionID string) ([]domain.Player, error) {
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = ? ORDER BY player_number`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := make([]domain.Player, 0)
	for rows.Next() {
		player, err := scanPlayer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

func (t *txStore) IncrementPlayerScore(ctx context.Context, sessionID, userID string, delta int, at time.Time) error {
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE players SET score = score + ?, updated_at = ? WHERE session_id = ? AND user_id = ?`,
		delta,
		toMillis(at),
		sessionID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("increment player score: %w", err)
	}
	return ensureSingleRow(result, "increment player score")
}

func (t *txStore) CreateRound(ctx context.Context, round domain.Round) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO rounds (session_id, number, word_id, word, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		round.SessionID,
		round.Number,
		round.WordID,
		round.Word,
		string(round.Status),
		toMillis(round.CreatedAt),
		toMillis(round.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create round: %w", err)
	}
	return nil
}

func (t *txStore) GetRound(ctx context.Context, sessionID string, number int) (domain.Round, error) {
	var (
		round     domain.Round
		status    string
		createdAt int64
		updatedAt int64
	)
	err := t.tx.QueryRowContext(
		ctx,
		`SELECT session_id, number, word_id, word, status, created_at, updated_at
		   FROM rounds
		  WHERE session_id = ? AND number = ?`,
		sessionID,
		number,
	).Scan(&round.SessionID, &round.Number, &round.WordID, &round.Word, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Round{}, storage.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("get round: %w", err)
	}
	parsed, ok := domain.ParseRoundStatus(status)
	if !ok {
		return domain.Round{}, fmt.Errorf("round %s/%d has unknown status %q", sessionID, number, status)
	}
	round.Status = parsed
	round.CreatedAt = fromMillis(createdAt)
	round.UpdatedAt = fromMillis(updatedAt)
	return round, nil
}

func (t *txStore) SetRoundStatus(ctx context.Context, sessionID string, number int, from, to domain.RoundStatus, at time.Time) (bool, error) {
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE rounds SET status = ?, updated_at = ? WHERE session_id = ? AND number = ? AND status = ?`,
		string(to),
		toMillis(at),
		sessionID,
		number,
		string(from),
	)
	if err != nil {
		return false, fmt.Errorf("set round status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set round status rows affected: %w", err)
	}
	return affected == 1, nil
}

func (t *txStore) UpsertTurn(ctx context.Context, turn domain.Turn) error {
	if _, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO turns (session_id, round_number, player_id, answer, score, submitted_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?)
		 ON CONFLICT(session_id, round_number, player_id) DO UPDATE SET
		     answer = excluded.answer,
		     updated_at = excluded.updated_at`,
		turn.SessionID,
		turn.RoundNumber,
		turn.PlayerID,
		turn.Answer,
		toMillis(turn.SubmittedAt),
		toMillis(turn.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert turn: %w", err)
	}
	return enqueueTurnWrite(ctx, t.tx, turn)
}

func (t *txStore) ListTurns(ctx context.Context, sessionID string, round int) ([]domain.Turn, error) {
	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT session_id, round_number, player_id, answer, score, submitted_at, updated_at
		   FROM turns
		  WHERE session_id = ? AND round_number = ?
		  ORDER BY player_id`,
		sessionID,
		round,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := make([]domain.Turn, 0)
	for rows.Next() {
		var (
			turn        domain.Turn
			score       sql.NullInt64
			submittedAt int64
			updatedAt   int64
		)
		if err := rows.Scan(&turn.SessionID, &turn.RoundNumber, &turn.PlayerID, &turn.Answer, &score, &submittedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if score.Valid {
			value := int(score.Int64)
			turn.Score = &value
		}
		turn.SubmittedAt = fromMillis(submittedAt)
		turn.UpdatedAt = fromMillis(updatedAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func (t *txStore) CountTurns(ctx context.Context, sessionID string, round int) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = ? AND round_number = ?`,
		sessionID,
		round,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return count, nil
}

func (t *txStore) SetTurnScore(ctx context.Context, sessionID string, round int, playerID string, score int, at time.Time) error {
	result, err := t.tx.ExecContext(
		ctx,
		`UPDATE turns SET score = ?, updated_at = ? WHERE session_id = ? AND round_number = ? AND player_id = ?`,
		score,
		toMillis(at),
		sessionID,
		round,
		playerID,
	)
	if err != nil {
		return fmt.Errorf("set turn score: %w", err)
	}
	return ensureSingleRow(result, "set turn score")
}
