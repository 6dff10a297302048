package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/storage"
)

const (
	outboxDeadLetterThreshold = 8
	outboxProcessingLease     = 2 * time.Minute
	outboxMaxBackoff          = 5 * time.Minute
	outboxMaxErrorLength      = 512
)

// TurnWriteSummary reports outbox depth by status.
type TurnWriteSummary struct {
	PendingCount    int
	ProcessingCount int
	FailedCount     int
	DeadCount       int
}

func enqueueTurnWrite(ctx context.Context, tx *sql.Tx, turn domain.Turn) error {
	enqueuedAt := turn.UpdatedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO turn_write_outbox (
		     session_id, round_number, player_id, status, attempt_count, next_attempt_at, last_error, updated_at
		 ) VALUES (?, ?, ?, 'pending', 0, ?, '', ?)`,
		turn.SessionID,
		turn.RoundNumber,
		turn.PlayerID,
		toMillis(enqueuedAt),
		toMillis(enqueuedAt),
	); err != nil {
		return fmt.Errorf("enqueue turn write: %w", err)
	}
	return nil
}

// ClaimTurnWrites leases up to limit due rows. Rows stuck in processing past
// the lease are reclaimed.
func (s *Store) ClaimTurnWrites(ctx context.Context, now time.Time, limit int) ([]storage.TurnWrite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	staleBefore := now.Add(-outboxProcessingLease)

	var claimed []storage.TurnWrite
	err := s.retryBusy(ctx, func() error {
		claimed = claimed[:0]
		return s.runTx(ctx, func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(
				ctx,
				`SELECT id, session_id, round_number, player_id, attempt_count
				   FROM turn_write_outbox
				  WHERE (status IN ('pending', 'failed') AND next_attempt_at <= ?)
				     OR (status = 'processing' AND updated_at <= ?)
				  ORDER BY next_attempt_at, id
				  LIMIT ?`,
				toMillis(now),
				toMillis(staleBefore),
				limit,
			)
			if err != nil {
				return fmt.Errorf("list due turn writes: %w", err)
			}
			candidates := make([]storage.TurnWrite, 0, limit)
			for rows.Next() {
				var write storage.TurnWrite
				if err := rows.Scan(&write.ID, &write.SessionID, &write.RoundNumber, &write.PlayerID, &write.Attempt); err != nil {
					rows.Close()
					return fmt.Errorf("scan due turn write: %w", err)
				}
				candidates = append(candidates, write)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return fmt.Errorf("iterate due turn writes: %w", err)
			}
			rows.Close()

			for _, candidate := range candidates {
				result, err := tx.ExecContext(
					ctx,
					`UPDATE turn_write_outbox
					    SET status = 'processing', updated_at = ?
					  WHERE id = ?
					    AND ((status IN ('pending', 'failed') AND next_attempt_at <= ?)
					      OR (status = 'processing' AND updated_at <= ?))`,
					toMillis(now),
					candidate.ID,
					toMillis(now),
					toMillis(staleBefore),
				)
				if err != nil {
					return fmt.Errorf("claim turn write %d: %w", candidate.ID, err)
				}
				affected, err := result.RowsAffected()
				if err != nil {
					return fmt.Errorf("claim turn write %d rows affected: %w", candidate.ID, err)
				}
				if affected == 1 {
					claimed = append(claimed, candidate)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// AckTurnWrite deletes a processed row.
func (s *Store) AckTurnWrite(ctx context.Context, write storage.TurnWrite) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.retryBusy(ctx, func() error {
		result, err := s.sqlDB.ExecContext(
			ctx,
			`DELETE FROM turn_write_outbox WHERE id = ? AND status = 'processing'`,
			write.ID,
		)
		if err != nil {
			return fmt.Errorf("ack turn write %d: %w", write.ID, err)
		}
		if err := ensureSingleRow(result, "ack turn write"); err != nil {
			return fmt.Errorf("ack turn write %d: %w", write.ID, err)
		}
		return nil
	})
}

// RetryTurnWrite reschedules a failed row with exponential backoff, or marks
// it dead once the attempt budget is spent.
func (s *Store) RetryTurnWrite(ctx context.Context, write storage.TurnWrite, now time.Time, cause error) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	attempt := write.Attempt + 1
	status := "failed"
	if attempt >= outboxDeadLetterThreshold {
		status = "dead"
	}
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	if len(lastError) > outboxMaxErrorLength {
		lastError = lastError[:outboxMaxErrorLength]
	}
	return s.retryBusy(ctx, func() error {
		result, err := s.sqlDB.ExecContext(
			ctx,
			`UPDATE turn_write_outbox
			    SET status = ?,
			        attempt_count = ?,
			        next_attempt_at = ?,
			        last_error = ?,
			        updated_at = ?
			  WHERE id = ? AND status = 'processing'`,
			status,
			attempt,
			toMillis(now.Add(outboxRetryBackoff(attempt))),
			lastError,
			toMillis(now),
			write.ID,
		)
		if err != nil {
			return fmt.Errorf("retry turn write %d: %w", write.ID, err)
		}
		if err := ensureSingleRow(result, "retry turn write"); err != nil {
			return fmt.Errorf("retry turn write %d: %w", write.ID, err)
		}
		return nil
	})
}

// RequeueDeadTurnWrites moves up to limit dead rows back to pending.
func (s *Store) RequeueDeadTurnWrites(ctx context.Context, limit int, now time.Time) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return 0, fmt.Errorf("requeue limit must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var affected int64
	err := s.retryBusy(ctx, func() error {
		result, err := s.sqlDB.ExecContext(
			ctx,
			`UPDATE turn_write_outbox
			    SET status = 'pending', attempt_count = 0, next_attempt_at = ?, last_error = '', updated_at = ?
			  WHERE id IN (
			      SELECT id FROM turn_write_outbox WHERE status = 'dead' ORDER BY id LIMIT ?
			  )`,
			toMillis(now),
			toMillis(now),
			limit,
		)
		if err != nil {
			return fmt.Errorf("requeue dead turn writes: %w", err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("requeue dead turn writes rows affected: %w", err)
		}
		return nil
	})
	return int(affected), err
}

// TurnWriteSummary counts outbox rows by status.
func (s *Store) TurnWriteSummary(ctx context.Context) (TurnWriteSummary, error) {
	if s == nil || s.sqlDB == nil {
		return TurnWriteSummary{}, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT status, COUNT(*) FROM turn_write_outbox GROUP BY status`)
	if err != nil {
		return TurnWriteSummary{}, fmt.Errorf("query turn write summary: %w", err)
	}
	defer rows.Close()

	var summary TurnWriteSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return TurnWriteSummary{}, fmt.Errorf("scan turn write summary: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(status)) {
		case "pending":
			summary.PendingCount = count
		case "processing":
			summary.ProcessingCount = count
		case "failed":
			summary.FailedCount = count
		case "dead":
			summary.DeadCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return TurnWriteSummary{}, fmt.Errorf("iterate turn write summary: %w", err)
	}
	return summary, nil
}

func outboxRetryBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if attempt > 20 {
		return outboxMaxBackoff
	}
	delay := time.Second << (attempt - 1)
	if delay > outboxMaxBackoff {
		return outboxMaxBackoff
	}
	return delay
}
