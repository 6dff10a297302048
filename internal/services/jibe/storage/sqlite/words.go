package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ReplaceWords swaps the whole word pool for words, numbered from 1.
// Blank entries are skipped.
func (s *Store) ReplaceWords(ctx context.Context, words []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.retryBusy(ctx, func() error {
		return s.runTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM words`); err != nil {
				return fmt.Errorf("clear words: %w", err)
			}
			stmt, err := tx.PrepareContext(ctx, `INSERT INTO words (number, word) VALUES (?, ?)`)
			if err != nil {
				return fmt.Errorf("prepare word insert: %w", err)
			}
			defer stmt.Close()

			number := 0
			for _, word := range words {
				word = strings.TrimSpace(word)
				if word == "" {
					continue
				}
				number++
				if _, err := stmt.ExecContext(ctx, number, word); err != nil {
					return fmt.Errorf("insert word %d: %w", number, err)
				}
			}
			return nil
		})
	})
}

// CountWords returns the size of the word pool.
func (s *Store) CountWords(ctx context.Context) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return count, nil
}
