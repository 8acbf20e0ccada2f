package stockwatch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type userStockRow struct {
	Code  string        `db:"code"`
	Count sql.NullInt64 `db:"count"`
}

// GetUserStocks returns the saved entries of userID in their saved order.
// An unknown user has an empty portfolio.
func (c *Core) GetUserStocks(ctx context.Context, userID string) ([]SymbolEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewError(ErrCodeInvalidInput, "user id is required")
	}

	var rows []userStockRow
	err := c.db.SelectContext(ctx, &rows, `
		SELECT code, count
		FROM user_stocks
		WHERE user_id = ?
		ORDER BY position
	`, userID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load user stocks", err)
	}

	entries := make([]SymbolEntry, 0, len(rows))
	for _, row := range rows {
		entry := SymbolEntry{Code: row.Code}
		if row.Count.Valid {
			entry.HeldLots = intPtr(int(row.Count.Int64))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SaveUserStocks replaces the portfolio of userID with entries. Codes are
// stored trimmed and lower-cased; the entry order is kept.
func (c *Core) SaveUserStocks(ctx context.Context, userID string, entries []SymbolEntry) ([]SymbolEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewError(ErrCodeInvalidInput, "user id is required")
	}
	entries = normalizeEntries(entries)
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	err := c.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_stocks WHERE user_id = ?`, userID); err != nil {
			return WrapError(ErrCodeDatabase, "clear user stocks", err)
		}
		for i, entry := range entries {
			var count sql.NullInt64
			if entry.HeldLots != nil {
				count = sql.NullInt64{Int64: int64(*entry.HeldLots), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_stocks (user_id, position, code, count)
				VALUES (?, ?, ?, ?)
			`, userID, i, entry.Code, count); err != nil {
				return WrapError(ErrCodeDatabase, "insert user stock", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("user stocks saved", "user_id", userID, "count", len(entries))
	return entries, nil
}

func validateEntries(entries []SymbolEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if entry.Code == "" {
			return NewError(ErrCodeInvalidInput, fmt.Sprintf("entry %d: code is required", i))
		}
		if _, ok := seen[entry.Code]; ok {
			return NewError(ErrCodeDuplicate, fmt.Sprintf("duplicate code %s", entry.Code))
		}
		seen[entry.Code] = struct{}{}
		if entry.HeldLots != nil && *entry.HeldLots < 0 {
			return NewError(ErrCodeInvalidInput, fmt.Sprintf("%s: count must not be negative", entry.Code))
		}
	}
	return nil
}
