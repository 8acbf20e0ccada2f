package stockwatch

import "github.com/jmoiron/sqlx"

func initDatabase(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS user_stocks (
			user_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			code TEXT NOT NULL,
			count INTEGER,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, code)
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_user_stocks_position ON user_stocks (user_id, position)
	`); err != nil {
		return err
	}
	return tx.Commit()
}
