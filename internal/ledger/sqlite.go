package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a sqlite-backed ledger. Every balance change runs inside a
// transaction together with its journal entry, and debits are guarded by
// a balance check in the same statement so concurrent writers cannot
// overdraw an account.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initialises) a sqlite ledger at path. The
// usual ":memory:" DSN works for throwaway instances.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// sqlite serialises writers; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS journal (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			kind TEXT NOT NULL,
			memo TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES accounts(user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("init ledger schema: %w", err)
	}
	return nil
}

func (s *Store) Debit(ctx context.Context, userID string, amount int64, memo string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - ?
		WHERE user_id = ? AND balance >= ?
	`, amount, userID, amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientBalance
	}

	if err := journal(ctx, tx, userID, -amount, "debit", memo); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64, memo string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = balance + ?
	`, userID, amount, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", userID, err)
	}

	if err := journal(ctx, tx, userID, amount, "credit", memo); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE user_id = ?", userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrUnknownAccount
	}
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", userID, err)
	}
	return balance, nil
}

func journal(ctx context.Context, tx *sql.Tx, userID string, amount int64, kind, memo string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO journal (user_id, amount, kind, memo) VALUES (?, ?, ?, ?)
	`, userID, amount, kind, memo)
	if err != nil {
		return fmt.Errorf("journal %s: %w", userID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
