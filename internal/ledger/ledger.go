// Package ledger tracks player chip balances outside of any table. Buy-ins
// debit the ledger before chips reach a seat and cash-outs credit it when
// a player stands, so chips are never minted by sitting down.
package ledger

import (
	"context"
	"errors"
)

// ErrInsufficientBalance is returned when a debit would take a balance
// below zero. The balance is left untouched.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrUnknownAccount is returned when an account has never been credited.
var ErrUnknownAccount = errors.New("unknown account")

// Entry is one recorded balance movement.
type Entry struct {
	UserID string
	Amount int64 // Positive for credits, negative for debits
	Kind   string
	Memo   string
}

// Ledger stores chip balances keyed by user id. Implementations must make
// Debit atomic: concurrent debits can never drive a balance negative.
type Ledger interface {
	// Debit removes amount from the user's balance, failing with
	// ErrInsufficientBalance when the funds are not there.
	Debit(ctx context.Context, userID string, amount int64, memo string) error

	// Credit adds amount to the user's balance, creating the account on
	// first use.
	Credit(ctx context.Context, userID string, amount int64, memo string) error

	// Balance returns the user's current balance.
	Balance(ctx context.Context, userID string) (int64, error)

	Close() error
}
