package ledger

import (
	"context"
	"sync"
)

// Mem is an in-memory ledger for tests and ephemeral deployments.
type Mem struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []Entry
}

// NewMem creates an empty in-memory ledger.
func NewMem() *Mem {
	return &Mem{balances: make(map[string]int64)}
}

func (m *Mem) Debit(_ context.Context, userID string, amount int64, memo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[userID] < amount {
		return ErrInsufficientBalance
	}
	m.balances[userID] -= amount
	m.entries = append(m.entries, Entry{UserID: userID, Amount: -amount, Kind: "debit", Memo: memo})
	return nil
}

func (m *Mem) Credit(_ context.Context, userID string, amount int64, memo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[userID] += amount
	m.entries = append(m.entries, Entry{UserID: userID, Amount: amount, Kind: "credit", Memo: memo})
	return nil
}

func (m *Mem) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return balance, nil
}

// Entries returns a copy of the recorded movements, oldest first.
func (m *Mem) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Mem) Close() error { return nil }
