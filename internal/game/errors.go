package game

import "errors"

var (
	// ErrNotYourTurn is returned when a seat acts out of turn. Timer
	// expiries racing a real action surface this and are dropped.
	ErrNotYourTurn = errors.New("not your turn to act")

	// ErrIllegalCheck is returned for a check facing an unmatched bet.
	ErrIllegalCheck = errors.New("cannot check facing a bet")

	// ErrRaiseTooSmall is returned when a raise does not reach the minimum.
	ErrRaiseTooSmall = errors.New("raise below minimum")

	// ErrRaiseClosed is returned when a seat that already acted tries to
	// raise after a short all-in that did not reopen the betting.
	ErrRaiseClosed = errors.New("betting is not reopened")

	// ErrInsufficientChips is returned when a bet exceeds the seat's stack.
	ErrInsufficientChips = errors.New("insufficient chips")

	// ErrHandComplete is returned for actions on a finished hand.
	ErrHandComplete = errors.New("hand is complete")

	// ErrTooFewPlayers is returned when a hand cannot start.
	ErrTooFewPlayers = errors.New("need at least two active players")

	// ErrChipLeak reports a chip conservation violation. The owning room
	// must halt rather than continue on a corrupted pot.
	ErrChipLeak = errors.New("chip conservation violated")
)
