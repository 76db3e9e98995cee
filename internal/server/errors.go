package server

import (
	"errors"

	"github.com/feltops/cardroom/internal/game"
	"github.com/feltops/cardroom/internal/ledger"
	"github.com/feltops/cardroom/internal/room"
	"github.com/feltops/cardroom/internal/tournament"
)

// errorCode maps core errors to stable wire codes so clients can branch
// on them without string matching.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return "room-not-found"
	case errors.Is(err, room.ErrSeatTaken):
		return "seat-taken"
	case errors.Is(err, room.ErrRoomFull):
		return "room-full"
	case errors.Is(err, room.ErrAlreadySeated):
		return "already-seated"
	case errors.Is(err, room.ErrNotSeated):
		return "not-seated"
	case errors.Is(err, room.ErrBuyInOutOfRange):
		return "buy-in-out-of-range"
	case errors.Is(err, room.ErrInvalidSeat):
		return "invalid-seat"
	case errors.Is(err, room.ErrHandInProgress):
		return "hand-in-progress"
	case errors.Is(err, room.ErrNoHand):
		return "no-hand"
	case errors.Is(err, room.ErrRoomClosed):
		return "room-closed"
	case errors.Is(err, room.ErrRoomPaused):
		return "room-paused"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not-your-turn"
	case errors.Is(err, game.ErrIllegalCheck):
		return "illegal-check"
	case errors.Is(err, game.ErrRaiseTooSmall):
		return "raise-too-small"
	case errors.Is(err, game.ErrRaiseClosed):
		return "raise-closed"
	case errors.Is(err, game.ErrInsufficientChips):
		return "insufficient-chips"
	case errors.Is(err, game.ErrHandComplete):
		return "hand-complete"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient-balance"
	case errors.Is(err, tournament.ErrNotFound):
		return "tournament-not-found"
	case errors.Is(err, tournament.ErrRegistrationClosed):
		return "registration-closed"
	case errors.Is(err, tournament.ErrFull):
		return "tournament-full"
	case errors.Is(err, tournament.ErrAlreadyRegistered):
		return "already-registered"
	case errors.Is(err, tournament.ErrNotRegistered):
		return "not-registered"
	case errors.Is(err, tournament.ErrDeadlinePassed):
		return "deadline-passed"
	default:
		return "operation-failed"
	}
}
