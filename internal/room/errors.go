package room

import "errors"

var (
	ErrNotFound        = errors.New("room not found")
	ErrSeatTaken       = errors.New("seat is taken")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadySeated   = errors.New("already seated at this room")
	ErrNotSeated       = errors.New("not seated at this room")
	ErrBuyInOutOfRange = errors.New("buy-in outside room limits")
	ErrInvalidSeat     = errors.New("invalid seat number")
	ErrNoHand          = errors.New("no hand in progress")

	// ErrHandInProgress rejects standing up mid-hand. Folding first is
	// the way out; letting a stack vanish from a live pot breaks chip
	// conservation accounting.
	ErrHandInProgress = errors.New("cannot stand up during a hand")

	// ErrRoomClosed is returned once teardown has begun.
	ErrRoomClosed = errors.New("room is closed")

	// ErrRoomPaused is returned while a room is frozen after an
	// integrity violation, pending manual reconciliation.
	ErrRoomPaused = errors.New("room is paused")
)
