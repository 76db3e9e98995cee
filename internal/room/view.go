package room

import (
	"github.com/feltops/cardroom/internal/deck"
	"github.com/feltops/cardroom/internal/game"
)

// Status is the room lifecycle stage. A paused room froze itself after
// an integrity violation and takes no further actions.
type Status string

const (
	Active Status = "active"
	Paused Status = "paused"
	Closed Status = "closed"
)

// SeatStatus tracks a seated player's participation.
type SeatStatus string

const (
	SeatActive     SeatStatus = "active"
	SeatSittingOut SeatStatus = "sitting-out"
	SeatAway       SeatStatus = "away"
)

// Stakes are the table limits.
type Stakes struct {
	SmallBlind int `json:"small_blind" hcl:"small_blind"`
	BigBlind   int `json:"big_blind" hcl:"big_blind"`
	MinBuyIn   int `json:"min_buy_in" hcl:"min_buy_in"`
	MaxBuyIn   int `json:"max_buy_in" hcl:"max_buy_in"`
}

// Summary is the listing view of a room.
type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stakes   Stakes `json:"stakes"`
	MaxSeats int    `json:"max_seats"`
	Seated   int    `json:"seated"`
	Status   Status `json:"status"`
}

// SeatView is the public view of one seat. Hole cards never appear here;
// they travel only in the private deal message to their owner.
type SeatView struct {
	Seat   int        `json:"seat"`
	UserID string     `json:"user_id"`
	Chips  int        `json:"chips"`
	Status SeatStatus `json:"status"`
	InHand bool       `json:"in_hand"`
	Folded bool       `json:"folded"`
	AllIn  bool       `json:"all_in"`
	Bet    int        `json:"bet"`
}

// HandView is the public view of the hand in progress.
type HandView struct {
	Phase      string      `json:"phase"`
	Board      []deck.Card `json:"board"`
	Pot        int         `json:"pot"`
	TurnSeat   int         `json:"turn_seat"`
	CurrentBet int         `json:"current_bet"`
	ButtonSeat int         `json:"button_seat"`
	LastAction *ActionView `json:"last_action,omitempty"`
}

// ActionView is the wire form of the most recent action.
type ActionView struct {
	Seat   int    `json:"seat"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// Snapshot is the full public room state sent on join.
type Snapshot struct {
	Summary
	Seats []SeatView `json:"seats"`
	Hand  *HandView  `json:"hand,omitempty"`
}

// Deal is the private per-player message carrying hole cards.
type Deal struct {
	RoomID string      `json:"room_id"`
	Seat   int         `json:"seat"`
	Hole   []deck.Card `json:"hole"`
}

// AwardView is one payout line in the hand-ended broadcast.
type AwardView struct {
	Seat   int    `json:"seat"`
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Hand   string `json:"hand,omitempty"`
}

// Broadcaster delivers room events. Broadcast fans out to everyone
// watching the room; Send reaches a single user (hole cards travel only
// through Send). Implementations must not block.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
	Send(userID, event string, payload any)
}

// NopBroadcaster discards all events.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, string, any) {}
func (NopBroadcaster) Send(string, string, any)      {}

func handView(h *game.Hand) *HandView {
	if h == nil {
		return nil
	}
	v := &HandView{
		Phase:      h.Phase.String(),
		Board:      h.Board,
		Pot:        h.Pot(),
		TurnSeat:   h.TurnSeat(),
		CurrentBet: h.Betting.CurrentBet,
		ButtonSeat: h.Players[h.Button].Seat,
	}
	if h.Last != nil {
		v.LastAction = &ActionView{
			Seat:   h.Last.Seat,
			Action: h.Last.Action.String(),
			Amount: h.Last.Amount,
		}
	}
	return v
}
