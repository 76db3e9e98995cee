package game

import "github.com/feltops/cardroom/internal/deck"

// HandPlayer is one seat dealt into a hand. Seat is the room seat number;
// the hand itself addresses players by their position index.
type HandPlayer struct {
	Seat     int
	UserID   string
	Chips    int
	Hole     []deck.Card
	Folded   bool
	AllIn    bool
	Bet      int // Chips committed this betting round
	TotalBet int // Chips committed over the whole hand
}

// Live reports whether the player is still contesting the pot.
func (p *HandPlayer) Live() bool {
	return !p.Folded
}

// CanAct reports whether the player can still take betting actions.
func (p *HandPlayer) CanAct() bool {
	return !p.Folded && !p.AllIn
}

// commit moves up to amount chips from the stack into the current bet,
// returning what was actually committed and flagging all-in at zero stack.
func (p *HandPlayer) commit(amount int) int {
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
	return amount
}
