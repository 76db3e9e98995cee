package game

import (
	rand "math/rand/v2"
	"time"

	"github.com/feltops/cardroom/internal/deck"
	"github.com/feltops/cardroom/internal/poker"
)

// SeatEntry describes one seat entering a hand.
type SeatEntry struct {
	Seat   int
	UserID string
	Chips  int
}

// LastAction records the most recent action applied to the hand.
type LastAction struct {
	Seat   int
	Action Action
	Amount int
	At     time.Time
}

// Award is one pot (or pot share) paid out at hand end.
type Award struct {
	Seat   int
	UserID string
	Amount int
	Rank   poker.HandRank // zero when the pot was won uncontested
}

// Hand is the state machine for a single deal-to-showdown cycle. It is
// owned by exactly one room and is not safe for concurrent use; the room
// actor serialises all access.
type Hand struct {
	Phase   Phase
	Button  int // Index into Players of the dealer button
	Turn    int // Index into Players of the seat to act, -1 when none
	Board   []deck.Card
	Players []*HandPlayer
	Betting *Betting
	Last    *LastAction

	deck       *deck.Deck
	pots       *PotManager
	smallBlind int
	bigBlind   int
	sbIndex    int
	bbIndex    int
	settled    bool
	chipsIn    int // Sum of stacks at deal time, for conservation checks
	now        func() time.Time
}

// Option configures a new hand.
type Option func(*Hand)

// WithDeck substitutes a prepared deck, bypassing the shuffle. Used by
// tests to rig deterministic runouts.
func WithDeck(d *deck.Deck) Option {
	return func(h *Hand) { h.deck = d }
}

// WithNow substitutes the timestamp source for action records.
func WithNow(now func() time.Time) Option {
	return func(h *Hand) { h.now = now }
}

// New deals a fresh hand. The button is the index into seats of the
// dealer; blinds are posted from stacks, two hole cards are dealt one per
// pass in seat order, and the turn starts left of the big blind (or on
// the button in heads-up play, where the button posts the small blind).
func New(rng *rand.Rand, seats []SeatEntry, button, smallBlind, bigBlind int, opts ...Option) (*Hand, error) {
	if len(seats) < 2 {
		return nil, ErrTooFewPlayers
	}

	h := &Hand{
		Phase:      PreFlop,
		Button:     button,
		smallBlind: smallBlind,
		bigBlind:   bigBlind,
		pots:       NewPotManager(),
		now:        time.Now,
	}
	for _, s := range seats {
		h.Players = append(h.Players, &HandPlayer{
			Seat:   s.Seat,
			UserID: s.UserID,
			Chips:  s.Chips,
		})
		h.chipsIn += s.Chips
	}
	h.Betting = NewBetting(len(h.Players), bigBlind)

	for _, opt := range opts {
		opt(h)
	}
	if h.deck == nil {
		h.deck = deck.New(rng)
	}

	n := len(h.Players)
	if n == 2 {
		h.sbIndex = button
		h.bbIndex = (button + 1) % n
	} else {
		h.sbIndex = (button + 1) % n
		h.bbIndex = (button + 2) % n
	}

	h.Players[h.sbIndex].commit(smallBlind)
	h.Players[h.bbIndex].commit(bigBlind)
	h.Betting.CurrentBet = bigBlind

	// One card per pass, in seat order starting left of the button.
	for pass := 0; pass < 2; pass++ {
		for i := 1; i <= n; i++ {
			p := h.Players[(button+i)%n]
			card, ok := h.deck.Draw()
			if !ok {
				return nil, ErrHandComplete
			}
			p.Hole = append(p.Hole, card)
		}
	}

	h.Turn = h.nextToAct((h.bbIndex + 1) % n)
	return h, nil
}

// Apply validates and applies one action for the given room seat number.
// The forced fold injected by the turn timer travels through this exact
// path, so a stale timer racing a real action fails with ErrNotYourTurn.
func (h *Hand) Apply(seat int, action Action, amount int) error {
	if h.Complete() {
		return ErrHandComplete
	}

	idx := h.indexOfSeat(seat)
	if idx < 0 || idx != h.Turn {
		return ErrNotYourTurn
	}
	p := h.Players[idx]

	switch action {
	case Fold:
		p.Folded = true
		if h.Betting.LastRaiser == idx {
			h.Betting.LastRaiser = -1
		}

	case Check:
		if p.Bet != h.Betting.CurrentBet {
			return ErrIllegalCheck
		}

	case Call:
		toCall := h.Betting.CurrentBet - p.Bet
		if toCall <= 0 {
			return ErrIllegalCheck // Nothing to call; should have checked
		}
		p.commit(toCall)

	case Raise:
		// Acted is only still set at a seat's turn when a short all-in
		// failed to reopen the betting; the seat may call or fold.
		if h.Betting.Acted[idx] {
			return ErrRaiseClosed
		}
		if amount > p.Bet+p.Chips {
			return ErrInsufficientChips
		}
		// A raise must reach at least twice the current bet to call; an
		// all-in for less is allowed but handled via the AllIn action.
		if amount < h.Betting.MinRaiseTo() {
			return ErrRaiseTooSmall
		}
		p.commit(amount - p.Bet)
		h.Betting.CurrentBet = amount
		h.Betting.reopen(idx)

	case AllIn:
		// A short all-in over the current bet raises the price to call
		// but only a full raise reopens the action.
		minRaise := h.Betting.MinRaiseTo()
		p.commit(p.Chips)
		if p.Bet > h.Betting.CurrentBet {
			h.Betting.CurrentBet = p.Bet
			if p.Bet >= minRaise {
				h.Betting.reopen(idx)
			}
		}
	}

	h.Betting.Acted[idx] = true
	if h.Phase == PreFlop && idx == h.bbIndex {
		h.Betting.BBActed = true
	}
	h.Last = &LastAction{Seat: seat, Action: action, Amount: amount, At: h.now()}

	h.advance(idx)
	return nil
}

// ForceFold folds a seat on the turn timer's behalf. It runs through the
// same validation as player input, so a seat that already acted fails
// with ErrNotYourTurn and the expired timer becomes a no-op.
func (h *Hand) ForceFold(seat int) error {
	return h.Apply(seat, Fold, 0)
}

// advance moves the turn onward and rolls the hand into the next street
// once the betting round is complete.
func (h *Hand) advance(from int) {
	if h.liveCount() <= 1 {
		h.Turn = -1
		h.Phase = Showdown
		return
	}

	if h.Betting.complete(h.Players, h.Phase, h.bbIndex) {
		h.nextStreet()
		return
	}

	h.Turn = h.nextToAct(from + 1)
	if h.Turn == -1 {
		h.nextStreet()
	}
}

// nextStreet collects bets, resets the betting round and deals the next
// community cards. When nobody can act (everyone live is all-in) it keeps
// rolling streets forward to showdown.
func (h *Hand) nextStreet() {
	h.pots.Collect(h.Players)
	h.Betting.Reset()

	switch h.Phase {
	case PreFlop:
		h.Phase = Flop
		h.Board = append(h.Board, h.deck.DrawN(3)...)
	case Flop:
		h.Phase = Turn
		h.Board = append(h.Board, h.deck.DrawN(1)...)
	case Turn:
		h.Phase = River
		h.Board = append(h.Board, h.deck.DrawN(1)...)
	case River:
		h.Phase = Showdown
		h.Turn = -1
		return
	default:
		return
	}

	h.Turn = h.nextToAct((h.Button + 1) % len(h.Players))
	if h.Turn == -1 {
		h.nextStreet()
	}
}

// nextToAct returns the first player index at or after from (wrapping)
// who can still act, or -1.
func (h *Hand) nextToAct(from int) int {
	n := len(h.Players)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if h.Players[idx].CanAct() {
			return idx
		}
	}
	return -1
}

func (h *Hand) indexOfSeat(seat int) int {
	for i, p := range h.Players {
		if p.Seat == seat {
			return i
		}
	}
	return -1
}

func (h *Hand) liveCount() int {
	live := 0
	for _, p := range h.Players {
		if p.Live() {
			live++
		}
	}
	return live
}

// Complete reports whether the hand has reached showdown or a fold-out.
func (h *Hand) Complete() bool {
	return h.Phase == Showdown || h.liveCount() <= 1
}

// Pot returns the total chips at stake, including uncollected bets.
func (h *Hand) Pot() int {
	total := h.pots.Total()
	for _, p := range h.Players {
		total += p.Bet
	}
	return total
}

// ToCall returns the amount the given seat must add to match the current
// bet, zero when checking is legal.
func (h *Hand) ToCall(seat int) int {
	idx := h.indexOfSeat(seat)
	if idx < 0 {
		return 0
	}
	toCall := h.Betting.CurrentBet - h.Players[idx].Bet
	if toCall < 0 {
		return 0
	}
	return toCall
}

// TurnSeat returns the room seat number whose turn it is, or -1.
func (h *Hand) TurnSeat() int {
	if h.Turn < 0 {
		return -1
	}
	return h.Players[h.Turn].Seat
}

// Settle resolves the hand: pots are collected, each pot is awarded to
// its best live hand (or the sole remaining player without evaluation),
// and winnings are returned to player stacks. Split pots floor-divide,
// with the odd chip going to the earliest eligible player after the
// button. Settle is idempotent.
func (h *Hand) Settle() []Award {
	if h.settled {
		return nil
	}
	h.settled = true
	h.Phase = Showdown
	h.Turn = -1

	h.pots.Collect(h.Players)

	// Draining the pots as they pay out keeps Conserve balanced: after
	// settlement the chips live in stacks again, nowhere else.
	var awards []Award
	for _, pot := range h.pots.Drain() {
		winners, rank := h.potWinners(pot)
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / len(winners)
		remainder := pot.Amount - share*len(winners)
		for _, idx := range winners {
			amount := share
			if remainder > 0 {
				// Odd chip to the earliest winner after the button.
				amount++
				remainder--
			}
			p := h.Players[idx]
			p.Chips += amount
			awards = append(awards, Award{
				Seat:   p.Seat,
				UserID: p.UserID,
				Amount: amount,
				Rank:   rank,
			})
		}
	}
	return awards
}

// potWinners returns the winning player indexes for a pot, ordered from
// the first eligible seat after the button, plus the winning rank. A pot
// with a single live contender is awarded without evaluation.
func (h *Hand) potWinners(pot Pot) ([]int, poker.HandRank) {
	live := make([]int, 0, len(pot.Eligible))
	for _, idx := range pot.Eligible {
		if h.Players[idx].Live() {
			live = append(live, idx)
		}
	}
	if len(live) == 0 {
		return nil, 0
	}
	if len(live) == 1 {
		return live, 0
	}

	var best poker.HandRank
	var winners []int
	n := len(h.Players)
	// Walk seats clockwise from the button so split-pot remainders land
	// deterministically on the earliest position.
	for i := 1; i <= n; i++ {
		idx := (h.Button + i) % n
		eligible := false
		for _, e := range live {
			if e == idx {
				eligible = true
				break
			}
		}
		if !eligible {
			continue
		}
		cards := append(append([]deck.Card{}, h.Players[idx].Hole...), h.Board...)
		rank := poker.Evaluate(cards)
		switch {
		case rank.Beats(best) || len(winners) == 0:
			best = rank
			winners = []int{idx}
		case rank == best:
			winners = append(winners, idx)
		}
	}
	return winners, best
}

// Conserve verifies chip conservation: stacks plus chips at stake must
// equal the chips that entered the hand. A failure is fatal to the room.
func (h *Hand) Conserve() error {
	total := h.pots.Total()
	for _, p := range h.Players {
		total += p.Chips + p.Bet
	}
	if total != h.chipsIn {
		return ErrChipLeak
	}
	return nil
}
