package room

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltops/cardroom/internal/game"
	"github.com/feltops/cardroom/internal/ledger"
)

// Config describes a room to create.
type Config struct {
	Name        string
	Stakes      Stakes
	MaxSeats    int
	TurnTimeout time.Duration
}

// Seat is one occupied position at the table. Stacks are mutated only by
// the room's actor loop.
type Seat struct {
	UserID string
	Chips  int
	Status SeatStatus
}

// Room is a single table run as an actor: every mutation is a closure
// processed one at a time by the run loop, so hand state never sees
// concurrent writers. Timer expiries enter through the same loop.
type Room struct {
	id     string
	cfg    Config
	ledger ledger.Ledger
	clock  quartz.Clock
	rng    *rand.Rand
	logger *log.Logger
	bcast  Broadcaster

	cmds      chan func()
	closed    chan struct{}
	closeOnce sync.Once

	// Actor-owned state below; touched only from the run loop.
	status    Status
	seats     []*Seat // index = seat number
	observers map[string]struct{}
	hand      *game.Hand
	button    int // seat number of the last dealer button
	timer     *quartz.Timer
	timerGen  uint64
}

func newRoom(id string, cfg Config, l ledger.Ledger, clock quartz.Clock, rng *rand.Rand, logger *log.Logger, b Broadcaster) *Room {
	r := &Room{
		id:        id,
		cfg:       cfg,
		ledger:    l,
		clock:     clock,
		rng:       rng,
		logger:    logger.With("room", id),
		bcast:     b,
		cmds:      make(chan func(), 64),
		closed:    make(chan struct{}),
		status:    Active,
		seats:     make([]*Seat, cfg.MaxSeats),
		observers: make(map[string]struct{}),
		button:    -1,
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.closed:
			return
		}
	}
}

// do runs fn on the actor loop and waits for it to finish.
func (r *Room) do(fn func()) error {
	done := make(chan struct{})
	select {
	case r.cmds <- func() { fn(); close(done) }:
	case <-r.closed:
		return ErrRoomClosed
	}
	select {
	case <-done:
		return nil
	case <-r.closed:
		return ErrRoomClosed
	}
}

// post queues fn without waiting. Used by timer callbacks.
func (r *Room) post(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.closed:
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Sit seats a player with a buy-in. The ledger is debited before the
// seat commits; if the seat is lost to a racing player in the meantime
// the debit is refunded, so the operation stays all-or-nothing.
func (r *Room) Sit(ctx context.Context, userID string, seat, buyIn int) error {
	var precheck error
	if err := r.do(func() { precheck = r.checkSit(userID, seat, buyIn) }); err != nil {
		return err
	}
	if precheck != nil {
		return precheck
	}

	memo := fmt.Sprintf("buy-in room %s seat %d", r.id, seat)
	if err := r.ledger.Debit(ctx, userID, int64(buyIn), memo); err != nil {
		return err
	}

	var commit error
	err := r.do(func() {
		if commit = r.checkSit(userID, seat, buyIn); commit != nil {
			return
		}
		r.seats[seat] = &Seat{UserID: userID, Chips: buyIn, Status: SeatActive}
		r.logger.Info("player sat down", "user", userID, "seat", seat, "buy_in", buyIn)
		r.bcast.Broadcast(r.id, "player-sat-down", SeatView{
			Seat: seat, UserID: userID, Chips: buyIn, Status: SeatActive,
		})
		r.maybeStartHand()
	})
	if err == nil && commit == nil {
		return nil
	}

	if err := r.ledger.Credit(ctx, userID, int64(buyIn), memo+" refund"); err != nil {
		r.logger.Error("buy-in refund failed", "user", userID, "err", err)
	}
	if err != nil {
		return err
	}
	return commit
}

// checkSit validates a seating request. Runs on the actor loop.
func (r *Room) checkSit(userID string, seat, buyIn int) error {
	switch {
	case r.status == Closed:
		return ErrRoomClosed
	case r.status == Paused:
		return ErrRoomPaused
	case seat < 0 || seat >= len(r.seats):
		return ErrInvalidSeat
	case buyIn < r.cfg.Stakes.MinBuyIn || buyIn > r.cfg.Stakes.MaxBuyIn:
		return ErrBuyInOutOfRange
	}
	occupied := 0
	for i, s := range r.seats {
		if s == nil {
			continue
		}
		occupied++
		if s.UserID == userID {
			return ErrAlreadySeated
		}
		if i == seat {
			return ErrSeatTaken
		}
	}
	if occupied >= len(r.seats) {
		return ErrRoomFull
	}
	return nil
}

// Stand removes a player from the table and returns the stack size that
// was credited back to the ledger. Standing mid-hand is rejected.
func (r *Room) Stand(ctx context.Context, userID string) (int, error) {
	var (
		chips int
		seat  int
		opErr error
	)
	err := r.do(func() {
		seat, opErr = r.findSeat(userID)
		if opErr != nil {
			return
		}
		if r.status == Paused {
			opErr = ErrRoomPaused
			return
		}
		if r.hand != nil && r.inHand(seat) {
			opErr = ErrHandInProgress
			return
		}
		chips = r.seats[seat].Chips
		r.seats[seat] = nil
		r.logger.Info("player stood up", "user", userID, "seat", seat, "chips", chips)
		r.bcast.Broadcast(r.id, "player-stood-up", SeatView{Seat: seat, UserID: userID, Chips: chips})
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, opErr
	}

	if chips > 0 {
		memo := fmt.Sprintf("cash-out room %s", r.id)
		if err := r.ledger.Credit(ctx, userID, int64(chips), memo); err != nil {
			// The seat is gone; the credit must not be lost silently.
			r.logger.Error("cash-out credit failed", "user", userID, "chips", chips, "err", err)
			return chips, err
		}
	}
	return chips, nil
}

// Act applies a player action to the hand in progress.
func (r *Room) Act(userID string, action game.Action, amount int) error {
	var opErr error
	err := r.do(func() {
		switch {
		case r.status == Paused:
			opErr = ErrRoomPaused
			return
		case r.hand == nil:
			opErr = ErrNoHand
			return
		}
		seat, findErr := r.findSeat(userID)
		if findErr != nil {
			opErr = findErr
			return
		}
		opErr = r.applyAction(seat, action, amount)
	})
	if err != nil {
		return err
	}
	return opErr
}

// applyAction feeds one action into the hand and handles the fallout.
// Runs on the actor loop.
func (r *Room) applyAction(seat int, action game.Action, amount int) error {
	if err := r.hand.Apply(seat, action, amount); err != nil {
		return err
	}
	r.afterAction()
	return nil
}

// afterAction broadcasts the new state and either settles a completed
// hand or arms the turn clock for the next seat. Runs on the actor loop.
func (r *Room) afterAction() {
	r.bcast.Broadcast(r.id, "game-state-updated", r.snapshot())

	if r.hand.Complete() {
		r.settleHand()
		return
	}
	r.armTimer(r.hand.TurnSeat())
}

// SetAway marks a seated player away from the table or welcomes them
// back. An away seat keeps its stack but is skipped when the next hand
// deals; mid-hand the turn clock still folds for it. Sitting-out seats
// are left alone.
func (r *Room) SetAway(userID string, away bool) error {
	var opErr error
	err := r.do(func() {
		seat, findErr := r.findSeat(userID)
		if findErr != nil {
			opErr = findErr
			return
		}
		s := r.seats[seat]
		switch {
		case away && s.Status == SeatActive:
			s.Status = SeatAway
		case !away && s.Status == SeatAway:
			s.Status = SeatActive
		default:
			return
		}
		r.logger.Info("seat presence changed", "user", userID, "seat", seat, "status", s.Status)
		r.bcast.Broadcast(r.id, "seat-updated", SeatView{
			Seat: seat, UserID: userID, Chips: s.Chips, Status: s.Status,
		})
		if !away {
			r.maybeStartHand()
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// Observe subscribes a user to the room and sends them the full state.
func (r *Room) Observe(userID string) error {
	return r.do(func() {
		r.observers[userID] = struct{}{}
		r.bcast.Send(userID, "room-state", r.snapshot())
	})
}

// Unobserve drops a user from the observer set.
func (r *Room) Unobserve(userID string) error {
	return r.do(func() {
		delete(r.observers, userID)
	})
}

// Summary returns the listing view.
func (r *Room) Summary() Summary {
	var s Summary
	if err := r.do(func() { s = r.summary() }); err != nil {
		return Summary{ID: r.id, Name: r.cfg.Name, Stakes: r.cfg.Stakes, MaxSeats: r.cfg.MaxSeats, Status: Closed}
	}
	return s
}

// State returns the full public snapshot.
func (r *Room) State() Snapshot {
	var s Snapshot
	if err := r.do(func() { s = r.snapshot() }); err != nil {
		s.Summary = Summary{ID: r.id, Status: Closed}
	}
	return s
}

// Close tears the room down: the pending timer is cancelled, every
// remaining stack is credited back to the ledger, and the loop stops.
func (r *Room) Close(ctx context.Context) error {
	type refund struct {
		userID string
		chips  int
	}
	var refunds []refund

	err := r.do(func() {
		if r.status == Closed {
			return
		}
		r.status = Closed
		r.stopTimer()
		r.hand = nil
		for i, s := range r.seats {
			if s != nil && s.Chips > 0 {
				refunds = append(refunds, refund{s.UserID, s.Chips})
			}
			r.seats[i] = nil
		}
	})
	if err != nil && err != ErrRoomClosed {
		return err
	}
	r.closeOnce.Do(func() { close(r.closed) })

	for _, ref := range refunds {
		memo := fmt.Sprintf("room %s closed", r.id)
		if err := r.ledger.Credit(ctx, ref.userID, int64(ref.chips), memo); err != nil {
			r.logger.Error("close-out credit failed", "user", ref.userID, "err", err)
		}
	}
	r.logger.Info("room closed")
	return nil
}

// maybeStartHand deals a new hand when at least two active stacks can
// play. Runs on the actor loop.
func (r *Room) maybeStartHand() {
	if r.status != Active || r.hand != nil {
		return
	}

	entries := r.dealable()
	if len(entries) < 2 {
		return
	}

	r.button = r.nextButton(entries)
	buttonIdx := 0
	for i, e := range entries {
		if e.Seat == r.button {
			buttonIdx = i
		}
	}

	hand, err := game.New(r.rng, entries, buttonIdx, r.cfg.Stakes.SmallBlind, r.cfg.Stakes.BigBlind)
	if err != nil {
		r.logger.Error("failed to start hand", "err", err)
		return
	}
	r.hand = hand
	// Stacks moved into the hand; zero the seats until settlement.
	for _, e := range entries {
		r.seats[e.Seat].Chips = 0
	}

	r.logger.Info("hand started", "players", len(entries), "button", r.button)
	r.bcast.Broadcast(r.id, "game-started", r.snapshot())
	for _, p := range hand.Players {
		r.bcast.Send(p.UserID, "hole-cards", Deal{RoomID: r.id, Seat: p.Seat, Hole: p.Hole})
	}
	r.armTimer(hand.TurnSeat())
}

// dealable collects seats that can be dealt in, in seat order.
func (r *Room) dealable() []game.SeatEntry {
	var entries []game.SeatEntry
	for i, s := range r.seats {
		if s != nil && s.Status == SeatActive && s.Chips >= r.cfg.Stakes.BigBlind {
			entries = append(entries, game.SeatEntry{Seat: i, UserID: s.UserID, Chips: s.Chips})
		}
	}
	return entries
}

// nextButton advances the dealer button to the next dealable seat after
// the previous button, wrapping around the table.
func (r *Room) nextButton(entries []game.SeatEntry) int {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seat < entries[j].Seat })
	for _, e := range entries {
		if e.Seat > r.button {
			return e.Seat
		}
	}
	return entries[0].Seat
}

// settleHand pays out the pots, verifies chip conservation and returns
// stacks to their seats. Runs on the actor loop.
func (r *Room) settleHand() {
	r.stopTimer()

	awards := r.hand.Settle()
	if err := r.hand.Conserve(); err != nil {
		// Real money: freeze everything and wait for a human.
		r.status = Paused
		r.logger.Error("integrity violation, room paused", "err", err)
		r.bcast.Broadcast(r.id, "error", map[string]string{
			"code":    "integrity-violation",
			"message": "room paused pending reconciliation",
		})
		return
	}

	views := make([]AwardView, len(awards))
	for i, a := range awards {
		views[i] = AwardView{Seat: a.Seat, UserID: a.UserID, Amount: a.Amount}
		if a.Rank != 0 {
			views[i].Hand = a.Rank.Category().String()
		}
	}

	for _, p := range r.hand.Players {
		if s := r.seats[p.Seat]; s != nil {
			s.Chips = p.Chips
			if s.Chips == 0 {
				s.Status = SeatSittingOut
			}
		}
	}
	r.hand = nil

	r.bcast.Broadcast(r.id, "hand-ended", map[string]any{
		"room_id": r.id,
		"awards":  views,
	})
	r.maybeStartHand()
}

// armTimer starts the turn clock for a seat. The generation counter
// makes a late fire from a superseded timer a no-op even if it was
// already in flight when the seat acted.
func (r *Room) armTimer(seat int) {
	r.stopTimer()
	if seat < 0 || r.cfg.TurnTimeout <= 0 {
		return
	}
	r.timerGen++
	gen := r.timerGen
	r.timer = r.clock.AfterFunc(r.cfg.TurnTimeout, func() {
		r.post(func() { r.timerExpired(gen, seat) })
	})
}

func (r *Room) stopTimer() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// timerExpired force-folds a seat that ran out of time. Runs on the
// actor loop. A stale generation or an out-of-turn seat means the
// player acted first; the expiry is dropped.
func (r *Room) timerExpired(gen uint64, seat int) {
	if gen != r.timerGen || r.hand == nil || r.status != Active {
		return
	}
	r.logger.Info("turn timeout, forcing fold", "seat", seat)
	if err := r.hand.ForceFold(seat); err != nil {
		r.logger.Debug("stale timeout ignored", "seat", seat, "err", err)
		return
	}
	r.afterAction()
}

func (r *Room) findSeat(userID string) (int, error) {
	for i, s := range r.seats {
		if s != nil && s.UserID == userID {
			return i, nil
		}
	}
	return 0, ErrNotSeated
}

// inHand reports whether a seat is dealt into the current hand.
func (r *Room) inHand(seat int) bool {
	for _, p := range r.hand.Players {
		if p.Seat == seat {
			return true
		}
	}
	return false
}

func (r *Room) summary() Summary {
	seated := 0
	for _, s := range r.seats {
		if s != nil {
			seated++
		}
	}
	return Summary{
		ID:       r.id,
		Name:     r.cfg.Name,
		Stakes:   r.cfg.Stakes,
		MaxSeats: r.cfg.MaxSeats,
		Seated:   seated,
		Status:   r.status,
	}
}

func (r *Room) snapshot() Snapshot {
	snap := Snapshot{Summary: r.summary(), Hand: handView(r.hand)}
	for i, s := range r.seats {
		if s == nil {
			continue
		}
		view := SeatView{Seat: i, UserID: s.UserID, Chips: s.Chips, Status: s.Status}
		if r.hand != nil {
			for _, p := range r.hand.Players {
				if p.Seat == i {
					view.InHand = true
					view.Folded = p.Folded
					view.AllIn = p.AllIn
					view.Chips = p.Chips
					view.Bet = p.Bet
				}
			}
		}
		snap.Seats = append(snap.Seats, view)
	}
	return snap
}
