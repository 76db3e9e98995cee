package tournament

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/feltops/cardroom/internal/ledger"
	"github.com/feltops/cardroom/internal/randutil"
)

// Tournament is one mutex-guarded tournament entity. All mutation goes
// through the owning Manager, one operation at a time.
type Tournament struct {
	mu sync.Mutex

	id           uuid.UUID
	cfg          Config
	status       Status
	participants []*Participant
	prizePool    int64
	bracket      *Bracket
	level        int
	levelTimer   *quartz.Timer
}

// Manager owns all tournaments and their interaction with the ledger.
type Manager struct {
	ledger ledger.Ledger
	clock  quartz.Clock
	rng    *rand.Rand
	logger *log.Logger
	notify func(Snapshot)

	mu          sync.RWMutex
	tournaments map[uuid.UUID]*Tournament
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock injects the clock used for deadlines and the blind schedule.
func WithClock(c quartz.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithRand injects the RNG used to shuffle the round-1 pairing.
func WithRand(r *rand.Rand) ManagerOption {
	return func(m *Manager) { m.rng = r }
}

// WithLogger sets the manager's logger.
func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithNotify registers a callback invoked with a fresh snapshot after
// every state change. It is called outside the tournament lock.
func WithNotify(fn func(Snapshot)) ManagerOption {
	return func(m *Manager) { m.notify = fn }
}

// NewManager creates a tournament manager backed by the given ledger.
func NewManager(l ledger.Ledger, opts ...ManagerOption) *Manager {
	m := &Manager{
		ledger:      l,
		clock:       quartz.NewReal(),
		logger:      log.Default(),
		tournaments: make(map[uuid.UUID]*Tournament),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = randutil.NewCrypto()
	}
	return m
}

// Create registers a new tournament in the registration stage.
func (m *Manager) Create(cfg Config) (uuid.UUID, error) {
	if cfg.MinPlayers < 2 {
		return uuid.Nil, fmt.Errorf("min players must be at least 2, got %d", cfg.MinPlayers)
	}
	if cfg.MaxPlayers < cfg.MinPlayers {
		return uuid.Nil, fmt.Errorf("max players %d below min players %d", cfg.MaxPlayers, cfg.MinPlayers)
	}
	if len(cfg.Levels) == 0 {
		return uuid.Nil, fmt.Errorf("blind schedule is empty")
	}
	if cfg.BuyIn < 0 || cfg.Fee < 0 {
		return uuid.Nil, fmt.Errorf("negative buy-in or fee")
	}
	if cfg.Format == "" {
		cfg.Format = SingleElimination
	}
	if cfg.Prizes == "" {
		cfg.Prizes = WinnerTakesAll
	}

	t := &Tournament{
		id:     uuid.New(),
		cfg:    cfg,
		status: Registration,
	}

	m.mu.Lock()
	m.tournaments[t.id] = t
	m.mu.Unlock()

	m.logger.Info("tournament created",
		"tournament", t.id, "name", cfg.Name, "buy_in", cfg.BuyIn)
	return t.id, nil
}

func (m *Manager) get(id uuid.UUID) (*Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Register debits buy-in plus fee from the user and adds them to the
// field. The debit happens before any tournament state changes, so a
// failed payment leaves nothing to unwind.
func (m *Manager) Register(ctx context.Context, id uuid.UUID, userID string) error {
	t, err := m.get(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	switch {
	case t.status != Registration && t.status != Ready:
		t.mu.Unlock()
		return ErrRegistrationClosed
	case !t.cfg.Deadline.IsZero() && m.clock.Now().After(t.cfg.Deadline):
		t.mu.Unlock()
		return ErrDeadlinePassed
	case len(t.participants) >= t.cfg.MaxPlayers:
		t.mu.Unlock()
		return ErrFull
	case t.participant(userID) != nil:
		t.mu.Unlock()
		return ErrAlreadyRegistered
	}
	t.mu.Unlock()

	memo := fmt.Sprintf("tournament %s buy-in", t.id)
	if err := m.ledger.Debit(ctx, userID, t.cfg.BuyIn+t.cfg.Fee, memo); err != nil {
		return err
	}

	t.mu.Lock()
	// Re-check under the lock: a racing registration may have filled the
	// last spot while the debit was in flight.
	if t.status != Registration && t.status != Ready || len(t.participants) >= t.cfg.MaxPlayers {
		t.mu.Unlock()
		if err := m.ledger.Credit(ctx, userID, t.cfg.BuyIn+t.cfg.Fee, memo+" refund"); err != nil {
			m.logger.Error("refund failed", "tournament", t.id, "user", userID, "err", err)
		}
		return ErrRegistrationClosed
	}
	t.participants = append(t.participants, &Participant{
		UserID:       userID,
		RegisteredAt: m.clock.Now(),
		Status:       Registered,
	})
	t.prizePool += t.cfg.BuyIn
	if t.status == Registration && len(t.participants) >= t.cfg.MinPlayers {
		t.status = Ready
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	m.logger.Info("player registered", "tournament", t.id, "user", userID)
	m.publish(snap)
	return nil
}

// Unregister refunds a participant before the tournament starts.
func (m *Manager) Unregister(ctx context.Context, id uuid.UUID, userID string) error {
	t, err := m.get(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.status != Registration && t.status != Ready {
		t.mu.Unlock()
		return ErrRegistrationClosed
	}
	idx := -1
	for i, p := range t.participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return ErrNotRegistered
	}
	t.participants = append(t.participants[:idx], t.participants[idx+1:]...)
	t.prizePool -= t.cfg.BuyIn
	if len(t.participants) < t.cfg.MinPlayers {
		t.status = Registration
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	memo := fmt.Sprintf("tournament %s refund", t.id)
	if err := m.ledger.Credit(ctx, userID, t.cfg.BuyIn+t.cfg.Fee, memo); err != nil {
		return fmt.Errorf("refund %s: %w", userID, err)
	}

	m.logger.Info("player unregistered", "tournament", t.id, "user", userID)
	m.publish(snap)
	return nil
}

// Start shuffles the field, builds the bracket and starts the blind
// clock. Only single elimination has a pairing algorithm.
func (m *Manager) Start(id uuid.UUID) (Snapshot, error) {
	t, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	t.mu.Lock()
	if t.status != Ready {
		t.mu.Unlock()
		return Snapshot{}, ErrNotReady
	}
	if t.cfg.Format != SingleElimination {
		t.mu.Unlock()
		return Snapshot{}, ErrUnsupportedFormat
	}

	entrants := make([]string, len(t.participants))
	for i, p := range t.participants {
		entrants[i] = p.UserID
		p.Status = Playing
	}
	m.rng.Shuffle(len(entrants), func(i, j int) {
		entrants[i], entrants[j] = entrants[j], entrants[i]
	})

	t.bracket = newBracket(entrants)
	t.status = Active
	t.level = 0
	m.armLevelTimer(t)

	matches := len(t.bracket.Matches)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	m.logger.Info("tournament started",
		"tournament", t.id, "players", len(entrants), "matches", matches)
	m.publish(snap)
	return snap, nil
}

// armLevelTimer schedules the next blind increase. Caller holds t.mu.
func (m *Manager) armLevelTimer(t *Tournament) {
	if t.level+1 >= len(t.cfg.Levels) {
		return
	}
	duration := t.cfg.Levels[t.level].Duration
	t.levelTimer = m.clock.AfterFunc(duration, func() {
		t.mu.Lock()
		if t.status != Active || t.level+1 >= len(t.cfg.Levels) {
			t.mu.Unlock()
			return
		}
		t.level++
		m.armLevelTimer(t)
		snap := t.snapshotLocked()
		t.mu.Unlock()

		m.logger.Info("blind level up", "tournament", t.id, "level", t.level)
		m.publish(snap)
	})
}

// AdvanceMatch records a match result: the loser is eliminated with
// position remaining+1, the winner moves downstream, and resolving the
// final completes the tournament and pays out the prize pool.
func (m *Manager) AdvanceMatch(ctx context.Context, id, matchID uuid.UUID, winnerID, note string) (Snapshot, error) {
	t, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	t.mu.Lock()
	if t.status != Active {
		t.mu.Unlock()
		return Snapshot{}, ErrMatchNotFound
	}
	match := t.bracket.match(matchID)
	if match == nil {
		t.mu.Unlock()
		return Snapshot{}, ErrMatchNotFound
	}

	loser, final, err := t.bracket.resolve(match, winnerID)
	if err != nil {
		if err == ErrBracketCorrupt {
			// Double-writes mean real money is at stake; freeze the
			// tournament instead of guessing.
			t.status = Halted
			m.logger.Error("bracket corrupt, tournament halted",
				"tournament", t.id, "match", matchID)
		}
		t.mu.Unlock()
		return Snapshot{}, err
	}
	match.Note = note

	if p := t.participant(loser); p != nil {
		p.Status = Eliminated
		p.Position = t.remainingLocked() + 1
	}

	var prizes []*Participant
	if final {
		champion := t.participant(winnerID)
		champion.Status = Winner
		champion.Position = 1
		t.status = Completed
		if t.levelTimer != nil {
			t.levelTimer.Stop()
		}
		prizes = t.assignPrizesLocked()
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	m.logger.Info("match resolved",
		"tournament", t.id, "match", matchID, "winner", winnerID, "final", final)

	for _, p := range prizes {
		memo := fmt.Sprintf("tournament %s prize, position %d", t.id, p.Position)
		if err := m.ledger.Credit(ctx, p.UserID, p.Winnings, memo); err != nil {
			m.logger.Error("prize payout failed",
				"tournament", t.id, "user", p.UserID, "amount", p.Winnings, "err", err)
		}
	}

	m.publish(snap)
	return snap, nil
}

// assignPrizesLocked stamps winnings on the paid finishers and returns
// them for payout. Caller holds t.mu.
func (t *Tournament) assignPrizesLocked() []*Participant {
	amounts := payouts(t.cfg.Prizes, t.prizePool, len(t.participants))

	ranked := make([]*Participant, len(t.participants))
	copy(ranked, t.participants)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Position < ranked[j].Position
	})

	paid := make([]*Participant, 0, len(amounts))
	for i, amount := range amounts {
		if i >= len(ranked) || amount <= 0 {
			break
		}
		ranked[i].Winnings = amount
		paid = append(paid, ranked[i])
	}
	return paid
}

// Get returns a snapshot of the tournament.
func (m *Manager) Get(id uuid.UUID) (Snapshot, error) {
	t, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(), nil
}

// List returns snapshots of all tournaments.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	ts := make([]*Tournament, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		ts = append(ts, t)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(ts))
	for _, t := range ts {
		t.mu.Lock()
		out = append(out, t.snapshotLocked())
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close stops all blind timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tournaments {
		t.mu.Lock()
		if t.levelTimer != nil {
			t.levelTimer.Stop()
		}
		t.mu.Unlock()
	}
}

func (m *Manager) publish(snap Snapshot) {
	if m.notify != nil {
		m.notify(snap)
	}
}

func (t *Tournament) participant(userID string) *Participant {
	for _, p := range t.participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// remainingLocked counts entrants still in contention. Caller holds t.mu.
func (t *Tournament) remainingLocked() int {
	n := 0
	for _, p := range t.participants {
		if p.Status == Playing {
			n++
		}
	}
	return n
}

func (t *Tournament) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        t.id,
		Name:      t.cfg.Name,
		Status:    t.status,
		PrizePool: t.prizePool,
		Level:     t.level,
	}
	if len(t.cfg.Levels) > 0 {
		snap.Blinds = t.cfg.Levels[t.level]
	}
	snap.Participants = make([]Participant, len(t.participants))
	for i, p := range t.participants {
		snap.Participants[i] = *p
	}
	if t.bracket != nil {
		snap.Matches = t.bracket.views()
	}
	return snap
}
