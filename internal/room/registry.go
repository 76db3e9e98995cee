// Package room implements tables and the registry that owns them. Each
// room runs as a single-threaded actor; the registry is the only way to
// reach one.
package room

import (
	"context"
	"fmt"
	"iter"
	rand "math/rand/v2"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltops/cardroom/internal/ledger"
	"github.com/feltops/cardroom/internal/randutil"
	"github.com/feltops/cardroom/internal/roomid"
)

// Registry owns every room and hands out stable ids for them.
type Registry struct {
	ledger ledger.Ledger
	clock  quartz.Clock
	rng    *rand.Rand
	logger *log.Logger
	bcast  Broadcaster

	mu    sync.RWMutex
	rooms map[string]*Room
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock injects the clock used for turn timers.
func WithClock(c quartz.Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// WithRand injects the RNG used for deck shuffles.
func WithRand(rng *rand.Rand) RegistryOption {
	return func(r *Registry) { r.rng = rng }
}

// WithLogger sets the registry's logger.
func WithLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithBroadcaster sets the event sink shared by all rooms.
func WithBroadcaster(b Broadcaster) RegistryOption {
	return func(r *Registry) { r.bcast = b }
}

// NewRegistry creates an empty registry backed by the given ledger.
func NewRegistry(l ledger.Ledger, opts ...RegistryOption) *Registry {
	reg := &Registry{
		ledger: l,
		clock:  quartz.NewReal(),
		logger: log.Default(),
		bcast:  NopBroadcaster{},
		rooms:  make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.rng == nil {
		reg.rng = randutil.NewCrypto()
	}
	return reg
}

// Create validates the configuration and opens a new room.
func (reg *Registry) Create(cfg Config) (*Room, error) {
	if cfg.MaxSeats < 2 || cfg.MaxSeats > 10 {
		return nil, fmt.Errorf("max seats must be between 2 and 10, got %d", cfg.MaxSeats)
	}
	if cfg.Stakes.SmallBlind <= 0 || cfg.Stakes.BigBlind < cfg.Stakes.SmallBlind {
		return nil, fmt.Errorf("invalid blinds %d/%d", cfg.Stakes.SmallBlind, cfg.Stakes.BigBlind)
	}
	if cfg.Stakes.MinBuyIn > cfg.Stakes.MaxBuyIn {
		return nil, fmt.Errorf("min buy-in %d above max buy-in %d", cfg.Stakes.MinBuyIn, cfg.Stakes.MaxBuyIn)
	}
	if cfg.Stakes.MinBuyIn < cfg.Stakes.BigBlind {
		return nil, fmt.Errorf("min buy-in %d below big blind %d", cfg.Stakes.MinBuyIn, cfg.Stakes.BigBlind)
	}

	room := newRoom(roomid.Generate(), cfg, reg.ledger, reg.clock, reg.rng, reg.logger, reg.bcast)

	reg.mu.Lock()
	reg.rooms[room.id] = room
	reg.mu.Unlock()

	reg.logger.Info("room created", "room", room.id, "name", cfg.Name,
		"blinds", fmt.Sprintf("%d/%d", cfg.Stakes.SmallBlind, cfg.Stakes.BigBlind))
	return room, nil
}

// Get looks up a room by id.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return room, nil
}

// Filter narrows a room listing. Zero values match everything.
type Filter struct {
	MinBigBlind int
	MaxBigBlind int
	OpenSeats   bool // Only rooms with at least one free seat
}

func (f Filter) match(s Summary) bool {
	if f.MinBigBlind > 0 && s.Stakes.BigBlind < f.MinBigBlind {
		return false
	}
	if f.MaxBigBlind > 0 && s.Stakes.BigBlind > f.MaxBigBlind {
		return false
	}
	if f.OpenSeats && s.Seated >= s.MaxSeats {
		return false
	}
	return true
}

// List returns a lazy, restartable sequence of room summaries matching
// the filter, ordered by id (and therefore by creation time).
func (reg *Registry) List(f Filter) iter.Seq[Summary] {
	return func(yield func(Summary) bool) {
		reg.mu.RLock()
		rooms := make([]*Room, 0, len(reg.rooms))
		for _, room := range reg.rooms {
			rooms = append(rooms, room)
		}
		reg.mu.RUnlock()
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].id < rooms[j].id })

		for _, room := range rooms {
			s := room.Summary()
			if !f.match(s) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Remove closes one room and drops it from the registry.
func (reg *Registry) Remove(ctx context.Context, id string) error {
	room, err := reg.Get(id)
	if err != nil {
		return err
	}
	if err := room.Close(ctx); err != nil {
		return err
	}
	reg.mu.Lock()
	delete(reg.rooms, id)
	reg.mu.Unlock()
	return nil
}

// Close tears down every room, cancelling timers and cashing out seats.
func (reg *Registry) Close(ctx context.Context) error {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for id, room := range reg.rooms {
		rooms = append(rooms, room)
		delete(reg.rooms, id)
	}
	reg.mu.Unlock()

	var firstErr error
	for _, room := range rooms {
		if err := room.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
