// Package tournament runs elimination tournaments: registration against
// the ledger, bracket construction and advancement, a blind-level clock
// and prize distribution when the final match resolves.
package tournament

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("tournament not found")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrFull               = errors.New("tournament is full")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrNotRegistered      = errors.New("not registered")
	ErrDeadlinePassed     = errors.New("registration deadline passed")
	ErrNotReady           = errors.New("tournament is not ready to start")
	ErrUnsupportedFormat  = errors.New("unsupported tournament format")
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchCompleted     = errors.New("match already completed")
	ErrInvalidWinner      = errors.New("winner is not a participant of the match")

	// ErrBracketCorrupt reports a double-write or slot conflict in the
	// bracket. The tournament halts; corruption is never auto-corrected.
	ErrBracketCorrupt = errors.New("bracket integrity violated")
)

// Format selects the pairing algorithm. Only single elimination is
// implemented; the other constants are recognised but rejected at start.
type Format string

const (
	SingleElimination Format = "single-elimination"
	DoubleElimination Format = "double-elimination"
	RoundRobin        Format = "round-robin"
	Swiss             Format = "swiss"
)

// Status is the tournament lifecycle stage.
type Status string

const (
	Registration Status = "registration"
	Ready        Status = "ready"
	Active       Status = "active"
	Completed    Status = "completed"
	Halted       Status = "halted"
)

// ParticipantStatus tracks one entrant through the bracket.
type ParticipantStatus string

const (
	Registered ParticipantStatus = "registered"
	Playing    ParticipantStatus = "active"
	Eliminated ParticipantStatus = "eliminated"
	Winner     ParticipantStatus = "winner"
)

// Participant is one registered entrant.
type Participant struct {
	UserID       string            `json:"user_id"`
	RegisteredAt time.Time         `json:"registered_at"`
	Status       ParticipantStatus `json:"status"`
	Position     int               `json:"position,omitempty"` // Final finishing position, 0 until eliminated or crowned
	Winnings     int64             `json:"winnings,omitempty"` // Prize paid out, 0 unless in the money
}

// BlindLevel is one step of the blind schedule.
type BlindLevel struct {
	SmallBlind int           `json:"small_blind"`
	BigBlind   int           `json:"big_blind"`
	Ante       int           `json:"ante,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Config describes a tournament to create.
type Config struct {
	Name          string
	Format        Format
	BuyIn         int64
	Fee           int64 // Rake, excluded from the prize pool
	StartingStack int
	MinPlayers    int
	MaxPlayers    int
	Prizes        PrizeStructure
	Levels        []BlindLevel
	Deadline      time.Time // Zero means no registration deadline
}

// Snapshot is the externally visible tournament state, safe to hand to
// the gateway after the internal locks are released.
type Snapshot struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PrizePool    int64         `json:"prize_pool"`
	Level        int           `json:"level"`
	Blinds       BlindLevel    `json:"blinds"`
	Participants []Participant `json:"participants"`
	Matches      []MatchView   `json:"matches,omitempty"`
}

// MatchView is the wire form of a bracket match.
type MatchView struct {
	ID      uuid.UUID   `json:"id"`
	Round   int         `json:"round"`
	Players [2]string   `json:"players"`
	Winner  string      `json:"winner,omitempty"`
	Status  MatchStatus `json:"status"`
}
