package game

// Phase represents the stage of a hand. Phases only ever advance.
type Phase int

const (
	Waiting Phase = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
)

func (p Phase) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}[p]
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "raise", "allin"}[a]
}

// ParseAction converts the wire form of an action back to its enum value.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "raise", "bet":
		return Raise, true
	case "allin", "all-in":
		return AllIn, true
	default:
		return 0, false
	}
}

// Betting encapsulates the state of a single betting round.
type Betting struct {
	CurrentBet int    // Highest total bet this round
	LastRaiser int    // Player index of the last aggressor, -1 if none
	BBActed    bool   // Whether the big blind has used their preflop option
	Acted      []bool // Per player index, acted since the last raise
	bigBlind   int
}

// NewBetting creates betting state for a round.
func NewBetting(numPlayers, bigBlind int) *Betting {
	return &Betting{
		LastRaiser: -1,
		Acted:      make([]bool, numPlayers),
		bigBlind:   bigBlind,
	}
}

// MinRaiseTo returns the smallest legal total raise amount. A raise must
// reach at least twice the current bet to call; the opening bet of a round
// must be at least the big blind.
func (b *Betting) MinRaiseTo() int {
	if b.CurrentBet == 0 {
		return b.bigBlind
	}
	return b.CurrentBet * 2
}

// Reset prepares the betting state for a new street.
func (b *Betting) Reset() {
	b.CurrentBet = 0
	b.LastRaiser = -1
	for i := range b.Acted {
		b.Acted[i] = false
	}
	// BBActed persists: the big blind option only exists preflop.
}

// reopen clears acted flags after a raise so everyone must act again.
func (b *Betting) reopen(raiser int) {
	for i := range b.Acted {
		b.Acted[i] = false
	}
	b.Acted[raiser] = true
	b.LastRaiser = raiser
}

// complete reports whether the betting round is finished: every live
// player has acted since the last raise and every live player who is not
// all-in has matched the current bet. Preflop the big blind keeps their
// option even when all bets already match.
func (b *Betting) complete(players []*HandPlayer, phase Phase, bbIndex int) bool {
	live := 0
	canAct := 0
	for _, p := range players {
		if p.Folded {
			continue
		}
		live++
		if !p.AllIn {
			canAct++
		}
	}
	if live <= 1 || canAct == 0 {
		return true
	}

	for i, p := range players {
		if p.Folded || p.AllIn {
			continue
		}
		if p.Bet != b.CurrentBet {
			return false
		}
		if !b.Acted[i] {
			return false
		}
	}

	if phase == PreFlop && b.LastRaiser == -1 && bbIndex >= 0 {
		bb := players[bbIndex]
		if !bb.Folded && !bb.AllIn && !b.BBActed {
			return false
		}
	}

	return true
}
