package tournament

import "github.com/google/uuid"

// MatchStatus is the lifecycle of one bracket match.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

// FeedsInto is the forward link from a match to the downstream match
// slot its winner fills. Links only ever point to later rounds, so the
// bracket is acyclic by construction.
type FeedsInto struct {
	MatchID uuid.UUID
	Slot    int
}

// Match is one bracket node. Player slots hold user ids and stay empty
// until filled at construction or by an upstream winner.
type Match struct {
	ID      uuid.UUID
	Round   int
	Players [2]string
	Winner  string
	Status  MatchStatus
	Note    string
	Feeds   *FeedsInto // nil for the final
}

func (m *Match) slotOf(userID string) int {
	for i, p := range m.Players {
		if p != "" && p == userID {
			return i
		}
	}
	return -1
}

// Bracket is a single-elimination tree stored flat in creation order,
// round 1 first.
type Bracket struct {
	Matches []*Match
	Rounds  int

	byID map[uuid.UUID]*Match
}

// source is one input to a round: either a concrete player (a round-1
// entrant or a bye carried forward) or the eventual winner of a match.
type source struct {
	player string
	match  *Match
}

// newBracket pairs consecutive entrants into matches round by round. An
// odd entrant gets a bye: it is carried forward as an input to the next
// round rather than consuming a match, so N entrants always produce
// exactly N-1 matches.
func newBracket(entrants []string) *Bracket {
	b := &Bracket{byID: make(map[uuid.UUID]*Match)}

	sources := make([]source, len(entrants))
	for i, id := range entrants {
		sources[i] = source{player: id}
	}

	round := 1
	for len(sources) > 1 {
		next := make([]source, 0, (len(sources)+1)/2)
		for i := 0; i+1 < len(sources); i += 2 {
			m := &Match{ID: uuid.New(), Round: round, Status: MatchPending}
			for k, s := range sources[i : i+2] {
				if s.match != nil {
					s.match.Feeds = &FeedsInto{MatchID: m.ID, Slot: k}
				} else {
					m.Players[k] = s.player
				}
			}
			if m.Players[0] != "" && m.Players[1] != "" {
				m.Status = MatchActive
			}
			b.Matches = append(b.Matches, m)
			b.byID[m.ID] = m
			next = append(next, source{match: m})
		}
		if len(sources)%2 == 1 {
			next = append(next, sources[len(sources)-1])
		}
		sources = next
		round++
	}
	b.Rounds = round - 1
	return b
}

func (b *Bracket) match(id uuid.UUID) *Match {
	return b.byID[id]
}

// resolve completes a match and pushes the winner downstream. It returns
// the loser's user id ("" when the match was a walkover slot) and
// whether this was the final.
func (b *Bracket) resolve(m *Match, winnerID string) (loser string, final bool, err error) {
	if m.Status == MatchCompleted {
		return "", false, ErrMatchCompleted
	}
	slot := m.slotOf(winnerID)
	if slot < 0 || m.Players[0] == "" || m.Players[1] == "" {
		return "", false, ErrInvalidWinner
	}

	m.Winner = winnerID
	m.Status = MatchCompleted
	loser = m.Players[1-slot]

	if m.Feeds == nil {
		return loser, true, nil
	}

	target := b.byID[m.Feeds.MatchID]
	if target == nil {
		return "", false, ErrBracketCorrupt
	}
	if target.Players[m.Feeds.Slot] != "" {
		// A slot can only ever be written once.
		return "", false, ErrBracketCorrupt
	}
	target.Players[m.Feeds.Slot] = winnerID
	if target.Players[0] != "" && target.Players[1] != "" {
		target.Status = MatchActive
	}
	return loser, false, nil
}

// views renders the bracket for the wire.
func (b *Bracket) views() []MatchView {
	out := make([]MatchView, len(b.Matches))
	for i, m := range b.Matches {
		out[i] = MatchView{
			ID:      m.ID,
			Round:   m.Round,
			Players: m.Players,
			Winner:  m.Winner,
			Status:  m.Status,
		}
	}
	return out
}
