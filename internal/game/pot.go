package game

import "sort"

// Pot is a main or side pot. Eligible holds the player indexes that can
// win it.
type Pot struct {
	Amount   int
	Eligible []int
}

// PotManager collects bets into pots and isolates side pots when all-in
// players have committed unequal amounts.
type PotManager struct {
	pots []Pot
}

// NewPotManager creates an empty pot manager.
func NewPotManager() *PotManager {
	return &PotManager{}
}

// Total returns the amount across all pots.
func (pm *PotManager) Total() int {
	total := 0
	for _, pot := range pm.pots {
		total += pot.Amount
	}
	return total
}

// Collect moves the players' current-round bets into the pots and
// recalculates the side-pot layering from their total contributions.
func (pm *PotManager) Collect(players []*HandPlayer) {
	for _, p := range players {
		p.Bet = 0
	}
	pm.rebuild(players)
}

// rebuild layers pots by all-in contribution levels. Each level up to an
// all-in player's total contribution forms a pot that only players who
// contributed at least that much (and have not folded) can win. Folded
// players' chips stay in whichever layer they reach.
func (pm *PotManager) rebuild(players []*HandPlayer) {
	levels := make(map[int]bool)
	for _, p := range players {
		if p.AllIn && p.TotalBet > 0 {
			levels[p.TotalBet] = true
		}
	}

	maxContribution := 0
	for _, p := range players {
		if p.TotalBet > maxContribution {
			maxContribution = p.TotalBet
		}
	}
	if maxContribution == 0 {
		pm.pots = nil
		return
	}
	levels[maxContribution] = true

	caps := make([]int, 0, len(levels))
	for level := range levels {
		caps = append(caps, level)
	}
	sort.Ints(caps)

	pm.pots = pm.pots[:0]
	previous := 0
	for _, level := range caps {
		pot := Pot{}
		for idx, p := range players {
			contribution := min(p.TotalBet, level) - previous
			if contribution > 0 {
				pot.Amount += contribution
			}
			if !p.Folded && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, idx)
			}
		}
		if pot.Amount > 0 {
			pm.pots = append(pm.pots, pot)
		}
		previous = level
	}
}

// Pots returns the current pot layering.
func (pm *PotManager) Pots() []Pot {
	return pm.pots
}

// Drain hands back the pot layering and empties the manager. Settlement
// uses it so that paid-out chips are not counted a second time.
func (pm *PotManager) Drain() []Pot {
	pots := pm.pots
	pm.pots = nil
	return pots
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
