package tournament

// PrizeStructure names a payout table.
type PrizeStructure string

const (
	WinnerTakesAll PrizeStructure = "winner-takes-all"
	Top3           PrizeStructure = "top-3"
	Top5           PrizeStructure = "top-5"
	Top10          PrizeStructure = "top-10"
	Proportional   PrizeStructure = "proportional"
)

// percentTables maps structures to per-position payout percentages,
// champion first.
var percentTables = map[PrizeStructure][]int64{
	WinnerTakesAll: {100},
	Top3:           {50, 30, 20},
	Top5:           {40, 25, 15, 12, 8},
	Top10:          {30, 20, 13, 10, 8, 6, 5, 4, 2, 2},
}

// payouts computes the prize for each paid finishing position, champion
// first. Amounts floor-divide; any remainder goes to the champion so the
// pool is always paid out in full.
func payouts(structure PrizeStructure, pool int64, fieldSize int) []int64 {
	if pool <= 0 || fieldSize == 0 {
		return nil
	}

	var amounts []int64
	if table, ok := percentTables[structure]; ok {
		places := min(len(table), fieldSize)
		amounts = make([]int64, places)
		for i := 0; i < places; i++ {
			amounts[i] = pool * table[i] / 100
		}
	} else {
		// Proportional: the top half of the field is paid, weighted by
		// the inverse of finishing position.
		places := max(fieldSize/2, 1)
		var harmonic float64
		for pos := 1; pos <= places; pos++ {
			harmonic += 1.0 / float64(pos)
		}
		amounts = make([]int64, places)
		for pos := 1; pos <= places; pos++ {
			amounts[pos-1] = int64(float64(pool) / float64(pos) / harmonic)
		}
	}

	var paid int64
	for _, a := range amounts {
		paid += a
	}
	amounts[0] += pool - paid
	return amounts
}
