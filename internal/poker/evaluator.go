// Package poker ranks poker hands for showdown resolution.
package poker

import (
	"sort"

	"github.com/feltops/cardroom/internal/deck"
)

// Category enumerates poker hand categories from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a human-readable category description.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank encodes the strength of a best-of-five hand. Higher values are
// stronger. The category occupies the top bits and five 4-bit tiebreak
// values (card ranks 2-14, most significant first) fill the rest, so plain
// integer comparison orders hands exactly as poker does.
type HandRank uint32

// Category returns the hand category encoded in the rank.
func (hr HandRank) Category() Category {
	return Category(hr >> 20)
}

// Beats reports whether hr is strictly stronger than other.
func (hr HandRank) Beats(other HandRank) bool {
	return hr > other
}

func encode(cat Category, tiebreaks ...int) HandRank {
	r := HandRank(cat) << 20
	shift := 16
	for _, t := range tiebreaks {
		r |= HandRank(t) << shift
		shift -= 4
	}
	return r
}

// Evaluate returns the rank of the best five-card hand that can be made
// from the given cards. It accepts five to seven cards (hole + board).
func Evaluate(cards []deck.Card) HandRank {
	var suitCounts [4]int
	var rankCounts [15]int // indexed by value 2..14
	suitRanks := make([][]int, 4)

	for _, c := range cards {
		suitCounts[c.Suit]++
		rankCounts[c.Value()]++
		suitRanks[c.Suit] = append(suitRanks[c.Suit], c.Value())
	}

	// Flush and straight flush
	for suit, n := range suitCounts {
		if n < 5 {
			continue
		}
		ranks := suitRanks[suit]
		if high := straightHigh(ranks); high > 0 {
			return encode(StraightFlush, high)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
		return encode(Flush, ranks[0], ranks[1], ranks[2], ranks[3], ranks[4])
	}

	// Group ranks by multiplicity, highest rank first within each group.
	var quads, trips, pairs, singles []int
	for v := 14; v >= 2; v-- {
		switch rankCounts[v] {
		case 4:
			quads = append(quads, v)
		case 3:
			trips = append(trips, v)
		case 2:
			pairs = append(pairs, v)
		case 1:
			singles = append(singles, v)
		}
	}

	if len(quads) > 0 {
		kicker := bestExcluding(rankCounts, quads[0])
		return encode(FourOfAKind, quads[0], kicker)
	}

	if len(trips) > 0 && (len(trips) > 1 || len(pairs) > 0) {
		pair := 0
		if len(trips) > 1 {
			pair = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > pair {
			pair = pairs[0]
		}
		return encode(FullHouse, trips[0], pair)
	}

	var allRanks []int
	for v := 14; v >= 2; v-- {
		if rankCounts[v] > 0 {
			allRanks = append(allRanks, v)
		}
	}
	if high := straightHigh(allRanks); high > 0 {
		return encode(Straight, high)
	}

	if len(trips) > 0 {
		k := kickers(singles, 2)
		return encode(ThreeOfAKind, trips[0], k[0], k[1])
	}

	if len(pairs) > 1 {
		kicker := bestExcluding(rankCounts, pairs[0], pairs[1])
		return encode(TwoPair, pairs[0], pairs[1], kicker)
	}

	if len(pairs) == 1 {
		k := kickers(singles, 3)
		return encode(Pair, pairs[0], k[0], k[1], k[2])
	}

	k := kickers(singles, 5)
	return encode(HighCard, k[0], k[1], k[2], k[3], k[4])
}

// straightHigh returns the high card value of the best straight found in
// the given rank values, or 0 when there is none. Handles the wheel (A-5).
func straightHigh(values []int) int {
	var present [15]bool
	for _, v := range values {
		present[v] = true
	}
	for high := 14; high >= 6; high-- {
		run := true
		for v := high; v > high-5; v-- {
			if !present[v] {
				run = false
				break
			}
		}
		if run {
			return high
		}
	}
	// Wheel: A-2-3-4-5 plays as a five-high straight.
	if present[14] && present[2] && present[3] && present[4] && present[5] {
		return 5
	}
	return 0
}

// bestExcluding returns the highest rank value present outside the excluded set.
func bestExcluding(rankCounts [15]int, exclude ...int) int {
	for v := 14; v >= 2; v-- {
		if rankCounts[v] == 0 {
			continue
		}
		skip := false
		for _, ex := range exclude {
			if v == ex {
				skip = true
				break
			}
		}
		if !skip {
			return v
		}
	}
	return 0
}

// kickers returns the top n values from the sorted-descending singles list,
// zero-padded so callers can index without bounds checks.
func kickers(singles []int, n int) []int {
	out := make([]int, n)
	copy(out, singles)
	return out
}
