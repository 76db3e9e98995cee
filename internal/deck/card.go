package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "s"
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	case Clubs:
		return "c"
	default:
		return "?"
	}
}

// Rank represents a card rank. Aces are high.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the compact text form of a card (e.g. "As", "Td")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Value returns the numeric rank value for comparison (2-14, aces high)
func (c Card) Value() int {
	return int(c.Rank)
}

// MarshalText encodes the card in its compact text form for wire messages.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a card from its compact text form.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse decodes a card from its compact text form (e.g. "As", "Td").
func Parse(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	var rank Rank
	switch s[0] {
	case '2', '3', '4', '5', '6', '7', '8', '9':
		rank = Rank(s[0] - '0')
	case 'T':
		rank = Ten
	case 'J':
		rank = Jack
	case 'Q':
		rank = Queen
	case 'K':
		rank = King
	case 'A':
		rank = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}

	var suit Suit
	switch s[1] {
	case 's':
		suit = Spades
	case 'h':
		suit = Hearts
	case 'd':
		suit = Diamonds
	case 'c':
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}

	return Card{Suit: suit, Rank: rank}, nil
}

// MustParse is Parse for test fixtures; it panics on malformed input.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}
