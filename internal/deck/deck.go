package deck

import (
	rand "math/rand/v2"

	"github.com/feltops/cardroom/internal/randutil"
)

// Deck represents a deck of playing cards. The RNG is injected so games
// can use a crypto-seeded source while tests replay fixed shuffles.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a shuffled 52-card deck using the provided RNG.
// A nil RNG gets a crypto-seeded source.
func New(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = randutil.NewCrypto()
	}
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	d.fill()
	d.shuffle()
	return d
}

// Rigged builds an unshuffled deck that deals the given cards in order.
// Test helper for deterministic showdowns.
func Rigged(cards ...Card) *Deck {
	return &Deck{cards: cards}
}

func (d *Deck) fill() {
	d.cards = d.cards[:0]
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
}

// shuffle performs a Fisher-Yates shuffle
func (d *Deck) shuffle() {
	if d.rng == nil {
		return
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card from the deck
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DrawN draws n cards from the deck. Fewer are returned if the deck runs out.
func (d *Deck) DrawN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		card, ok := d.Draw()
		if !ok {
			break
		}
		cards = append(cards, card)
	}
	return cards
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Reset restores the deck to a full 52 cards and reshuffles.
func (d *Deck) Reset() {
	d.fill()
	d.shuffle()
}
