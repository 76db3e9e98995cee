package tournament

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFivePlayerBracketShape(t *testing.T) {
	b := newBracket([]string{"a", "b", "c", "d", "e"})

	// Round 1: two matches plus a bye for the odd entrant.
	require.Len(t, b.Matches, 4)
	assert.Equal(t, 3, b.Rounds)

	m1, m2, m3, final := b.Matches[0], b.Matches[1], b.Matches[2], b.Matches[3]
	assert.Equal(t, [2]string{"a", "b"}, m1.Players)
	assert.Equal(t, [2]string{"c", "d"}, m2.Players)
	assert.Equal(t, MatchActive, m1.Status)
	assert.Equal(t, MatchActive, m2.Status)

	// The bye skips round 2 entirely and waits in the final.
	assert.Equal(t, MatchPending, m3.Status)
	assert.Equal(t, "e", final.Players[1])
	assert.Equal(t, MatchPending, final.Status)

	// Feeds-into links point strictly forward.
	require.NotNil(t, m1.Feeds)
	assert.Equal(t, m3.ID, m1.Feeds.MatchID)
	assert.Equal(t, 0, m1.Feeds.Slot)
	assert.Equal(t, m3.ID, m2.Feeds.MatchID)
	assert.Equal(t, 1, m2.Feeds.Slot)
	assert.Equal(t, final.ID, m3.Feeds.MatchID)
	assert.Nil(t, final.Feeds)
}

func TestFivePlayerBracketResolution(t *testing.T) {
	b := newBracket([]string{"a", "b", "c", "d", "e"})
	m1, m2, m3, final := b.Matches[0], b.Matches[1], b.Matches[2], b.Matches[3]

	_, done, err := b.resolve(m1, "a")
	require.NoError(t, err)
	assert.False(t, done)

	loser, done, err := b.resolve(m2, "c")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "d", loser)

	// Both round-1 winners landed in the round-2 match.
	assert.Equal(t, [2]string{"a", "c"}, m3.Players)
	assert.Equal(t, MatchActive, m3.Status)

	_, done, err = b.resolve(m3, "c")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, [2]string{"c", "e"}, final.Players)

	loser, done, err = b.resolve(final, "e")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "c", loser)
	assert.Equal(t, "e", final.Winner)
}

func TestBracketAlwaysHasNMinusOneMatches(t *testing.T) {
	for n := 2; n <= 16; n++ {
		t.Run(fmt.Sprintf("%d_players", n), func(t *testing.T) {
			entrants := make([]string, n)
			for i := range entrants {
				entrants[i] = fmt.Sprintf("p%d", i)
			}
			b := newBracket(entrants)
			assert.Len(t, b.Matches, n-1)
		})
	}
}

func TestResolveValidation(t *testing.T) {
	b := newBracket([]string{"a", "b", "c"})
	m1, final := b.Matches[0], b.Matches[1]

	// Winner must be seated in the match.
	_, _, err := b.resolve(m1, "zz")
	assert.ErrorIs(t, err, ErrInvalidWinner)

	// A match with an open slot cannot resolve.
	_, _, err = b.resolve(final, "c")
	assert.ErrorIs(t, err, ErrInvalidWinner)

	_, _, err = b.resolve(m1, "a")
	require.NoError(t, err)
	_, _, err = b.resolve(m1, "b")
	assert.ErrorIs(t, err, ErrMatchCompleted)
}
