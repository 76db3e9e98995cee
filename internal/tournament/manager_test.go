package tournament

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltops/cardroom/internal/ledger"
	"github.com/feltops/cardroom/internal/randutil"
)

func testConfig() Config {
	return Config{
		Name:          "nightly",
		BuyIn:         100,
		Fee:           10,
		StartingStack: 1500,
		MinPlayers:    2,
		MaxPlayers:    8,
		Levels: []BlindLevel{
			{SmallBlind: 10, BigBlind: 20, Duration: 10 * time.Minute},
			{SmallBlind: 20, BigBlind: 40, Duration: 10 * time.Minute},
			{SmallBlind: 50, BigBlind: 100, Duration: 10 * time.Minute},
		},
	}
}

func fundedLedger(t *testing.T, users ...string) *ledger.Mem {
	t.Helper()
	l := ledger.NewMem()
	for _, u := range users {
		require.NoError(t, l.Credit(context.Background(), u, 1000, "deposit"))
	}
	return l
}

func TestRegistrationDebitsAndAccumulatesPool(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger(t, "alice", "bob")
	m := NewManager(l)

	id, err := m.Create(testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Register(ctx, id, "alice"))
	require.NoError(t, m.Register(ctx, id, "bob"))

	balance, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(890), balance) // buy-in 100 plus fee 10

	snap, err := m.Get(id)
	require.NoError(t, err)
	// The fee is rake; only buy-ins reach the pool.
	assert.Equal(t, int64(200), snap.PrizePool)
	assert.Equal(t, Ready, snap.Status)
}

func TestRegistrationErrors(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger(t, "alice", "bob", "carol", "poor")
	m := NewManager(l)

	cfg := testConfig()
	cfg.MaxPlayers = 2
	id, err := m.Create(cfg)
	require.NoError(t, err)

	require.NoError(t, m.Register(ctx, id, "alice"))
	assert.ErrorIs(t, m.Register(ctx, id, "alice"), ErrAlreadyRegistered)

	require.NoError(t, l.Debit(ctx, "poor", 950, "spend"))
	assert.ErrorIs(t, m.Register(ctx, id, "poor"), ledger.ErrInsufficientBalance)

	require.NoError(t, m.Register(ctx, id, "bob"))
	assert.ErrorIs(t, m.Register(ctx, id, "carol"), ErrFull)

	_, err = m.Start(id)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Register(ctx, id, "carol"), ErrRegistrationClosed)
}

func TestRegistrationDeadline(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	l := fundedLedger(t, "alice")
	m := NewManager(l, WithClock(mock))

	cfg := testConfig()
	cfg.Deadline = mock.Now().Add(time.Hour)
	id, err := m.Create(cfg)
	require.NoError(t, err)

	mock.Advance(2 * time.Hour)
	assert.ErrorIs(t, m.Register(ctx, id, "alice"), ErrDeadlinePassed)
}

func TestUnregisterRefunds(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger(t, "alice", "bob")
	m := NewManager(l)

	id, err := m.Create(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Register(ctx, id, "alice"))
	require.NoError(t, m.Register(ctx, id, "bob"))

	require.NoError(t, m.Unregister(ctx, id, "alice"))
	assert.ErrorIs(t, m.Unregister(ctx, id, "alice"), ErrNotRegistered)

	balance, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	snap, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), snap.PrizePool)
	// Field dropped below the minimum, so the tournament is no longer ready.
	assert.Equal(t, Registration, snap.Status)
}

func TestStartRequiresReadyAndSingleElimination(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger(t, "alice", "bob")
	m := NewManager(l)

	id, err := m.Create(testConfig())
	require.NoError(t, err)
	_, err = m.Start(id)
	assert.ErrorIs(t, err, ErrNotReady)

	cfg := testConfig()
	cfg.Format = Swiss
	swiss, err := m.Create(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Register(ctx, swiss, "alice"))
	require.NoError(t, m.Register(ctx, swiss, "bob"))
	_, err = m.Start(swiss)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFivePlayerTournamentToCompletion(t *testing.T) {
	ctx := context.Background()
	users := []string{"a", "b", "c", "d", "e"}
	l := fundedLedger(t, users...)
	m := NewManager(l, WithRand(randutil.New(7)))

	id, err := m.Create(testConfig())
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, m.Register(ctx, id, u))
	}

	snap, err := m.Start(id)
	require.NoError(t, err)
	assert.Equal(t, Active, snap.Status)
	assert.Len(t, snap.Matches, 4) // five entrants, one bye

	// Play out the bracket, always advancing the first seated player.
	for rounds := 0; snap.Status == Active && rounds < 10; rounds++ {
		var advanced bool
		for _, mv := range snap.Matches {
			if mv.Status != MatchActive {
				continue
			}
			snap, err = m.AdvanceMatch(ctx, id, mv.ID, mv.Players[0], "")
			require.NoError(t, err)
			advanced = true
			break
		}
		require.True(t, advanced, "no playable match while tournament active")
	}
	require.Equal(t, Completed, snap.Status)

	winners := 0
	positions := map[int]string{}
	var champion string
	for _, p := range snap.Participants {
		require.NotZero(t, p.Position)
		require.NotContains(t, positions, p.Position)
		positions[p.Position] = p.UserID
		if p.Status == Winner {
			winners++
			champion = p.UserID
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, champion, positions[1])

	// Winner takes all: 5 buy-ins of 100 on top of 1000 minus the entry.
	balance, err := l.Balance(ctx, champion)
	require.NoError(t, err)
	assert.Equal(t, int64(1000-110+500), balance)
}

func TestAdvanceMatchValidation(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger(t, "a", "b")
	m := NewManager(l, WithRand(randutil.New(1)))

	id, err := m.Create(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Register(ctx, id, "a"))
	require.NoError(t, m.Register(ctx, id, "b"))
	snap, err := m.Start(id)
	require.NoError(t, err)

	final := snap.Matches[0]
	_, err = m.AdvanceMatch(ctx, id, final.ID, "zz", "")
	assert.ErrorIs(t, err, ErrInvalidWinner)

	_, err = m.AdvanceMatch(ctx, id, final.ID, "a", "")
	require.NoError(t, err)
	_, err = m.AdvanceMatch(ctx, id, final.ID, "b", "")
	assert.ErrorIs(t, err, ErrMatchNotFound) // completed tournaments take no results
}

func TestBlindLevelAdvancesOnSchedule(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	l := fundedLedger(t, "a", "b")
	m := NewManager(l, WithClock(mock), WithRand(randutil.New(1)))

	id, err := m.Create(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Register(ctx, id, "a"))
	require.NoError(t, m.Register(ctx, id, "b"))
	_, err = m.Start(id)
	require.NoError(t, err)

	snap, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Level)
	assert.Equal(t, 20, snap.Blinds.BigBlind)

	mock.Advance(10 * time.Minute).MustWait(ctx)
	snap, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, 40, snap.Blinds.BigBlind)

	mock.Advance(10 * time.Minute).MustWait(ctx)
	snap, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Level)

	// The schedule tops out at the last level.
	mock.Advance(10 * time.Minute)
	snap, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Level)
}

func TestPayoutTables(t *testing.T) {
	assert.Equal(t, []int64{1000}, payouts(WinnerTakesAll, 1000, 5))
	assert.Equal(t, []int64{500, 300, 200}, payouts(Top3, 1000, 10))
	assert.Equal(t, []int64{400, 250, 150, 120, 80}, payouts(Top5, 1000, 9))

	// Fewer finishers than the table pays: the surplus rolls to first.
	assert.Equal(t, []int64{70, 30}, payouts(Top3, 100, 2))

	// Proportional pays the top half by inverse position.
	got := payouts(Proportional, 1000, 6)
	assert.Equal(t, []int64{547, 272, 181}, got)
	var sum int64
	for _, a := range got {
		sum += a
	}
	assert.Equal(t, int64(1000), sum)

	assert.Nil(t, payouts(Top3, 0, 5))
}
