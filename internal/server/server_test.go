package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltops/cardroom/internal/ledger"
	"github.com/feltops/cardroom/internal/randutil"
	"github.com/feltops/cardroom/internal/room"
	"github.com/feltops/cardroom/internal/tournament"
)

type testEnv struct {
	server *Server
	rooms  *room.Registry
	ledger *ledger.Mem
	url    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.New(io.Discard)

	env := &testEnv{ledger: ledger.NewMem()}
	env.server = NewServer("unused", logger)
	env.rooms = room.NewRegistry(env.ledger,
		room.WithBroadcaster(env.server),
		room.WithRand(randutil.New(11)),
		room.WithLogger(logger),
	)
	env.server.SetRooms(env.rooms)
	env.server.SetTournaments(tournament.NewManager(env.ledger,
		tournament.WithNotify(env.server.TournamentUpdated),
		tournament.WithLogger(logger),
	))

	go env.server.run()

	ts := httptest.NewServer(http.HandlerFunc(env.server.handleWebSocket))
	env.url = "ws" + strings.TrimPrefix(ts.URL, "http")
	t.Cleanup(func() {
		_ = env.server.Stop(context.Background())
		ts.Close()
	})

	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, env.ledger.Credit(context.Background(), u, 5000, "deposit"))
	}
	return env
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, env *testEnv) *testClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(env.url+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(msgType MessageType, payload any) {
	c.t.Helper()
	msg, err := NewMessage(msgType, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

// expect reads frames until one of the wanted type arrives. Anything
// else is discarded, since broadcasts interleave with direct replies.
func (c *testClient) expect(msgType MessageType) *Message {
	c.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg Message
		require.NoError(c.t, c.conn.ReadJSON(&msg))
		if msg.Type == msgType {
			return &msg
		}
	}
	c.t.Fatalf("timed out waiting for %s", msgType)
	return nil
}

func (c *testClient) auth(userID string) {
	c.t.Helper()
	c.send(MessageTypeAuth, AuthData{UserID: userID})
	msg := c.expect(MessageTypeAuthResponse)
	var resp AuthResponseData
	require.NoError(c.t, json.Unmarshal(msg.Data, &resp))
	require.True(c.t, resp.Success)
}

func roomConfig() room.Config {
	return room.Config{
		Name: "test table",
		Stakes: room.Stakes{
			SmallBlind: 10, BigBlind: 20, MinBuyIn: 100, MaxBuyIn: 2000,
		},
		MaxSeats: 6,
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	client := dial(t, env)

	client.send(MessageTypeListRooms, struct{}{})
	msg := client.expect(MessageTypeError)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "not-authenticated", errData.Code)
}

func TestJoinUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	client := dial(t, env)
	client.auth("alice")

	client.send(MessageTypeJoinRoom, JoinRoomData{RoomID: "does-not-exist"})
	msg := client.expect(MessageTypeError)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "room-not-found", errData.Code)
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.rooms.Create(roomConfig())
	require.NoError(t, err)

	client := dial(t, env)
	client.auth("alice")
	client.send(MessageTypeListRooms, struct{}{})

	msg := client.expect(MessageTypeRoomList)
	var data struct {
		Rooms []room.Summary `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	require.Len(t, data.Rooms, 1)
	assert.Equal(t, "test table", data.Rooms[0].Name)
	assert.Equal(t, 20, data.Rooms[0].Stakes.BigBlind)
}

func TestJoinRoomSendsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	rm, err := env.rooms.Create(roomConfig())
	require.NoError(t, err)

	client := dial(t, env)
	client.auth("alice")
	client.send(MessageTypeJoinRoom, JoinRoomData{RoomID: rm.ID()})

	msg := client.expect(MessageTypeRoomState)
	var snap room.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, rm.ID(), snap.ID)
	assert.Empty(t, snap.Seats)
}

func TestSitDownDealAndPrivacy(t *testing.T) {
	env := newTestEnv(t)
	rm, err := env.rooms.Create(roomConfig())
	require.NoError(t, err)

	alice := dial(t, env)
	alice.auth("alice")
	alice.send(MessageTypeJoinRoom, JoinRoomData{RoomID: rm.ID()})
	alice.expect(MessageTypeRoomState)

	alice.send(MessageTypeSitDown, SitDownData{RoomID: rm.ID(), Seat: 0, BuyIn: 1000})
	alice.expect(MessageTypePlayerSatDown)

	bob := dial(t, env)
	bob.auth("bob")
	bob.send(MessageTypeSitDown, SitDownData{RoomID: rm.ID(), Seat: 1, BuyIn: 1000})

	// Two players seated: the hand starts and hole cards go out.
	started := alice.expect(MessageTypeGameStarted)
	var snap room.Snapshot
	require.NoError(t, json.Unmarshal(started.Data, &snap))
	require.NotNil(t, snap.Hand)
	assert.Equal(t, 30, snap.Hand.Pot)

	deal := alice.expect(MessageTypeHoleCards)
	var dealData room.Deal
	require.NoError(t, json.Unmarshal(deal.Data, &dealData))
	assert.Equal(t, 0, dealData.Seat)
	assert.Len(t, dealData.Hole, 2)

	bobDeal := bob.expect(MessageTypeHoleCards)
	require.NoError(t, json.Unmarshal(bobDeal.Data, &dealData))
	// Bob only ever sees his own seat's cards.
	assert.Equal(t, 1, dealData.Seat)

	// The public snapshot never carries hole cards.
	assert.NotContains(t, string(started.Data), "hole")
}

func TestSitDownErrors(t *testing.T) {
	env := newTestEnv(t)
	rm, err := env.rooms.Create(roomConfig())
	require.NoError(t, err)

	alice := dial(t, env)
	alice.auth("alice")
	alice.send(MessageTypeSitDown, SitDownData{RoomID: rm.ID(), Seat: 0, BuyIn: 50})

	msg := alice.expect(MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "buy-in-out-of-range", errData.Code)
}

func TestPokerActionFlow(t *testing.T) {
	env := newTestEnv(t)
	rm, err := env.rooms.Create(roomConfig())
	require.NoError(t, err)

	alice := dial(t, env)
	alice.auth("alice")
	alice.send(MessageTypeSitDown, SitDownData{RoomID: rm.ID(), Seat: 0, BuyIn: 1000})

	bob := dial(t, env)
	bob.auth("bob")
	bob.send(MessageTypeSitDown, SitDownData{RoomID: rm.ID(), Seat: 1, BuyIn: 1000})
	bob.expect(MessageTypeGameStarted)

	// Bob tries to act out of turn; heads-up the button (alice) opens.
	bob.send(MessageTypePokerAction, PokerActionData{RoomID: rm.ID(), Action: "fold"})
	msg := bob.expect(MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "not-your-turn", errData.Code)

	alice.send(MessageTypePokerAction, PokerActionData{RoomID: rm.ID(), Action: "fold"})
	ended := bob.expect(MessageTypeHandEnded)
	assert.Contains(t, string(ended.Data), "bob")
}

func TestDisconnectMarksSeatAway(t *testing.T) {
	env := newTestEnv(t)
	rm, err := env.rooms.Create(roomConfig())
	require.NoError(t, err)

	alice := dial(t, env)
	alice.auth("alice")
	alice.send(MessageTypeSitDown, SitDownData{RoomID: rm.ID(), Seat: 0, BuyIn: 1000})
	alice.expect(MessageTypePlayerSatDown)

	// Dropping the last connection marks the seat away; the stack stays.
	require.NoError(t, alice.conn.Close())
	require.Eventually(t, func() bool {
		snap := rm.State()
		return len(snap.Seats) == 1 && snap.Seats[0].Status == room.SeatAway
	}, 5*time.Second, 10*time.Millisecond)

	// Rejoining the room brings the seat back.
	again := dial(t, env)
	again.auth("alice")
	again.send(MessageTypeJoinRoom, JoinRoomData{RoomID: rm.ID()})
	again.expect(MessageTypeRoomState)
	require.Eventually(t, func() bool {
		snap := rm.State()
		return len(snap.Seats) == 1 && snap.Seats[0].Status == room.SeatActive
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1000, rm.State().Seats[0].Chips)
}

func TestTournamentRegistrationOverWire(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.server.tournaments.Create(tournament.Config{
		Name: "nightly", BuyIn: 100, MinPlayers: 2, MaxPlayers: 8,
		Levels: []tournament.BlindLevel{{SmallBlind: 10, BigBlind: 20, Duration: 10 * time.Minute}},
	})
	require.NoError(t, err)

	alice := dial(t, env)
	alice.auth("alice")
	alice.send(MessageTypeRegisterTournament, TournamentData{TournamentID: id.String()})

	updated := alice.expect(MessageTypeTournamentUpdated)
	var snap tournament.Snapshot
	require.NoError(t, json.Unmarshal(updated.Data, &snap))
	assert.Equal(t, int64(100), snap.PrizePool)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "alice", snap.Participants[0].UserID)

	alice.send(MessageTypeListTournaments, struct{}{})
	listed := alice.expect(MessageTypeTournamentList)
	assert.Contains(t, string(listed.Data), "nightly")
}
