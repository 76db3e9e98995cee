package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/feltops/cardroom/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client: an outbound buffer drained by
// the write pump, a read pump that dispatches inbound messages, and the
// set of rooms the client is watching.
type Connection struct {
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	userID    string
	rooms     map[string]struct{}
	closeOnce sync.Once
}

// NewConnection creates a connection wrapper around an upgraded socket.
func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		rooms:  make(map[string]struct{}),
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client. A full buffer means the
// client has stopped draining; the connection is dropped rather than
// letting one slow reader stall a room broadcast.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection", "user", c.UserID())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// UserID returns the authenticated user, or "" before auth.
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Connection) setUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// InRoom reports whether this client watches the given room.
func (c *Connection) InRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

func (c *Connection) joinRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = struct{}{}
}

func (c *Connection) leaveRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

// Rooms returns the rooms this client watches.
func (c *Connection) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}
		c.handleMessage(&msg)
	}
}

// writePump drains the send buffer and keeps the ping/pong heartbeat.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage translates one inbound message into a room or
// tournament operation. All game rules live behind those calls; this
// layer only parses, authorises and routes.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "user", c.UserID())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse auth data")
			return
		}
		c.handleAuth(data)
		return
	}

	userID := c.UserID()
	if userID == "" {
		c.sendError("not-authenticated", "must authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeListRooms:
		c.handleListRooms()

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse join-room data")
			return
		}
		c.handleJoinRoom(userID, data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse leave-room data")
			return
		}
		c.handleLeaveRoom(userID, data)

	case MessageTypeSitDown:
		var data SitDownData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse sit-down data")
			return
		}
		c.handleSitDown(userID, data)

	case MessageTypeStandUp:
		var data StandUpData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse stand-up data")
			return
		}
		c.handleStandUp(userID, data)

	case MessageTypePokerAction:
		var data PokerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse poker-action data")
			return
		}
		c.handlePokerAction(userID, data)

	case MessageTypeRegisterTournament, MessageTypeUnregisterTournament:
		var data TournamentData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid-message", "failed to parse tournament data")
			return
		}
		c.handleTournament(userID, msg.Type, data)

	case MessageTypeListTournaments:
		c.handleListTournaments()

	default:
		c.sendError("unknown-message-type", "unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(errorMsg)
}

// sendOpError maps a room/tournament error to its wire code.
func (c *Connection) sendOpError(err error) {
	c.sendError(errorCode(err), err.Error())
}

func (c *Connection) handleAuth(data AuthData) {
	if data.UserID == "" {
		c.sendError("invalid-auth", "user id required")
		return
	}
	c.setUserID(data.UserID)
	c.logger.Info("authenticated", "user", data.UserID)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success: true,
		UserID:  data.UserID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListRooms() {
	summaries := c.server.RoomSummaries()
	response, _ := NewMessage(MessageTypeRoomList, map[string]any{"rooms": summaries})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinRoom(userID string, data JoinRoomData) {
	rm, err := c.server.rooms.Get(data.RoomID)
	if err != nil {
		c.sendOpError(err)
		return
	}
	// Subscribe before observing so the room-state snapshot and every
	// following delta both arrive.
	c.joinRoom(data.RoomID)
	if err := rm.Observe(userID); err != nil {
		c.leaveRoom(data.RoomID)
		c.sendOpError(err)
		return
	}
	// A returning player with a seat comes back from away.
	_ = rm.SetAway(userID, false)
}

func (c *Connection) handleLeaveRoom(userID string, data LeaveRoomData) {
	c.leaveRoom(data.RoomID)
	if rm, err := c.server.rooms.Get(data.RoomID); err == nil {
		_ = rm.Unobserve(userID)
	}
}

func (c *Connection) handleSitDown(userID string, data SitDownData) {
	rm, err := c.server.rooms.Get(data.RoomID)
	if err != nil {
		c.sendOpError(err)
		return
	}
	c.joinRoom(data.RoomID)
	if err := rm.Sit(c.ctx, userID, data.Seat, data.BuyIn); err != nil {
		c.sendOpError(err)
	}
}

func (c *Connection) handleStandUp(userID string, data StandUpData) {
	rm, err := c.server.rooms.Get(data.RoomID)
	if err != nil {
		c.sendOpError(err)
		return
	}
	if _, err := rm.Stand(c.ctx, userID); err != nil {
		c.sendOpError(err)
	}
}

func (c *Connection) handlePokerAction(userID string, data PokerActionData) {
	rm, err := c.server.rooms.Get(data.RoomID)
	if err != nil {
		c.sendOpError(err)
		return
	}
	action, ok := game.ParseAction(data.Action)
	if !ok {
		c.sendError("invalid-action", "unknown action: "+data.Action)
		return
	}
	if err := rm.Act(userID, action, data.Amount); err != nil {
		c.sendOpError(err)
	}
}

func (c *Connection) handleTournament(userID string, msgType MessageType, data TournamentData) {
	id, err := uuid.Parse(data.TournamentID)
	if err != nil {
		c.sendError("invalid-message", "malformed tournament id")
		return
	}
	switch msgType {
	case MessageTypeRegisterTournament:
		err = c.server.tournaments.Register(c.ctx, id, userID)
	case MessageTypeUnregisterTournament:
		err = c.server.tournaments.Unregister(c.ctx, id, userID)
	}
	if err != nil {
		c.sendOpError(err)
	}
}

func (c *Connection) handleListTournaments() {
	snaps := c.server.tournaments.List()
	response, _ := NewMessage(MessageTypeTournamentList, map[string]any{"tournaments": snaps})
	_ = c.SendMessage(response)
}
