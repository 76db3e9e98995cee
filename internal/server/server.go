// Package server is the event gateway: a WebSocket front door that
// translates the wire protocol into room and tournament operations and
// fans state deltas back out to subscribed clients. No game rules live
// here.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltops/cardroom/internal/room"
	"github.com/feltops/cardroom/internal/tournament"
)

// Server accepts WebSocket clients and routes room and tournament
// traffic between them and the core. It implements room.Broadcaster.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server

	rooms       *room.Registry
	tournaments *tournament.Manager
}

// NewServer creates a WebSocket server bound to addr. The room registry
// and tournament manager are attached afterwards; they need the server
// as their broadcaster.
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRooms attaches the room registry.
func (s *Server) SetRooms(reg *room.Registry) {
	s.rooms = reg
}

// SetTournaments attaches the tournament manager.
func (s *Server) SetTournaments(m *tournament.Manager) {
	s.tournaments = m
}

// Start serves WebSocket and health endpoints until Stop is called.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	s.logger.Info("starting WebSocket server", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and closes every client connection.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

// run handles connection lifecycle.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()
			if ok {
				s.dropSubscriptions(conn)
				_ = conn.Close()
			}
			s.logger.Info("client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// dropSubscriptions unobserves every room the client was watching. When
// this was the user's last connection their seats are marked away so the
// next deal skips them; the stack stays and the turn timer's forced fold
// covers the rest of a live hand.
func (s *Server) dropSubscriptions(conn *Connection) {
	userID := conn.UserID()
	if userID == "" || s.rooms == nil {
		return
	}
	gone := !s.userConnected(userID)
	for _, roomID := range conn.Rooms() {
		rm, err := s.rooms.Get(roomID)
		if err != nil {
			continue
		}
		_ = rm.Unobserve(userID)
		if gone {
			// Observers are not seated; the room rejects those quietly.
			_ = rm.SetAway(userID, true)
		}
	}
}

// userConnected reports whether the user still has a live connection.
func (s *Server) userConnected(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.UserID() == userID {
			return true
		}
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s, s.logger)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Broadcast delivers a room event to every client watching that room.
// Part of the room.Broadcaster contract; it must not block, so slow
// clients are disconnected by their own send buffer.
func (s *Server) Broadcast(roomID, event string, payload any) {
	msg, err := NewMessage(MessageType(event), payload)
	if err != nil {
		s.logger.Error("failed to encode broadcast", "event", event, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.InRoom(roomID) {
			if err := conn.SendMessage(msg); err == nil {
				count++
			}
		}
	}
	s.logger.Debug("broadcast", "room", roomID, "type", event, "recipients", count)
}

// Send delivers an event to a single user. Hole cards travel only
// through here.
func (s *Server) Send(userID, event string, payload any) {
	msg, err := NewMessage(MessageType(event), payload)
	if err != nil {
		s.logger.Error("failed to encode message", "event", event, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.UserID() == userID {
			_ = conn.SendMessage(msg)
		}
	}
}

// TournamentUpdated fans a tournament snapshot out to every
// authenticated client. Wired as the manager's notify hook.
func (s *Server) TournamentUpdated(snap tournament.Snapshot) {
	msg, err := NewMessage(MessageTypeTournamentUpdated, snap)
	if err != nil {
		s.logger.Error("failed to encode tournament update", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.UserID() != "" {
			_ = conn.SendMessage(msg)
		}
	}
}

// RoomSummaries lists every open room.
func (s *Server) RoomSummaries() []room.Summary {
	var out []room.Summary
	if s.rooms == nil {
		return out
	}
	for summary := range s.rooms.List(room.Filter{}) {
		out = append(out, summary)
	}
	return out
}
