package server

import (
	"encoding/json"
	"time"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth                 MessageType = "auth"
	MessageTypeListRooms            MessageType = "list-rooms"
	MessageTypeJoinRoom             MessageType = "join-room"
	MessageTypeLeaveRoom            MessageType = "leave-room"
	MessageTypeSitDown              MessageType = "sit-down"
	MessageTypeStandUp              MessageType = "stand-up"
	MessageTypePokerAction          MessageType = "poker-action"
	MessageTypeRegisterTournament   MessageType = "register-tournament"
	MessageTypeUnregisterTournament MessageType = "unregister-tournament"
	MessageTypeListTournaments      MessageType = "list-tournaments"

	// Server to client messages
	MessageTypeAuthResponse      MessageType = "auth-response"
	MessageTypeRoomList          MessageType = "room-list"
	MessageTypeRoomState         MessageType = "room-state"
	MessageTypeGameStateUpdated  MessageType = "game-state-updated"
	MessageTypePlayerSatDown     MessageType = "player-sat-down"
	MessageTypePlayerStoodUp     MessageType = "player-stood-up"
	MessageTypeGameStarted       MessageType = "game-started"
	MessageTypeHandEnded         MessageType = "hand-ended"
	MessageTypeHoleCards         MessageType = "hole-cards"
	MessageTypeTournamentList    MessageType = "tournament-list"
	MessageTypeTournamentUpdated MessageType = "tournament-updated"
	MessageTypeError             MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for every WebSocket frame in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage wraps a payload in an envelope stamped with the current time.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

type AuthData struct {
	UserID string `json:"userId"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

type SitDownData struct {
	RoomID string `json:"roomId"`
	Seat   int    `json:"seat"`
	BuyIn  int    `json:"buyIn"`
}

type StandUpData struct {
	RoomID string `json:"roomId"`
}

type PokerActionData struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type TournamentData struct {
	TournamentID string `json:"tournamentId"`
}

// Server → Client payloads

type AuthResponseData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
