package types

import (
	"encoding/json"

	"github.com/raceline/typerace/text"
)

const (
	// client -> server
	MessageTypeTypeChar  = "type_char"
	MessageTypeStartGame = "start_game"
	MessageTypeResetGame = "reset_game"
	MessageTypePlayAgain = "play_again"
	MessageTypeLeaveRoom = "leave_room"
	MessageTypeKick      = "kick_player"

	// server -> client
	MessageTypeRoomState = "room_state"
	MessageTypeText      = "text"
	MessageTypeEvent     = "event"
	MessageTypeError     = "error"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// The different types of messages transferred from the client to here.

// TypeCharMessage carries one typed character.
type TypeCharMessage struct {
	GameId string `json:"game_id" mapstructure:"game_id"`
	Char   string `json:"char" mapstructure:"char"`
}

// StartGameMessage is sent by the room owner to start a race.
type StartGameMessage struct {
	DurationMs int64 `json:"duration_ms" mapstructure:"duration_ms"`
}

// KickMessage is sent by the room owner to remove a player.
type KickMessage struct {
	UserId string `json:"user_id" mapstructure:"user_id"`
}

// Messages going out to the clients.

// RoomState is the full projection of a room broadcast after every change.
type RoomState struct {
	Room    *Room             `json:"room"`
	Game    *Game             `json:"game,omitempty"`
	Players []*PlayerProgress `json:"players"`
}

// TextWindow is the per-player view of the race text around their cursor.
type TextWindow struct {
	CurrentChar string          `json:"current_char"`
	Element     text.Element    `json:"element"`
	Chunk       text.Chunk      `json:"chunk"`
	Progress    *PlayerProgress `json:"progress"`
}

type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewWireMessage(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{Event: event, Data: raw})
}
