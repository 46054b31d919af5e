package session

import (
	"encoding/json"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
)

// ClientEvent is the envelope for every inbound message on a player
// connection. The token has already been resolved to an account by the time
// an event reaches the session layer.
type ClientEvent struct {
	Type      string          `json:"type"`
	Token     string          `json:"token,omitempty"`
	RoomID    string          `json:"room_id,omitempty"`
	GameID    string          `json:"game_id,omitempty"`
	EventName string          `json:"event_name,omitempty"`
	EventData json.RawMessage `json:"event_data,omitempty"`
}

// Inbound event types.
const (
	EventCreateRoom = "create_room"
	EventJoinRoom   = "join_room"
	EventSelectGame = "select_game"
	EventAddBot     = "add_bot"
	EventStartGame  = "start_game"
	EventGameEvent  = "game_event"
	EventLeaveRoom  = "leave_room"
	EventResync     = "resync"
)

// RoomInfo is the lobby-facing description of a room.
type RoomInfo struct {
	ID           string   `json:"id"`
	Host         string   `json:"host"`
	Members      []string `json:"players"`
	SelectedGame string   `json:"game_selected,omitempty"`
	Started      bool     `json:"started"`
}

// Outbound messages. Every broadcast is a complete masked snapshot; clients
// never reconstruct state from diffs.

type roomUpdateMessage struct {
	Type string   `json:"type"`
	Room RoomInfo `json:"room"`
}

type gameStartedMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	GameID    string          `json:"game_id"`
	GameState *game.StateView `json:"game_state"`
}

type gameStateUpdatedMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	GameState *game.StateView `json:"game_state"`
}

// boardUpdateMessage and turnEndedMessage are finer-grained projections for
// specific renderers. Both are carved out of the same masked StateView that
// feeds game_state_updated, never computed independently.
type boardUpdateMessage struct {
	Type    string                      `json:"type"`
	Board   [][]game.CellView           `json:"board"`
	Players map[string]*game.PlayerView `json:"players"`
	Turn    game.TurnView               `json:"turn"`
}

type turnEndedMessage struct {
	Type    string                      `json:"type"`
	Turn    game.TurnView               `json:"turn"`
	Players map[string]*game.PlayerView `json:"players"`
}

type gameEventResultMessage struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
	Msg  string `json:"msg"`
}

type errorMessage struct {
	Type string `json:"type"`
	Op   string `json:"op,omitempty"`
	Msg  string `json:"msg"`
}

func newRoomUpdate(info RoomInfo) roomUpdateMessage {
	return roomUpdateMessage{Type: "room_update", Room: info}
}

func newGameStarted(roomID, gameID string, state *game.StateView) gameStartedMessage {
	return gameStartedMessage{Type: "game_started", RoomID: roomID, GameID: gameID, GameState: state}
}

func newGameStateUpdated(roomID string, state *game.StateView) gameStateUpdatedMessage {
	return gameStateUpdatedMessage{Type: "game_state_updated", RoomID: roomID, GameState: state}
}

func newBoardUpdate(state *game.StateView) boardUpdateMessage {
	return boardUpdateMessage{Type: "board_update", Board: state.Board, Players: state.Players, Turn: state.Turn}
}

func newTurnEnded(state *game.StateView) turnEndedMessage {
	return turnEndedMessage{Type: "turn_ended", Turn: state.Turn, Players: state.Players}
}

func ackOK(msg string) gameEventResultMessage {
	return gameEventResultMessage{Type: "game_event_result", OK: true, Msg: msg}
}

func ackFail(msg string) gameEventResultMessage {
	return gameEventResultMessage{Type: "game_event_result", OK: false, Msg: msg}
}

func newError(op, msg string) errorMessage {
	return errorMessage{Type: "error", Op: op, Msg: msg}
}

// ErrorPayload builds an error message for transports that need to report
// failures outside a room's scope, such as authentication and routing.
func ErrorPayload(op, msg string) any {
	return newError(op, msg)
}

// Conn is the outbound half of one player connection. Send must not block
// the caller on slow peers; implementations queue writes and drop the
// connection when the peer cannot keep up.
type Conn interface {
	Send(v any) error
	Close()
}
