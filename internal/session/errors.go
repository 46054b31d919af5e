package session

import "errors"

// Session errors reject an event at the broker or registry boundary, before
// the game engine is invoked.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrAlreadyInRoom = errors.New("account already in a room")
	ErrNoActiveGame  = errors.New("no active game")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNotHost       = errors.New("only the host may do that")
	ErrGameRunning   = errors.New("game already in progress")
	ErrRoomBusy      = errors.New("room is busy, retry")
)
