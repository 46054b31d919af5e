package game

import (
	"encoding/json"
	"fmt"
)

// CellView is the wire form of one cell: [owner, unitType]. Both are zero for
// empty cells and for cells outside the viewer's mask, so clients cannot
// distinguish hidden units from vacant ground.
type CellView [2]int

// TurnView is the wire form of the turn state.
type TurnView struct {
	Number uint64 `json:"number"`
	Active string `json:"active"`
}

// PlayerView is one roster entry. On the wire it is a fixed-index tuple
// consumed by renderers:
//
//	[0] display id
//	[1] seat number
//	[2] remaining command points (zeroed for everyone but the viewer)
//	[3] alive flag
//	[4] unit count
//	[5] host flag
//	[6] connected flag
//	[7] the viewer's own visibility mask, null for other players
//
// The index conventions are load-bearing; renderers address the tuple
// positionally.
type PlayerView struct {
	DisplayID     string
	Seat          int
	CommandPoints int
	Alive         bool
	UnitCount     int
	Host          bool
	Connected     bool
	Sight         [][]int
}

func (v PlayerView) MarshalJSON() ([]byte, error) {
	tuple := []any{
		v.DisplayID,
		v.Seat,
		v.CommandPoints,
		v.Alive,
		v.UnitCount,
		v.Host,
		v.Connected,
		v.Sight,
	}
	return json.Marshal(tuple)
}

func (v *PlayerView) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 8 {
		return fmt.Errorf("player tuple has %d elements, want 8", len(tuple))
	}
	fields := []any{
		&v.DisplayID, &v.Seat, &v.CommandPoints, &v.Alive,
		&v.UnitCount, &v.Host, &v.Connected, &v.Sight,
	}
	for i, raw := range tuple {
		if err := json.Unmarshal(raw, fields[i]); err != nil {
			return fmt.Errorf("player tuple index %d: %w", i, err)
		}
	}
	return nil
}

// StateView is a complete projection of one game state through a single
// player's visibility mask. Brokers transmit whole views rather than diffs;
// re-requesting a view without an intervening action yields a bit-identical
// payload, which is what reconnect resynchronization relies on.
type StateView struct {
	GameID   string                 `json:"game_id"`
	Board    [][]CellView           `json:"board"`
	Players  map[string]*PlayerView `json:"players"`
	Turn     TurnView               `json:"turn"`
	Sequence uint64                 `json:"sequence"`
	Result   *Result                `json:"result,omitempty"`
	Message  string                 `json:"message,omitempty"`
}
