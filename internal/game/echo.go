package game

import (
	"encoding/json"
	"fmt"
)

const EchoID = "echo"

// echoVariant is a minimal smoke-test game: any player may send test_input
// and everyone sees the echoed message. It exists to exercise the variant
// plumbing without board rules and has no turn order.
type echoVariant struct{}

func NewEchoVariant() Variant {
	return echoVariant{}
}

func (echoVariant) Info() Info {
	return Info{
		ID:          EchoID,
		Name:        "Echo",
		Description: "Connectivity smoke test: the server echoes player input to the room.",
		MinPlayers:  1,
		MaxPlayers:  4,
	}
}

func (echoVariant) New(seats []Seat) (Instance, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("echo needs at least one player")
	}
	g := &echoGame{
		seats: append([]Seat(nil), seats...),
		alive: make(map[string]bool, len(seats)),
		seq:   1,
	}
	for _, seat := range seats {
		g.alive[seat.Account] = true
	}
	return g, nil
}

type echoGame struct {
	seats  []Seat
	alive  map[string]bool
	last   string
	seq    uint64
	result *Result
}

type echoInput struct {
	Input string `json:"input"`
}

func (g *echoGame) Apply(action Action) error {
	if g.result != nil {
		return ErrGameOver
	}
	if !g.alive[action.Issuer] {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, action.Issuer)
	}
	if action.Name != "test_input" {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, action.Name)
	}
	var input echoInput
	if len(action.Raw) > 0 {
		if err := json.Unmarshal(action.Raw, &input); err != nil {
			return validationErrorf("%v", err)
		}
	}
	g.last = fmt.Sprintf("%s: %s", action.Issuer, input.Input)
	g.seq++
	return nil
}

func (g *echoGame) Forfeit(account string) error {
	if !g.alive[account] {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, account)
	}
	g.alive[account] = false
	remaining := 0
	for _, ok := range g.alive {
		if ok {
			remaining++
		}
	}
	if remaining == 0 {
		g.result = &Result{Draw: true}
	}
	g.seq++
	return nil
}

func (g *echoGame) Terminal() (Result, bool) {
	if g.result == nil {
		return Result{}, false
	}
	return *g.result, true
}

func (g *echoGame) Sequence() uint64 {
	return g.seq
}

func (g *echoGame) Snapshot(viewer string) *StateView {
	players := make(map[string]*PlayerView, len(g.seats))
	for _, seat := range g.seats {
		players[seat.Account] = &PlayerView{
			DisplayID: seat.DisplayID,
			Seat:      seat.Owner,
			Alive:     g.alive[seat.Account],
		}
	}
	view := &StateView{
		GameID:   EchoID,
		Players:  players,
		Sequence: g.seq,
		Message:  g.last,
	}
	if g.result != nil {
		result := *g.result
		view.Result = &result
	}
	return view
}
