package game

import (
	"encoding/json"
	"errors"
	"testing"
)

func twoSeats() []Seat {
	return []Seat{
		{Account: "alice", DisplayID: "Alice", Owner: 1},
		{Account: "bob", DisplayID: "Bob", Owner: 2},
	}
}

func newTestWargame(t *testing.T, cfg WarConfig, seats []Seat) *Wargame {
	t.Helper()
	w, err := NewWargame(cfg, seats)
	if err != nil {
		t.Fatalf("NewWargame failed: %v", err)
	}
	return w
}

func place(issuer, unit string, row, col int) Action {
	return Action{
		Issuer: issuer,
		Kind:   ActionPlace,
		Place:  &PlaceParams{PType: unit, Row: row, Col: col},
	}
}

func move(issuer string, fromRow, fromCol, toRow, toCol int) Action {
	return Action{
		Issuer: issuer,
		Kind:   ActionMove,
		Move:   &MoveParams{FromRow: fromRow, FromCol: fromCol, ToRow: toRow, ToCol: toCol},
	}
}

func skip(issuer string) Action {
	return Action{Issuer: issuer, Kind: ActionSkip}
}

func TestNewWargameSeedsHeadquarters(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	view := w.Snapshot("")
	if got := view.Board[0][0]; got != (CellView{1, int(UnitHeadquarters)}) {
		t.Fatalf("seat 1 corner = %v, want owner 1 headquarters", got)
	}
	if got := view.Board[8][8]; got != (CellView{2, int(UnitHeadquarters)}) {
		t.Fatalf("seat 2 corner = %v, want owner 2 headquarters", got)
	}
	if view.Turn.Active != "alice" {
		t.Fatalf("first turn belongs to %q, want alice", view.Turn.Active)
	}
}

func TestNewWargameSeatValidation(t *testing.T) {
	cases := []struct {
		name  string
		seats []Seat
	}{
		{name: "too few", seats: twoSeats()[:1]},
		{name: "too many", seats: []Seat{
			{Account: "a", Owner: 1}, {Account: "b", Owner: 2}, {Account: "c", Owner: 3},
			{Account: "d", Owner: 4}, {Account: "e", Owner: 5},
		}},
		{name: "duplicate account", seats: []Seat{
			{Account: "a", Owner: 1}, {Account: "a", Owner: 2},
		}},
		{name: "duplicate owner", seats: []Seat{
			{Account: "a", Owner: 1}, {Account: "b", Owner: 1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewWargame(DefaultWarConfig(), tc.seats); err == nil {
				t.Fatal("NewWargame accepted invalid seating")
			}
		})
	}
}

func TestMinimumBoardSize(t *testing.T) {
	cfg := DefaultWarConfig()
	cfg.Rows, cfg.Cols = 5, 5
	w := newTestWargame(t, cfg, twoSeats())
	view := w.Snapshot("")
	if got := view.Board[4][4]; got != (CellView{2, int(UnitHeadquarters)}) {
		t.Fatalf("seat 2 corner on 5x5 = %v, want owner 2 headquarters", got)
	}
	if err := w.Apply(place("alice", "infantry", 2, 2)); err != nil {
		t.Fatalf("placement on 5x5 board failed: %v", err)
	}
}

func TestApplyTurnOrder(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	if err := w.Apply(skip("bob")); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("out-of-turn action = %v, want %v", err, ErrNotYourTurn)
	}
	if err := w.Apply(skip("alice")); err != nil {
		t.Fatalf("active player skip failed: %v", err)
	}
	if active := w.Snapshot("").Turn.Active; active != "bob" {
		t.Fatalf("active after skip = %q, want bob", active)
	}
	if err := w.Apply(skip("mallory")); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("unseated issuer = %v, want %v", err, ErrUnknownPlayer)
	}
}

func TestApplyOneActionPerTurn(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	if err := w.Apply(place("alice", "infantry", 4, 4)); err != nil {
		t.Fatalf("first action failed: %v", err)
	}
	if err := w.Apply(place("alice", "infantry", 4, 5)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("second action in one turn = %v, want %v", err, ErrNotYourTurn)
	}
}

func TestApplyCommandPointAccounting(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	// Starting 10 plus the turn-entry grant of 5, minus infantry cost 3.
	if err := w.Apply(place("alice", "infantry", 4, 4)); err != nil {
		t.Fatalf("placement failed: %v", err)
	}
	view := w.Snapshot("alice")
	if got := view.Players["alice"].CommandPoints; got != 12 {
		t.Fatalf("alice has %d points, want 12", got)
	}
}

func TestApplyInsufficientCommandPoints(t *testing.T) {
	cfg := DefaultWarConfig()
	cfg.StartingPoints = 0
	cfg.Grant = 2
	w := newTestWargame(t, cfg, twoSeats())
	before := w.Sequence()
	err := w.Apply(place("alice", "tank", 4, 4))
	if !errors.Is(err, ErrInsufficientCommandPoints) {
		t.Fatalf("unaffordable placement = %v, want %v", err, ErrInsufficientCommandPoints)
	}
	if w.Sequence() != before {
		t.Fatal("failed action must not advance the sequence")
	}
	if active := w.Snapshot("").Turn.Active; active != "alice" {
		t.Fatalf("failed action must not end the turn, active = %q", active)
	}
}

func TestApplySequenceMonotonic(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	last := w.Sequence()
	actions := []Action{
		place("alice", "infantry", 4, 4),
		skip("bob"),
		move("alice", 4, 4, 4, 5),
	}
	for i, action := range actions {
		if err := w.Apply(action); err != nil {
			t.Fatalf("action %d failed: %v", i, err)
		}
		if got := w.Sequence(); got <= last {
			t.Fatalf("sequence %d after action %d, want above %d", got, i, last)
		}
		last = w.Sequence()
	}
}

func TestApplyDecodesRawEvents(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	raw := Action{
		Issuer: "alice",
		Name:   "place",
		Raw:    json.RawMessage(`{"ptype": "infantry", "row": 3, "col": 3}`),
	}
	if err := w.Apply(raw); err != nil {
		t.Fatalf("raw event failed: %v", err)
	}
	if got := w.Snapshot("").Board[3][3]; got != (CellView{1, int(UnitInfantry)}) {
		t.Fatalf("cell = %v, want alice infantry", got)
	}

	bad := Action{Issuer: "bob", Name: "cast_spell"}
	if err := w.Apply(bad); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("unknown event = %v, want %v", err, ErrUnknownEvent)
	}
}

func TestHeadquartersCannotBePlaced(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	if err := w.Apply(place("alice", "headquarters", 4, 4)); !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("placing headquarters = %v, want %v", err, ErrInvalidPlacement)
	}
}

func TestSnapshotMasking(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())

	view := w.Snapshot("alice")
	if got := view.Board[0][0]; got != (CellView{1, int(UnitHeadquarters)}) {
		t.Fatalf("own headquarters = %v, want visible", got)
	}
	// Bob's corner is far outside alice's sight; it must be
	// indistinguishable from empty ground.
	if got := view.Board[8][8]; got != (CellView{0, 0}) {
		t.Fatalf("enemy headquarters = %v, want masked [0,0]", got)
	}
	if got := view.Players["bob"].CommandPoints; got != 0 {
		t.Fatalf("bob's points leaked: %d", got)
	}
	if view.Players["bob"].Sight != nil {
		t.Fatal("bob's mask leaked into alice's view")
	}
	if view.Players["alice"].Sight == nil {
		t.Fatal("alice's own mask missing")
	}
	if got := view.Players["bob"].UnitCount; got != 1 {
		t.Fatalf("bob's unit count = %d, want 1; counts are public", got)
	}
}

func TestSnapshotAuthoritativeView(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	view := w.Snapshot("")
	if got := view.Board[8][8]; got != (CellView{2, int(UnitHeadquarters)}) {
		t.Fatalf("authoritative view masked a cell: %v", got)
	}
	if view.Players["bob"].CommandPoints == 0 {
		t.Fatal("authoritative view should include every balance")
	}
}

func TestHeadquartersCaptureEliminates(t *testing.T) {
	cfg := DefaultWarConfig()
	cfg.Rows, cfg.Cols = 5, 5
	w := newTestWargame(t, cfg, twoSeats())

	// Fighter reaches (4,4) from (0,4) in one move at Manhattan range 4.
	steps := []Action{
		place("alice", "fighter", 0, 4),
		skip("bob"),
		move("alice", 0, 4, 4, 4),
	}
	for i, action := range steps {
		if err := w.Apply(action); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	result, done := w.Terminal()
	if !done {
		t.Fatal("capturing the last headquarters should end the game")
	}
	if result.Winner != "alice" || result.Draw {
		t.Fatalf("result = %+v, want alice win", result)
	}

	view := w.Snapshot("")
	if view.Players["bob"].Alive {
		t.Fatal("bob should be eliminated")
	}
	if got := view.Players["bob"].UnitCount; got != 0 {
		t.Fatalf("bob keeps %d units after collapse, want 0", got)
	}
	// Captured structure belongs to alice now.
	if got := view.Board[4][4]; got != (CellView{1, int(UnitHeadquarters)}) {
		t.Fatalf("captured corner = %v, want alice headquarters", got)
	}

	if err := w.Apply(skip("alice")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("action after game over = %v, want %v", err, ErrGameOver)
	}
}

func TestForfeit(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	before := w.Sequence()
	if err := w.Forfeit("bob"); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}
	if w.Sequence() <= before {
		t.Fatal("forfeit must advance the sequence")
	}
	result, done := w.Terminal()
	if !done || result.Winner != "alice" {
		t.Fatalf("result = %+v done=%v, want alice win", result, done)
	}
	if err := w.Forfeit("mallory"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("forfeit by stranger = %v, want %v", err, ErrUnknownPlayer)
	}
}

func TestForfeitByActivePlayerHandsTurnOver(t *testing.T) {
	seats := []Seat{
		{Account: "alice", DisplayID: "Alice", Owner: 1},
		{Account: "bob", DisplayID: "Bob", Owner: 2},
		{Account: "carol", DisplayID: "Carol", Owner: 3},
	}
	w := newTestWargame(t, DefaultWarConfig(), seats)
	if err := w.Forfeit("alice"); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}
	if _, done := w.Terminal(); done {
		t.Fatal("two survivors should keep playing")
	}
	if active := w.Snapshot("").Turn.Active; active != "bob" {
		t.Fatalf("active after forfeit = %q, want bob", active)
	}
	if err := w.Apply(skip("bob")); err != nil {
		t.Fatalf("bob cannot act after alice's forfeit: %v", err)
	}
	if active := w.Snapshot("").Turn.Active; active != "carol" {
		t.Fatalf("active after bob = %q, want carol", active)
	}
}

func TestForfeitLeavesSurvivorWinner(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	if err := w.Forfeit("alice"); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}
	result, done := w.Terminal()
	if !done || result.Winner != "bob" {
		t.Fatalf("result = %+v done=%v, want bob win", result, done)
	}
	if err := w.Forfeit("bob"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("forfeit after game over = %v, want %v", err, ErrGameOver)
	}
}
