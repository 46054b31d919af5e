package game

import (
	"testing"
	"time"
)

func TestAIProposesPlacementFromEmptyStart(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	c := NewAIController(DefaultWarConfig(), DefaultAIBudget)

	action := c.Propose(w, "alice")
	if action.Kind != ActionPlace {
		t.Fatalf("opening proposal = %v, want a placement", action.Kind)
	}
	if action.Place.PType != "infantry" {
		t.Fatalf("opening placement buys %q, want the cheapest mobile unit", action.Place.PType)
	}
	if err := w.Apply(action); err != nil {
		t.Fatalf("proposed action was rejected: %v", err)
	}
}

func TestAIPrefersCapture(t *testing.T) {
	cfg := DefaultWarConfig()
	cfg.Rows, cfg.Cols = 5, 5
	w := newTestWargame(t, cfg, twoSeats())

	steps := []Action{
		place("alice", "tank", 2, 2),
		place("bob", "infantry", 2, 3),
	}
	for i, action := range steps {
		if err := w.Apply(action); err != nil {
			t.Fatalf("setup step %d failed: %v", i, err)
		}
	}

	c := NewAIController(cfg, DefaultAIBudget)
	action := c.Propose(w, "alice")
	if action.Kind != ActionMove {
		t.Fatalf("proposal = %v, want a capturing move", action.Kind)
	}
	if action.Move.ToRow != 2 || action.Move.ToCol != 3 {
		t.Fatalf("capture targets (%d,%d), want (2,3)", action.Move.ToRow, action.Move.ToCol)
	}
	if err := w.Apply(action); err != nil {
		t.Fatalf("proposed capture was rejected: %v", err)
	}
	if got := w.Snapshot("").Board[2][3]; got != (CellView{1, int(UnitTank)}) {
		t.Fatalf("contested cell = %v, want alice tank", got)
	}
}

func TestAINeverProposesLosingAttack(t *testing.T) {
	cfg := DefaultWarConfig()
	cfg.Rows, cfg.Cols = 5, 5
	w := newTestWargame(t, cfg, twoSeats())

	steps := []Action{
		place("alice", "infantry", 2, 2),
		place("bob", "tank", 2, 3),
	}
	for i, action := range steps {
		if err := w.Apply(action); err != nil {
			t.Fatalf("setup step %d failed: %v", i, err)
		}
	}

	c := NewAIController(cfg, DefaultAIBudget)
	action := c.Propose(w, "alice")
	if action.Kind == ActionMove && action.Move.ToRow == 2 && action.Move.ToCol == 3 {
		t.Fatal("proposed an attack the infantry cannot win")
	}
	if err := w.Apply(action); err != nil {
		t.Fatalf("proposed action was rejected: %v", err)
	}
}

func TestAIBudgetExhaustionDegradesToSkip(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	c := NewAIController(DefaultWarConfig(), time.Millisecond)
	// A clock that jumps far past the deadline on every read.
	base := time.Now()
	calls := 0
	c.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Hour)
	}

	action := c.Propose(w, "alice")
	if action.Kind != ActionSkip {
		t.Fatalf("over-budget proposal = %v, want skip", action.Kind)
	}
	if err := w.Apply(action); err != nil {
		t.Fatalf("skip was rejected: %v", err)
	}
}

func TestAIProposalForDeadSeat(t *testing.T) {
	w := newTestWargame(t, DefaultWarConfig(), twoSeats())
	if err := w.Forfeit("bob"); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}
	c := NewAIController(DefaultWarConfig(), DefaultAIBudget)
	if action := c.Propose(w, "bob"); action.Kind != ActionSkip {
		t.Fatalf("dead seat proposal = %v, want skip", action.Kind)
	}
}
