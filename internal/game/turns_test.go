package game

import (
	"errors"
	"testing"
)

func newTestScheduler(t *testing.T, owners ...int) *Scheduler {
	t.Helper()
	s, err := NewScheduler(owners, SchedulerConfig{Grant: 5, Cap: 20, StartingPoints: 10})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	return s
}

func TestSchedulerGrantsOnEntry(t *testing.T) {
	s := newTestScheduler(t, 1, 2, 3)
	if got := s.Points(1); got != 15 {
		t.Fatalf("first seat starts with %d points, want starting 10 plus grant 5", got)
	}
	if got := s.Points(2); got != 10 {
		t.Fatalf("waiting seat has %d points, want 10", got)
	}
	s.Advance()
	if got := s.Points(2); got != 15 {
		t.Fatalf("second seat after advance has %d points, want 15", got)
	}
}

func TestSchedulerGrantCap(t *testing.T) {
	s, err := NewScheduler([]int{1, 2}, SchedulerConfig{Grant: 5, Cap: 12, StartingPoints: 10})
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	if got := s.Points(1); got != 12 {
		t.Fatalf("grant should cap at 12, got %d", got)
	}
}

func TestSchedulerTurnIncrementsOnWrap(t *testing.T) {
	s := newTestScheduler(t, 1, 2, 3)
	if s.Turn() != 1 {
		t.Fatalf("turn starts at %d, want 1", s.Turn())
	}
	s.Advance()
	s.Advance()
	if s.Turn() != 1 {
		t.Fatalf("turn advanced mid-cycle to %d, want 1", s.Turn())
	}
	s.Advance()
	if s.Turn() != 2 {
		t.Fatalf("turn after wrap is %d, want 2", s.Turn())
	}
	if s.Active() != 1 {
		t.Fatalf("active after wrap is %d, want 1", s.Active())
	}
}

func TestSchedulerSpend(t *testing.T) {
	s := newTestScheduler(t, 1, 2)
	if err := s.Spend(1, 15); err != nil {
		t.Fatalf("spending full balance failed: %v", err)
	}
	if err := s.Spend(1, 1); !errors.Is(err, ErrInsufficientCommandPoints) {
		t.Fatalf("overspend = %v, want %v", err, ErrInsufficientCommandPoints)
	}
	if s.CanAfford(1, 1) {
		t.Fatal("CanAfford should be false at zero balance")
	}
}

func TestSchedulerEliminateSkipsSeat(t *testing.T) {
	s := newTestScheduler(t, 1, 2, 3)
	s.Eliminate(2)
	s.Advance()
	if s.Active() != 3 {
		t.Fatalf("advance skipped to %d, want 3", s.Active())
	}
	if got := len(s.Alive()); got != 2 {
		t.Fatalf("alive count = %d, want 2", got)
	}
}

func TestSchedulerEliminateActiveAdvances(t *testing.T) {
	s := newTestScheduler(t, 1, 2, 3)
	s.Eliminate(1)
	if s.Active() != 2 {
		t.Fatalf("eliminating the active seat should hand the turn to 2, got %d", s.Active())
	}
}

func TestSchedulerEliminateAll(t *testing.T) {
	s := newTestScheduler(t, 1, 2)
	s.Eliminate(1)
	s.Eliminate(2)
	if got := len(s.Alive()); got != 0 {
		t.Fatalf("alive count = %d, want 0", got)
	}
}
