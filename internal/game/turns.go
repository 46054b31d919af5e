package game

import "fmt"

// Scheduler tracks whose turn it is, the monotonic turn counter, and the
// per-player command-point balance. Owners are seat numbers starting at 1,
// cycling in seat order and skipping eliminated players.
type Scheduler struct {
	order      []int
	active     int
	turn       uint64
	eliminated map[int]bool
	points     map[int]int
	grant      int
	cap        int
}

// SchedulerConfig carries the command-point economy tunables.
type SchedulerConfig struct {
	Grant          int
	Cap            int
	StartingPoints int
}

func NewScheduler(order []int, cfg SchedulerConfig) (*Scheduler, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("scheduler requires at least one seat")
	}
	points := make(map[int]int, len(order))
	for _, owner := range order {
		points[owner] = cfg.StartingPoints
	}
	s := &Scheduler{
		order:      append([]int(nil), order...),
		active:     0,
		turn:       1,
		eliminated: make(map[int]bool, len(order)),
		points:     points,
		grant:      cfg.Grant,
		cap:        cfg.Cap,
	}
	s.beginTurn()
	return s, nil
}

// Active returns the owner whose action is awaited.
func (s *Scheduler) Active() int {
	return s.order[s.active]
}

// Turn returns the monotonic turn counter, starting at 1 and incrementing
// each time the cycle wraps back to the first surviving seat.
func (s *Scheduler) Turn() uint64 {
	return s.turn
}

// Points returns the command-point balance for an owner.
func (s *Scheduler) Points(owner int) int {
	return s.points[owner]
}

// Spend deducts cost from the active player's balance.
func (s *Scheduler) Spend(owner, cost int) error {
	if cost < 0 {
		cost = 0
	}
	if s.points[owner] < cost {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCommandPoints, cost, s.points[owner])
	}
	s.points[owner] -= cost
	return nil
}

// CanAfford reports whether owner can pay cost without mutating anything.
func (s *Scheduler) CanAfford(owner, cost int) bool {
	return s.points[owner] >= cost
}

// Eliminated reports whether the owner has been knocked out.
func (s *Scheduler) Eliminated(owner int) bool {
	return s.eliminated[owner]
}

// Alive returns the surviving owners in seat order.
func (s *Scheduler) Alive() []int {
	alive := make([]int, 0, len(s.order))
	for _, owner := range s.order {
		if !s.eliminated[owner] {
			alive = append(alive, owner)
		}
	}
	return alive
}

// Advance moves to the next non-eliminated seat and applies the per-turn
// command-point grant. The turn counter increments when the cycle wraps.
func (s *Scheduler) Advance() {
	if len(s.Alive()) == 0 {
		return
	}
	for {
		s.active++
		if s.active >= len(s.order) {
			s.active = 0
			s.turn++
		}
		if !s.eliminated[s.order[s.active]] {
			break
		}
	}
	s.beginTurn()
}

// Eliminate removes an owner from the rotation. When the active player is
// eliminated the schedule advances to the next survivor.
func (s *Scheduler) Eliminate(owner int) {
	if s.eliminated[owner] {
		return
	}
	s.eliminated[owner] = true
	if len(s.Alive()) == 0 {
		return
	}
	if s.order[s.active] == owner {
		s.Advance()
	}
}

// beginTurn applies the fixed per-turn grant, capped at the maximum.
func (s *Scheduler) beginTurn() {
	owner := s.order[s.active]
	balance := s.points[owner] + s.grant
	if s.cap > 0 && balance > s.cap {
		balance = s.cap
	}
	s.points[owner] = balance
}
