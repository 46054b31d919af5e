package game

import (
	"fmt"
	"time"
)

// AIController proposes one legal action for a computer-controlled seat. It
// reads the full authoritative state (server-side authority, not a
// fog-limited view) but routes every move through the same Apply entrypoint
// as human players; there is no privileged mutation path.
//
// The policy is deterministic and greedy, evaluated in row-major board order:
//  1. capture a reachable enemy cell it would win, preferring Headquarters,
//     then City, then the strongest defender;
//  2. advance the first mobile unit toward the nearest enemy structure;
//  3. place the cheapest affordable unit next to its own Headquarters;
//  4. skip.
//
// Decisions are bounded by Budget; exceeding it degrades to SkipTurn.
type AIController struct {
	cfg    WarConfig
	budget time.Duration
	now    func() time.Time
}

const DefaultAIBudget = 50 * time.Millisecond

func NewAIController(cfg WarConfig, budget time.Duration) *AIController {
	if budget <= 0 {
		budget = DefaultAIBudget
	}
	return &AIController{cfg: cfg.normalized(), budget: budget, now: time.Now}
}

type aiUnit struct {
	pos   Position
	unit  UnitType
	stats UnitStats
}

// Propose returns exactly one action for the account, falling back to
// SkipTurn when nothing beneficial (or legal) is available.
func (c *AIController) Propose(inst Instance, account string) Action {
	skip := Action{Issuer: account, Kind: ActionSkip, Name: string(ActionSkip)}
	if inst == nil {
		return skip
	}
	view := inst.Snapshot("")
	if view == nil || view.GameID != WargameID {
		return skip
	}
	me, ok := view.Players[account]
	if !ok || !me.Alive {
		return skip
	}
	deadline := c.now().Add(c.budget)

	var mine, enemies []aiUnit
	var myHQ *Position
	for r := range view.Board {
		for col := range view.Board[r] {
			cell := view.Board[r][col]
			owner, unit := cell[0], UnitType(cell[1])
			if unit == UnitEmpty {
				continue
			}
			entry := aiUnit{
				pos:   Position{Row: r, Col: col},
				unit:  unit,
				stats: c.cfg.Catalog.Stats(unit),
			}
			if owner == me.Seat {
				mine = append(mine, entry)
				if unit == UnitHeadquarters && myHQ == nil {
					hq := entry.pos
					myHQ = &hq
				}
			} else {
				enemies = append(enemies, entry)
			}
		}
	}

	if c.now().After(deadline) {
		return skip
	}
	if action, ok := c.proposeCapture(account, me, mine, enemies); ok {
		return action
	}
	if c.now().After(deadline) {
		return skip
	}
	if action, ok := c.proposeAdvance(account, me, view, mine, enemies); ok {
		return action
	}
	if c.now().After(deadline) {
		return skip
	}
	if action, ok := c.proposePlacement(account, me, view, myHQ); ok {
		return action
	}
	return skip
}

func (c *AIController) proposeCapture(account string, me *PlayerView, mine, enemies []aiUnit) (Action, bool) {
	if me.CommandPoints < c.cfg.MoveCost {
		return Action{}, false
	}
	bestScore := -1
	var best Action
	for _, unit := range mine {
		if unit.stats.Immobile {
			continue
		}
		for _, enemy := range enemies {
			if ManhattanDistance(unit.pos, enemy.pos) > unit.stats.MoveRange {
				continue
			}
			if unit.stats.Strength < enemy.stats.Strength {
				continue
			}
			score := enemy.stats.Strength
			switch enemy.unit {
			case UnitHeadquarters:
				score = 100
			case UnitCity:
				score = 50
			}
			if score > bestScore {
				bestScore = score
				best = moveAction(account, unit.pos, enemy.pos)
			}
		}
	}
	return best, bestScore >= 0
}

func (c *AIController) proposeAdvance(account string, me *PlayerView, view *StateView, mine, enemies []aiUnit) (Action, bool) {
	if me.CommandPoints < c.cfg.MoveCost || len(enemies) == 0 {
		return Action{}, false
	}
	target := enemies[0].pos
	targetRank := -1
	for _, enemy := range enemies {
		rank := 0
		switch enemy.unit {
		case UnitHeadquarters:
			rank = 2
		case UnitCity:
			rank = 1
		}
		if rank > targetRank {
			targetRank = rank
			target = enemy.pos
		}
	}

	for _, unit := range mine {
		if unit.stats.Immobile || unit.stats.MoveRange <= 0 {
			continue
		}
		current := ManhattanDistance(unit.pos, target)
		bestDist := current
		var bestPos Position
		found := false
		for dr := -unit.stats.MoveRange; dr <= unit.stats.MoveRange; dr++ {
			rem := unit.stats.MoveRange - abs(dr)
			for dc := -rem; dc <= rem; dc++ {
				dest := Position{Row: unit.pos.Row + dr, Col: unit.pos.Col + dc}
				if dest == unit.pos || !inView(view, dest) {
					continue
				}
				if view.Board[dest.Row][dest.Col][1] != int(UnitEmpty) {
					continue
				}
				if d := ManhattanDistance(dest, target); d < bestDist {
					bestDist = d
					bestPos = dest
					found = true
				}
			}
		}
		if found {
			return moveAction(account, unit.pos, bestPos), true
		}
	}
	return Action{}, false
}

func (c *AIController) proposePlacement(account string, me *PlayerView, view *StateView, myHQ *Position) (Action, bool) {
	if myHQ == nil {
		return Action{}, false
	}
	cheapest := UnitEmpty
	cheapestCost := 0
	for t := UnitType(1); t < unitTypeCount; t++ {
		stats := c.cfg.Catalog.Stats(t)
		if !stats.Placeable || stats.Immobile {
			continue
		}
		if stats.Cost > me.CommandPoints {
			continue
		}
		if cheapest == UnitEmpty || stats.Cost < cheapestCost {
			cheapest = t
			cheapestCost = stats.Cost
		}
	}
	if cheapest == UnitEmpty {
		return Action{}, false
	}
	neighbors := []Position{
		{Row: myHQ.Row - 1, Col: myHQ.Col},
		{Row: myHQ.Row + 1, Col: myHQ.Col},
		{Row: myHQ.Row, Col: myHQ.Col - 1},
		{Row: myHQ.Row, Col: myHQ.Col + 1},
	}
	for _, pos := range neighbors {
		if !inView(view, pos) {
			continue
		}
		if view.Board[pos.Row][pos.Col][1] != int(UnitEmpty) {
			continue
		}
		return Action{
			Issuer: account,
			Kind:   ActionPlace,
			Name:   string(ActionPlace),
			Place:  &PlaceParams{PType: cheapest.String(), Row: pos.Row, Col: pos.Col},
		}, true
	}
	return Action{}, false
}

func moveAction(account string, from, to Position) Action {
	return Action{
		Issuer: account,
		Kind:   ActionMove,
		Name:   string(ActionMove),
		Move: &MoveParams{
			FromRow: from.Row, FromCol: from.Col,
			ToRow: to.Row, ToCol: to.Col,
		},
	}
}

func inView(view *StateView, p Position) bool {
	return p.Row >= 0 && p.Row < len(view.Board) && len(view.Board) > 0 &&
		p.Col >= 0 && p.Col < len(view.Board[p.Row])
}

// String renders an action for audit logging.
func (a Action) String() string {
	switch a.Kind {
	case ActionPlace:
		if a.Place != nil {
			return fmt.Sprintf("place %s at (%d,%d)", a.Place.PType, a.Place.Row, a.Place.Col)
		}
		return "place"
	case ActionMove:
		if a.Move != nil {
			return fmt.Sprintf("move (%d,%d)->(%d,%d)", a.Move.FromRow, a.Move.FromCol, a.Move.ToRow, a.Move.ToCol)
		}
		return "move"
	case ActionSkip:
		return "skip_turn"
	default:
		return string(a.Name)
	}
}
