package game

import "fmt"

// Position addresses a board cell. Row 0 is the top edge.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// ManhattanDistance is the metric used for both movement and sight.
func ManhattanDistance(a, b Position) int {
	dr := a.Row - b.Row
	if dr < 0 {
		dr = -dr
	}
	dc := a.Col - b.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// Cell holds at most one unit. Owner zero means unowned.
type Cell struct {
	Owner int
	Unit  UnitType
}

func (c Cell) Empty() bool {
	return c.Unit == UnitEmpty
}

// Board is the authoritative grid for one game instance. Dimensions are fixed
// for the game's lifetime. The board performs pure placement and movement
// checks; command-point accounting lives in the engine.
type Board struct {
	rows    int
	cols    int
	cells   [][]Cell
	catalog *Catalog
}

func NewBoard(rows, cols int, catalog *Catalog) (*Board, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("board dimensions must be positive, got %dx%d", rows, cols)
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
	}
	return &Board{rows: rows, cols: cols, cells: cells, catalog: catalog}, nil
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

func (b *Board) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < b.rows && p.Col >= 0 && p.Col < b.cols
}

// At returns the cell at p. Out-of-bounds positions read as empty.
func (b *Board) At(p Position) Cell {
	if !b.InBounds(p) {
		return Cell{}
	}
	return b.cells[p.Row][p.Col]
}

// PlaceUnit puts a new unit on an empty in-bounds cell.
func (b *Board) PlaceUnit(p Position, owner int, unit UnitType) error {
	if !b.InBounds(p) {
		return fmt.Errorf("%w: %s is out of bounds", ErrInvalidPlacement, p)
	}
	if unit == UnitEmpty || unit >= unitTypeCount {
		return fmt.Errorf("%w: unknown unit type", ErrInvalidPlacement)
	}
	if !b.cells[p.Row][p.Col].Empty() {
		return fmt.Errorf("%w: %s is occupied", ErrInvalidPlacement, p)
	}
	b.cells[p.Row][p.Col] = Cell{Owner: owner, Unit: unit}
	return nil
}

// MoveUnit relocates mover's unit from one cell to another, resolving capture
// when the destination holds an enemy. The mobility rule is Manhattan range
// per unit type; intermediate cells are not checked.
//
// Capture resolution is deterministic: the attacker wins when its strength is
// greater than or equal to the defender's, otherwise the attacker is
// destroyed and the defender stays. Captured City and Headquarters structures
// keep their unit type but flip owner; the attacking unit garrisons into the
// structure and is consumed.
func (b *Board) MoveUnit(from, to Position, mover int) error {
	if !b.InBounds(from) || !b.InBounds(to) {
		return fmt.Errorf("%w: out of bounds", ErrIllegalMove)
	}
	src := b.cells[from.Row][from.Col]
	if src.Empty() {
		return fmt.Errorf("%w: %s is empty", ErrIllegalMove, from)
	}
	if src.Owner != mover {
		return fmt.Errorf("%w: %s is not yours", ErrIllegalMove, from)
	}
	stats := b.catalog.Stats(src.Unit)
	if stats.Immobile {
		return fmt.Errorf("%w: %s cannot move", ErrIllegalMove, src.Unit)
	}
	if from == to {
		return fmt.Errorf("%w: origin equals destination", ErrIllegalMove)
	}
	if ManhattanDistance(from, to) > stats.MoveRange {
		return fmt.Errorf("%w: %s is beyond range %d", ErrIllegalMove, to, stats.MoveRange)
	}
	dst := b.cells[to.Row][to.Col]
	if !dst.Empty() && dst.Owner == mover {
		return fmt.Errorf("%w: %s holds your own unit", ErrIllegalMove, to)
	}

	if dst.Empty() {
		b.cells[to.Row][to.Col] = src
		b.cells[from.Row][from.Col] = Cell{}
		return nil
	}

	defender := b.catalog.Stats(dst.Unit)
	if stats.Strength < defender.Strength {
		// Attacker lost; it is removed and the defender holds.
		b.cells[from.Row][from.Col] = Cell{}
		return nil
	}
	if defender.Immobile {
		// Structure capture: the attacker garrisons into it.
		b.cells[to.Row][to.Col] = Cell{Owner: mover, Unit: dst.Unit}
	} else {
		b.cells[to.Row][to.Col] = src
	}
	b.cells[from.Row][from.Col] = Cell{}
	return nil
}

// RemoveOwnedBy clears every cell owned by the given player and returns how
// many cells were cleared. Used when a player is eliminated or forfeits.
func (b *Board) RemoveOwnedBy(owner int) int {
	removed := 0
	for r := range b.cells {
		for c := range b.cells[r] {
			if b.cells[r][c].Owner == owner {
				b.cells[r][c] = Cell{}
				removed++
			}
		}
	}
	return removed
}

// CountUnits tallies cells owned by the player, optionally restricted to one
// unit type (pass UnitEmpty for all).
func (b *Board) CountUnits(owner int, unit UnitType) int {
	count := 0
	for r := range b.cells {
		for c := range b.cells[r] {
			cell := b.cells[r][c]
			if cell.Owner != owner || cell.Empty() {
				continue
			}
			if unit != UnitEmpty && cell.Unit != unit {
				continue
			}
			count++
		}
	}
	return count
}

// EachCell visits every cell in row-major order.
func (b *Board) EachCell(fn func(p Position, c Cell)) {
	for r := range b.cells {
		for c := range b.cells[r] {
			fn(Position{Row: r, Col: c}, b.cells[r][c])
		}
	}
}
