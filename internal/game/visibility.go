package game

// Mask is a board-shaped visibility grid. True marks a cell the player may
// see. Masks are recomputed after every mutation and never cached across
// turns.
type Mask [][]bool

func newMask(rows, cols int) Mask {
	mask := make(Mask, rows)
	for r := range mask {
		mask[r] = make([]bool, cols)
	}
	return mask
}

// Visible reports the bit at p, false when out of bounds.
func (m Mask) Visible(p Position) bool {
	if p.Row < 0 || p.Row >= len(m) || p.Col < 0 || len(m) == 0 || p.Col >= len(m[0]) {
		return false
	}
	return m[p.Row][p.Col]
}

// Wire renders the mask as 0/1 rows for the snapshot payload.
func (m Mask) Wire() [][]int {
	if m == nil {
		return nil
	}
	wire := make([][]int, len(m))
	for r := range m {
		wire[r] = make([]int, len(m[r]))
		for c := range m[r] {
			if m[r][c] {
				wire[r][c] = 1
			}
		}
	}
	return wire
}

// ComputeMask derives the player's fog-of-war mask: every cell within the
// Manhattan sight radius of one of the player's surviving units, plus every
// cell the player owns (captured territory). Manhattan is the same metric the
// board uses for movement.
func ComputeMask(board *Board, owner int) Mask {
	mask := newMask(board.Rows(), board.Cols())
	board.EachCell(func(p Position, cell Cell) {
		if cell.Owner != owner {
			return
		}
		mask[p.Row][p.Col] = true
		if cell.Empty() {
			return
		}
		radius := board.catalog.Stats(cell.Unit).SightRadius
		for dr := -radius; dr <= radius; dr++ {
			rem := radius - abs(dr)
			for dc := -rem; dc <= rem; dc++ {
				q := Position{Row: p.Row + dr, Col: p.Col + dc}
				if board.InBounds(q) {
					mask[q.Row][q.Col] = true
				}
			}
		}
	})
	return mask
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
