package game

import "fmt"

// WarConfig carries the tunables for the fog-of-war wargame variant.
type WarConfig struct {
	Rows           int
	Cols           int
	Grant          int
	PointCap       int
	StartingPoints int
	MoveCost       int
	// PlaceHeadquarters seeds each seat with a Headquarters in its corner.
	// Disabled only by tests that need an empty board.
	PlaceHeadquarters bool
	Catalog           *Catalog
}

func DefaultWarConfig() WarConfig {
	return WarConfig{
		Rows:              9,
		Cols:              9,
		Grant:             5,
		PointCap:          20,
		StartingPoints:    10,
		MoveCost:          1,
		PlaceHeadquarters: true,
	}
}

func (cfg WarConfig) normalized() WarConfig {
	normalized := cfg
	if normalized.Rows <= 0 {
		normalized.Rows = 9
	}
	if normalized.Cols <= 0 {
		normalized.Cols = 9
	}
	if normalized.MoveCost < 0 {
		normalized.MoveCost = 0
	}
	if normalized.Catalog == nil {
		normalized.Catalog = DefaultCatalog()
	}
	return normalized
}

const WargameID = "wargame"

type wargameVariant struct {
	cfg WarConfig
}

// NewWargameVariant builds the fog-of-war wargame with the given config.
func NewWargameVariant(cfg WarConfig) Variant {
	return &wargameVariant{cfg: cfg.normalized()}
}

func (v *wargameVariant) Info() Info {
	return Info{
		ID:          WargameID,
		Name:        "Fog of War",
		Description: "Turn-based strategy wargame with per-player fog of war.",
		MinPlayers:  2,
		MaxPlayers:  4,
	}
}

func (v *wargameVariant) New(seats []Seat) (Instance, error) {
	return NewWargame(v.cfg, seats)
}

// hqCorners lists the starting Headquarters cells in seat order.
func hqCorners(rows, cols int) []Position {
	return []Position{
		{Row: 0, Col: 0},
		{Row: rows - 1, Col: cols - 1},
		{Row: 0, Col: cols - 1},
		{Row: rows - 1, Col: 0},
	}
}

// Wargame is one live fog-of-war game. It is a single logical actor: the
// session broker serializes every call.
type Wargame struct {
	cfg     WarConfig
	board   *Board
	catalog *Catalog
	sched   *Scheduler
	seats   []Seat
	byOwner map[int]Seat
	owners  map[string]int
	hadHQ   map[int]bool
	masks   map[int]Mask
	seq     uint64
	result  *Result
}

func NewWargame(cfg WarConfig, seats []Seat) (*Wargame, error) {
	cfg = cfg.normalized()
	info := (&wargameVariant{cfg: cfg}).Info()
	if len(seats) < info.MinPlayers || len(seats) > info.MaxPlayers {
		return nil, fmt.Errorf("wargame needs %d-%d players, got %d", info.MinPlayers, info.MaxPlayers, len(seats))
	}
	board, err := NewBoard(cfg.Rows, cfg.Cols, cfg.Catalog)
	if err != nil {
		return nil, err
	}

	order := make([]int, 0, len(seats))
	owners := make(map[string]int, len(seats))
	byOwner := make(map[int]Seat, len(seats))
	for _, seat := range seats {
		if seat.Account == "" || seat.Owner <= 0 {
			return nil, fmt.Errorf("seat %+v is incomplete", seat)
		}
		if _, dup := owners[seat.Account]; dup {
			return nil, fmt.Errorf("account %q seated twice", seat.Account)
		}
		if _, dup := byOwner[seat.Owner]; dup {
			return nil, fmt.Errorf("owner %d seated twice", seat.Owner)
		}
		order = append(order, seat.Owner)
		owners[seat.Account] = seat.Owner
		byOwner[seat.Owner] = seat
	}

	sched, err := NewScheduler(order, SchedulerConfig{
		Grant:          cfg.Grant,
		Cap:            cfg.PointCap,
		StartingPoints: cfg.StartingPoints,
	})
	if err != nil {
		return nil, err
	}

	w := &Wargame{
		cfg:     cfg,
		board:   board,
		catalog: cfg.Catalog,
		sched:   sched,
		seats:   append([]Seat(nil), seats...),
		byOwner: byOwner,
		owners:  owners,
		hadHQ:   make(map[int]bool, len(seats)),
		masks:   make(map[int]Mask, len(seats)),
		seq:     1,
	}

	if cfg.PlaceHeadquarters {
		corners := hqCorners(cfg.Rows, cfg.Cols)
		for i, seat := range seats {
			if err := board.PlaceUnit(corners[i], seat.Owner, UnitHeadquarters); err != nil {
				return nil, fmt.Errorf("seed headquarters for seat %d: %w", seat.Owner, err)
			}
			w.hadHQ[seat.Owner] = true
		}
	}
	w.recomputeMasks()
	return w, nil
}

// Apply validates and applies one action. On any error the state is
// untouched; every success strictly increments the sequence number.
func (w *Wargame) Apply(action Action) error {
	if w.result != nil {
		return ErrGameOver
	}
	owner, ok := w.owners[action.Issuer]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, action.Issuer)
	}
	if w.sched.Active() != owner {
		return fmt.Errorf("%w: waiting on seat %d", ErrNotYourTurn, w.sched.Active())
	}

	if action.Kind == "" {
		decoded, err := DecodeAction(action.Issuer, action.Name, action.Raw)
		if err != nil {
			return err
		}
		action = decoded
	}

	switch action.Kind {
	case ActionSkip:
		// Always legal, costs nothing.
	case ActionPlace:
		if err := w.applyPlace(owner, action.Place); err != nil {
			return err
		}
	case ActionMove:
		if err := w.applyMove(owner, action.Move); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, action.Name)
	}

	w.settle(true)
	w.seq++
	return nil
}

func (w *Wargame) applyPlace(owner int, params *PlaceParams) error {
	if params == nil {
		return validationErrorf("place requires parameters")
	}
	unit, ok := ParseUnitType(params.PType)
	if !ok || unit == UnitEmpty {
		return fmt.Errorf("%w: unknown unit type %q", ErrInvalidPlacement, params.PType)
	}
	stats := w.catalog.Stats(unit)
	if !stats.Placeable {
		return fmt.Errorf("%w: %s cannot be placed", ErrInvalidPlacement, unit)
	}
	if !w.sched.CanAfford(owner, stats.Cost) {
		return fmt.Errorf("%w: %s costs %d, have %d",
			ErrInsufficientCommandPoints, unit, stats.Cost, w.sched.Points(owner))
	}
	if err := w.board.PlaceUnit(Position{Row: params.Row, Col: params.Col}, owner, unit); err != nil {
		return err
	}
	return w.sched.Spend(owner, stats.Cost)
}

func (w *Wargame) applyMove(owner int, params *MoveParams) error {
	if params == nil {
		return validationErrorf("move requires parameters")
	}
	if !w.sched.CanAfford(owner, w.cfg.MoveCost) {
		return fmt.Errorf("%w: moving costs %d, have %d",
			ErrInsufficientCommandPoints, w.cfg.MoveCost, w.sched.Points(owner))
	}
	from := Position{Row: params.FromRow, Col: params.FromCol}
	to := Position{Row: params.ToRow, Col: params.ToCol}
	if err := w.board.MoveUnit(from, to, owner); err != nil {
		return err
	}
	return w.sched.Spend(owner, w.cfg.MoveCost)
}

// Forfeit eliminates the account's seat: their cells are cleared, the
// rotation skips them, and the turn advances if they were active. Used when a
// member leaves a live game.
func (w *Wargame) Forfeit(account string) error {
	owner, ok := w.owners[account]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, account)
	}
	if w.result != nil {
		return ErrGameOver
	}
	if w.sched.Eliminated(owner) {
		return nil
	}
	w.board.RemoveOwnedBy(owner)
	// Eliminate advances past the seat if it was the active one, so settle
	// must not advance a second time.
	w.sched.Eliminate(owner)
	w.settle(false)
	w.seq++
	return nil
}

// settle runs post-mutation bookkeeping: eliminations, terminal detection,
// turn advancement (when the acting player finished a normal action) and
// fresh visibility masks.
func (w *Wargame) settle(advance bool) {
	for _, owner := range w.sched.Alive() {
		if !w.hadHQ[owner] {
			continue
		}
		if w.board.CountUnits(owner, UnitHeadquarters) == 0 {
			// A player whose every Headquarters has been captured
			// collapses: remaining units are removed.
			w.board.RemoveOwnedBy(owner)
			w.sched.Eliminate(owner)
		}
	}

	alive := w.sched.Alive()
	switch len(alive) {
	case 0:
		w.result = &Result{Draw: true}
	case 1:
		w.result = &Result{Winner: w.byOwner[alive[0]].Account}
	default:
		if w.result == nil && advance {
			w.sched.Advance()
		}
	}
	w.recomputeMasks()
}

func (w *Wargame) recomputeMasks() {
	for _, seat := range w.seats {
		w.masks[seat.Owner] = ComputeMask(w.board, seat.Owner)
	}
}

// Terminal implements Instance.
func (w *Wargame) Terminal() (Result, bool) {
	if w.result == nil {
		return Result{}, false
	}
	return *w.result, true
}

// Sequence implements Instance.
func (w *Wargame) Sequence() uint64 {
	return w.seq
}

// Snapshot implements Instance. The empty viewer yields the authoritative
// full view used by the AI controller and tests; any other viewer sees only
// the cells inside their own mask, with other players' command points zeroed
// and masks withheld.
func (w *Wargame) Snapshot(viewer string) *StateView {
	viewerOwner := 0
	if viewer != "" {
		viewerOwner = w.owners[viewer]
	}
	var mask Mask
	if viewerOwner > 0 {
		mask = w.masks[viewerOwner]
	}

	rows := make([][]CellView, w.board.Rows())
	for r := range rows {
		rows[r] = make([]CellView, w.board.Cols())
	}
	w.board.EachCell(func(p Position, cell Cell) {
		if viewer != "" && !mask.Visible(p) {
			return
		}
		rows[p.Row][p.Col] = CellView{cell.Owner, int(cell.Unit)}
	})

	players := make(map[string]*PlayerView, len(w.seats))
	for _, seat := range w.seats {
		view := &PlayerView{
			DisplayID: seat.DisplayID,
			Seat:      seat.Owner,
			Alive:     !w.sched.Eliminated(seat.Owner),
			UnitCount: w.board.CountUnits(seat.Owner, UnitEmpty),
		}
		if viewer == "" || seat.Account == viewer {
			view.CommandPoints = w.sched.Points(seat.Owner)
		}
		if seat.Account == viewer {
			view.Sight = w.masks[seat.Owner].Wire()
		}
		players[seat.Account] = view
	}

	view := &StateView{
		GameID:  WargameID,
		Board:   rows,
		Players: players,
		Turn: TurnView{
			Number: w.sched.Turn(),
			Active: w.byOwner[w.sched.Active()].Account,
		},
		Sequence: w.seq,
	}
	if w.result != nil {
		result := *w.result
		view.Result = &result
	}
	return view
}
