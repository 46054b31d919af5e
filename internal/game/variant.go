package game

import (
	"fmt"
	"sync"
)

// Seat binds an account to a board owner number for the duration of one game.
// Owner numbers start at 1; zero is reserved for "nobody" on the wire.
type Seat struct {
	Account   string
	DisplayID string
	Owner     int
	AI        bool
}

// Info describes a variant for the lobby listing.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
}

// Result is the terminal outcome of a game.
type Result struct {
	Winner string `json:"winner,omitempty"`
	Draw   bool   `json:"draw,omitempty"`
}

// Instance is one live game. Instances are single logical actors: the session
// broker serializes every call, so implementations need no internal locking.
type Instance interface {
	// Apply validates and applies a single action. On error no state has
	// changed.
	Apply(action Action) error
	// Snapshot projects the current state through viewer's visibility
	// mask. The empty viewer returns the full authoritative view (AI and
	// tests). Snapshots are pure reads: calling Snapshot twice without an
	// intervening Apply yields identical projections.
	Snapshot(viewer string) *StateView
	// Forfeit removes an account from the game after a mid-game departure.
	// The engine must keep the reduced player set consistent: the seat is
	// eliminated and the turn advances if it was theirs.
	Forfeit(account string) error
	// Terminal reports the game result once the win condition is reached.
	Terminal() (Result, bool)
	// Sequence strictly increases with every successful Apply.
	Sequence() uint64
}

// Variant is the pluggable game behind the shared session lifecycle. The
// session layer depends only on this interface; new games register an
// implementation instead of modifying the broker.
type Variant interface {
	Info() Info
	New(seats []Seat) (Instance, error)
}

// Registry is the process-wide variant table, keyed by game id.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{variants: make(map[string]Variant)}
}

func (r *Registry) Register(v Variant) error {
	if v == nil {
		return fmt.Errorf("nil variant")
	}
	info := v.Info()
	if info.ID == "" {
		return fmt.Errorf("variant has no id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.variants[info.ID]; exists {
		return fmt.Errorf("variant %q already registered", info.ID)
	}
	r.variants[info.ID] = v
	r.order = append(r.order, info.ID)
	return nil
}

func (r *Registry) Lookup(id string) (Variant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[id]
	return v, ok
}

// List returns variant infos in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.variants[id].Info())
	}
	return infos
}
