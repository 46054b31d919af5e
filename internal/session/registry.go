package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging"
)

// Registry tracks live rooms and which room each account currently occupies.
// Its lock covers only the maps; room state lives behind each broker's own
// mailbox, so registry contention never serializes game traffic across rooms.
type Registry struct {
	deps Deps

	mu        sync.Mutex
	rooms     map[string]*Broker
	byAccount map[string]string
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:      deps.normalized(),
		rooms:     make(map[string]*Broker),
		byAccount: make(map[string]string),
	}
}

// CreateRoom allocates a room and seats the creator as host. An empty id gets
// a generated one.
func (r *Registry) CreateRoom(id, account, display string, conn Conn) (*Broker, error) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	if _, busy := r.byAccount[account]; busy {
		r.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	if _, exists := r.rooms[id]; exists {
		r.mu.Unlock()
		return nil, ErrRoomExists
	}
	b := newBroker(id, r.deps, r)
	r.rooms[id] = b
	r.mu.Unlock()

	r.deps.Counters.RoomCreated()
	r.deps.Publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventRoomCreated,
		Room:     id,
		Actor:    logging.EntityRef{ID: account, Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
	})

	if err := b.Submit(account, display, conn, ClientEvent{Type: EventJoinRoom}); err != nil {
		r.remove(id)
		b.stop()
		return nil, err
	}
	return b, nil
}

// Variants exposes the variant catalog shared by all rooms.
func (r *Registry) Variants() *game.Registry {
	return r.deps.Variants
}

// Get returns the broker for a room id.
func (r *Registry) Get(id string) (*Broker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rooms[id]
	return b, ok
}

// RoomOf returns the broker hosting the given account, if any.
func (r *Registry) RoomOf(account string) (*Broker, bool) {
	r.mu.Lock()
	roomID, ok := r.byAccount[account]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	b, ok := r.rooms[roomID]
	r.mu.Unlock()
	return b, ok
}

// List snapshots every live room, sorted by id for stable output.
func (r *Registry) List() []RoomInfo {
	r.mu.Lock()
	brokers := make([]*Broker, 0, len(r.rooms))
	for _, b := range r.rooms {
		brokers = append(brokers, b)
	}
	r.mu.Unlock()

	infos := make([]RoomInfo, 0, len(brokers))
	for _, b := range brokers {
		infos = append(infos, b.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Dispatch routes a client event to the right room. create_room and join_room
// establish the account-to-room binding; everything else follows it.
func (r *Registry) Dispatch(account, display string, conn Conn, event ClientEvent) error {
	switch event.Type {
	case EventCreateRoom:
		_, err := r.CreateRoom(event.RoomID, account, display, conn)
		return err
	case EventJoinRoom:
		b, ok := r.Get(event.RoomID)
		if !ok {
			return ErrRoomNotFound
		}
		return b.Submit(account, display, conn, event)
	default:
		b, ok := r.RoomOf(account)
		if !ok {
			return ErrRoomNotFound
		}
		return b.Submit(account, display, conn, event)
	}
}

// Detach notifies the account's room, if any, that its connection dropped.
func (r *Registry) Detach(account string) {
	if b, ok := r.RoomOf(account); ok {
		b.Detach(account)
	}
}

// Shutdown stops every broker. Connections are closed by their own sessions.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	brokers := make([]*Broker, 0, len(r.rooms))
	for _, b := range r.rooms {
		brokers = append(brokers, b)
	}
	r.rooms = make(map[string]*Broker)
	r.byAccount = make(map[string]string)
	r.mu.Unlock()
	for _, b := range brokers {
		b.stop()
	}
}

// bind claims the account for roomID. It fails when the account is already
// bound to a different room; membership and the binding must move together,
// so a seated account has to leave before it can join elsewhere.
func (r *Registry) bind(account, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.byAccount[account]; ok && current != roomID {
		return false
	}
	r.byAccount[account] = roomID
	return true
}

func (r *Registry) unbind(account string) {
	r.mu.Lock()
	delete(r.byAccount, account)
	r.mu.Unlock()
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.rooms, id)
	r.mu.Unlock()
}
