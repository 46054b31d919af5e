package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindRoom    EntityKind = "room"
	EntityKindGame    EntityKind = "game"
	EntityKindSystem  EntityKind = "system"
)

// Event is a structured record emitted by the session layer. Turn carries the
// game turn number when the event originated inside a live game, zero
// otherwise.
type Event struct {
	Type     EventType      `json:"type"`
	Room     string         `json:"room,omitempty"`
	Turn     uint64         `json:"turn,omitempty"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

const (
	CategoryGameplay = "gameplay"
	CategorySession  = "session"
	CategorySystem   = "system"
)

const (
	EventRoomCreated    EventType = "room.created"
	EventRoomDestroyed  EventType = "room.destroyed"
	EventRoomJoined     EventType = "room.joined"
	EventRoomLeft       EventType = "room.left"
	EventGameSelected   EventType = "game.selected"
	EventGameStarted    EventType = "game.started"
	EventGameOver       EventType = "game.over"
	EventActionApplied  EventType = "action.applied"
	EventActionRejected EventType = "action.rejected"
	EventEngineFault    EventType = "engine.fault"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

func cloneEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}
