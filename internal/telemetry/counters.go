package telemetry

import "sync/atomic"

// Counters aggregates process-wide platform metrics. All methods are safe for
// concurrent use.
type Counters struct {
	roomsCreated     atomic.Uint64
	roomsDestroyed   atomic.Uint64
	gamesStarted     atomic.Uint64
	gamesFinished    atomic.Uint64
	actionsApplied   atomic.Uint64
	actionsRejected  atomic.Uint64
	broadcastsSent   atomic.Uint64
	bytesSent        atomic.Uint64
	resyncRequests   atomic.Uint64
	enginePanics     atomic.Uint64
	mailboxOverflows atomic.Uint64
}

// Snapshot is the JSON shape served by the diagnostics endpoint.
type Snapshot struct {
	RoomsCreated     uint64 `json:"roomsCreated"`
	RoomsDestroyed   uint64 `json:"roomsDestroyed"`
	RoomsActive      uint64 `json:"roomsActive"`
	GamesStarted     uint64 `json:"gamesStarted"`
	GamesFinished    uint64 `json:"gamesFinished"`
	ActionsApplied   uint64 `json:"actionsApplied"`
	ActionsRejected  uint64 `json:"actionsRejected"`
	BroadcastsSent   uint64 `json:"broadcastsSent"`
	BytesSent        uint64 `json:"bytesSent"`
	ResyncRequests   uint64 `json:"resyncRequests"`
	EnginePanics     uint64 `json:"enginePanics"`
	MailboxOverflows uint64 `json:"mailboxOverflows"`
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) RoomCreated()   { c.roomsCreated.Add(1) }
func (c *Counters) RoomDestroyed() { c.roomsDestroyed.Add(1) }
func (c *Counters) GameStarted()   { c.gamesStarted.Add(1) }
func (c *Counters) GameFinished()  { c.gamesFinished.Add(1) }
func (c *Counters) ActionApplied() { c.actionsApplied.Add(1) }
func (c *Counters) ActionRejected() {
	c.actionsRejected.Add(1)
}
func (c *Counters) ResyncRequested() { c.resyncRequests.Add(1) }
func (c *Counters) EnginePanic()     { c.enginePanics.Add(1) }
func (c *Counters) MailboxOverflow() { c.mailboxOverflows.Add(1) }

// RecordBroadcast notes one outbound snapshot write of the given size.
func (c *Counters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	c.broadcastsSent.Add(1)
	c.bytesSent.Add(uint64(bytes))
}

func (c *Counters) SnapshotCounters() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	created := c.roomsCreated.Load()
	destroyed := c.roomsDestroyed.Load()
	active := uint64(0)
	if created > destroyed {
		active = created - destroyed
	}
	return Snapshot{
		RoomsCreated:     created,
		RoomsDestroyed:   destroyed,
		RoomsActive:      active,
		GamesStarted:     c.gamesStarted.Load(),
		GamesFinished:    c.gamesFinished.Load(),
		ActionsApplied:   c.actionsApplied.Load(),
		ActionsRejected:  c.actionsRejected.Load(),
		BroadcastsSent:   c.broadcastsSent.Load(),
		BytesSent:        c.bytesSent.Load(),
		ResyncRequests:   c.resyncRequests.Load(),
		EnginePanics:     c.enginePanics.Load(),
		MailboxOverflows: c.mailboxOverflows.Load(),
	}
}
