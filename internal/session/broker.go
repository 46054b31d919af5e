package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/telemetry"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging"
)

// Deps carries the collaborators shared by every broker.
type Deps struct {
	Variants  *game.Registry
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Counters  *telemetry.Counters
	WarConfig game.WarConfig
	AIBudget  time.Duration
	// MailboxSize bounds the per-room command queue. Overflow rejects the
	// event with a retryable error instead of blocking the connection.
	MailboxSize int
	// TurnAutoSkip skips a disconnected active player after the given
	// grace period. Zero disables auto-skip: a product decision, the
	// default matches best-effort reconnection behavior.
	TurnAutoSkip time.Duration
}

func (d Deps) normalized() Deps {
	normalized := d
	if normalized.Variants == nil {
		normalized.Variants = game.NewRegistry()
	}
	if normalized.Logger == nil {
		normalized.Logger = telemetry.WrapLogger(log.Default())
	}
	if normalized.Publisher == nil {
		normalized.Publisher = logging.NopPublisher()
	}
	if normalized.Counters == nil {
		normalized.Counters = telemetry.NewCounters()
	}
	if normalized.WarConfig.Rows == 0 {
		normalized.WarConfig = game.DefaultWarConfig()
	}
	if normalized.AIBudget <= 0 {
		normalized.AIBudget = game.DefaultAIBudget
	}
	if normalized.MailboxSize <= 0 {
		normalized.MailboxSize = 64
	}
	return normalized
}

type opKind int

const (
	opJoin opKind = iota
	opSelectGame
	opAddBot
	opStartGame
	opGameEvent
	opLeave
	opResync
	opDetach
	opAutoSkip
	opAIContinue
)

type op struct {
	kind    opKind
	account string
	display string
	conn    Conn
	event   ClientEvent
	// seq pins auto-skip to the engine state observed at disconnect time.
	seq  uint64
	done chan struct{}
}

type member struct {
	account string
	display string
	bot     bool
	conn    Conn
}

// maxAIChain bounds consecutive AI turns handled inline before yielding the
// mailbox back to player events.
const maxAIChain = 32

// Broker owns one room: its membership, at most one live game instance, and
// the per-room serialization domain. Every inbound event is funneled through
// the mailbox and drained by a single worker goroutine, so engine calls are
// never concurrent and arrival order is preserved. Ordering anomalies beyond
// that (an out-of-turn action arriving first) degrade to rule rejections, not
// corruption.
type Broker struct {
	id       string
	deps     Deps
	registry *Registry
	mailbox  chan op
	quit     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	host     string
	members  []*member
	selected string
	started  bool
	botSeq   int

	// Engine state, touched only by the worker goroutine.
	inst game.Instance
	ai   *game.AIController
}

func newBroker(id string, deps Deps, registry *Registry) *Broker {
	b := &Broker{
		id:       id,
		deps:     deps,
		registry: registry,
		mailbox:  make(chan op, deps.MailboxSize),
		quit:     make(chan struct{}),
	}
	go b.run()
	return b
}

// ID returns the room identifier.
func (b *Broker) ID() string {
	return b.id
}

// Info snapshots the lobby-facing room description.
func (b *Broker) Info() RoomInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.infoLocked()
}

func (b *Broker) infoLocked() RoomInfo {
	members := make([]string, 0, len(b.members))
	for _, m := range b.members {
		members = append(members, m.account)
	}
	return RoomInfo{
		ID:           b.id,
		Host:         b.host,
		Members:      members,
		SelectedGame: b.selected,
		Started:      b.started,
	}
}

// Submit enqueues one event for serialized processing. Returns ErrRoomBusy
// when the mailbox is full; the caller should ask the client to retry.
func (b *Broker) Submit(account, display string, conn Conn, event ClientEvent) error {
	kind, ok := opKindFor(event.Type)
	if !ok {
		return fmt.Errorf("unsupported event %q", event.Type)
	}
	return b.enqueue(op{kind: kind, account: account, display: display, conn: conn, event: event})
}

// Detach marks the account's connection as gone without removing membership,
// so the player can reconnect and resynchronize.
func (b *Broker) Detach(account string) {
	// Detach must not be lost on a full mailbox; retry briefly.
	o := op{kind: opDetach, account: account}
	for i := 0; i < 10; i++ {
		if err := b.enqueue(o); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	b.deps.Logger.Printf("room %s: dropping detach for %s, mailbox saturated", b.id, account)
}

func opKindFor(eventType string) (opKind, bool) {
	switch eventType {
	case EventJoinRoom:
		return opJoin, true
	case EventSelectGame:
		return opSelectGame, true
	case EventAddBot:
		return opAddBot, true
	case EventStartGame:
		return opStartGame, true
	case EventGameEvent:
		return opGameEvent, true
	case EventLeaveRoom:
		return opLeave, true
	case EventResync:
		return opResync, true
	}
	return 0, false
}

func (b *Broker) enqueue(o op) error {
	select {
	case <-b.quit:
		return ErrRoomNotFound
	default:
	}
	select {
	case b.mailbox <- o:
		return nil
	default:
		b.deps.Counters.MailboxOverflow()
		return ErrRoomBusy
	}
}

// submitSync enqueues and waits for the worker to finish the op. Test helper.
func (b *Broker) submitSync(o op) error {
	o.done = make(chan struct{})
	if err := b.enqueue(o); err != nil {
		return err
	}
	<-o.done
	return nil
}

func (b *Broker) run() {
	for {
		select {
		case <-b.quit:
			return
		case o := <-b.mailbox:
			b.process(o)
			if o.done != nil {
				close(o.done)
			}
		}
	}
}

func (b *Broker) stop() {
	b.stopOnce.Do(func() {
		close(b.quit)
	})
}

func (b *Broker) process(o op) {
	switch o.kind {
	case opJoin:
		b.handleJoin(o)
	case opSelectGame:
		b.handleSelectGame(o)
	case opAddBot:
		b.handleAddBot(o)
	case opStartGame:
		b.handleStartGame(o)
	case opGameEvent:
		b.handleGameEvent(o)
	case opLeave:
		b.handleLeave(o)
	case opResync:
		b.handleResync(o)
	case opDetach:
		b.handleDetach(o)
	case opAutoSkip:
		b.handleAutoSkip(o)
	case opAIContinue:
		b.driveAI()
		b.maybeScheduleAutoSkip()
	}
}

func (b *Broker) findMember(account string) *member {
	for _, m := range b.members {
		if m.account == account {
			return m
		}
	}
	return nil
}

func (b *Broker) handleJoin(o op) {
	b.mu.Lock()
	existing := b.findMember(o.account)
	if existing != nil {
		// Reconnect: reattach the connection and resynchronize.
		if existing.conn != nil && existing.conn != o.conn {
			existing.conn.Close()
		}
		existing.conn = o.conn
		started := b.started
		b.mu.Unlock()
		b.broadcastRoomUpdate()
		if started && b.inst != nil {
			b.deps.Counters.ResyncRequested()
			b.sendState(existing, newGameStateUpdated(b.id, b.decorate(b.inst.Snapshot(o.account))))
		}
		return
	}
	if b.started {
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventJoinRoom, ErrGameRunning.Error()))
		return
	}
	if !b.registry.bind(o.account, b.id) {
		empty := len(b.members) == 0
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventJoinRoom, ErrAlreadyInRoom.Error()))
		if empty {
			// The creator got seated elsewhere between the registry's busy
			// check and this join; a room with no members cannot recover.
			b.destroy()
		}
		return
	}
	m := &member{account: o.account, display: o.display, conn: o.conn}
	b.members = append(b.members, m)
	if b.host == "" {
		b.host = o.account
	}
	b.mu.Unlock()

	b.publish(logging.EventRoomJoined, o.account, logging.SeverityInfo, nil)
	b.broadcastRoomUpdate()
}

func (b *Broker) handleSelectGame(o op) {
	b.mu.Lock()
	isHost := b.host == o.account
	started := b.started
	b.mu.Unlock()

	if b.findMemberSafe(o.account) == nil {
		b.sendTo(o.conn, newError(EventSelectGame, ErrUnknownPlayer.Error()))
		return
	}
	if !isHost {
		b.sendTo(o.conn, newError(EventSelectGame, ErrNotHost.Error()))
		return
	}
	if started {
		b.sendTo(o.conn, newError(EventSelectGame, ErrGameRunning.Error()))
		return
	}
	if _, ok := b.deps.Variants.Lookup(o.event.GameID); !ok {
		b.sendTo(o.conn, newError(EventSelectGame, fmt.Sprintf("unknown game %q", o.event.GameID)))
		return
	}

	b.mu.Lock()
	b.selected = o.event.GameID
	b.mu.Unlock()

	b.publish(logging.EventGameSelected, o.account, logging.SeverityInfo, map[string]any{"game": o.event.GameID})
	b.broadcastRoomUpdate()
}

func (b *Broker) handleAddBot(o op) {
	b.mu.Lock()
	if b.host != o.account {
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventAddBot, ErrNotHost.Error()))
		return
	}
	if b.started {
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventAddBot, ErrGameRunning.Error()))
		return
	}
	b.botSeq++
	bot := &member{
		account: fmt.Sprintf("%s#bot-%d", b.id, b.botSeq),
		display: fmt.Sprintf("Bot %d", b.botSeq),
		bot:     true,
	}
	b.members = append(b.members, bot)
	b.mu.Unlock()
	b.broadcastRoomUpdate()
}

func (b *Broker) handleStartGame(o op) {
	b.mu.Lock()
	if b.host != o.account {
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventStartGame, ErrNotHost.Error()))
		return
	}
	if b.started {
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventStartGame, ErrGameRunning.Error()))
		return
	}
	selected := b.selected
	memberCount := len(b.members)
	b.mu.Unlock()

	if selected == "" {
		b.sendTo(o.conn, newError(EventStartGame, "no game selected"))
		return
	}
	variant, ok := b.deps.Variants.Lookup(selected)
	if !ok {
		b.sendTo(o.conn, newError(EventStartGame, fmt.Sprintf("unknown game %q", selected)))
		return
	}
	info := variant.Info()
	if memberCount < info.MinPlayers || memberCount > info.MaxPlayers {
		b.sendTo(o.conn, newError(EventStartGame,
			fmt.Sprintf("%s needs %d-%d players, room has %d", info.ID, info.MinPlayers, info.MaxPlayers, memberCount)))
		return
	}

	seats := b.buildSeats()
	inst, err := variant.New(seats)
	if err != nil {
		b.sendTo(o.conn, newError(EventStartGame, err.Error()))
		return
	}

	b.mu.Lock()
	b.inst = inst
	b.started = true
	b.mu.Unlock()
	b.ai = game.NewAIController(b.deps.WarConfig, b.deps.AIBudget)

	b.deps.Counters.GameStarted()
	b.publish(logging.EventGameStarted, o.account, logging.SeverityInfo, map[string]any{"game": selected})

	b.eachConnected(func(m *member) {
		b.sendState(m, newGameStarted(b.id, selected, b.decorate(inst.Snapshot(m.account))))
	})
	b.driveAI()
	b.maybeScheduleAutoSkip()
}

func (b *Broker) buildSeats() []game.Seat {
	b.mu.Lock()
	defer b.mu.Unlock()
	seats := make([]game.Seat, 0, len(b.members))
	for i, m := range b.members {
		seats = append(seats, game.Seat{
			Account:   m.account,
			DisplayID: m.display,
			Owner:     i + 1,
			AI:        m.bot,
		})
	}
	return seats
}

func (b *Broker) handleGameEvent(o op) {
	m := b.findMemberSafe(o.account)
	if m == nil {
		b.sendTo(o.conn, ackFail(ErrUnknownPlayer.Error()))
		b.deps.Counters.ActionRejected()
		return
	}
	if b.inst == nil {
		b.sendTo(o.conn, ackFail(ErrNoActiveGame.Error()))
		b.deps.Counters.ActionRejected()
		return
	}

	action := game.Action{Issuer: o.account, Name: o.event.EventName, Raw: o.event.EventData}
	if err := b.applyAction(action); err != nil {
		b.sendTo(o.conn, ackFail(err.Error()))
		b.deps.Counters.ActionRejected()
		b.publish(logging.EventActionRejected, o.account, logging.SeverityDebug, map[string]any{
			"event": o.event.EventName,
			"error": err.Error(),
		})
		return
	}

	b.sendTo(o.conn, ackOK("applied"))
	b.deps.Counters.ActionApplied()
	b.publish(logging.EventActionApplied, o.account, logging.SeverityInfo, map[string]any{
		"event":  o.event.EventName,
		"action": action.String(),
	})
	b.afterMutation()
}

// applyAction invokes the engine, isolating panics so one room's fault never
// takes down the process or corrupts another room.
func (b *Broker) applyAction(action game.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.deps.Counters.EnginePanic()
			b.deps.Logger.Printf("room %s: engine panic: %v\n%s", b.id, r, debug.Stack())
			b.publish(logging.EventEngineFault, action.Issuer, logging.SeverityError, map[string]any{
				"panic": fmt.Sprint(r),
			})
			err = errors.New("internal error")
		}
	}()
	return b.inst.Apply(action)
}

// afterMutation broadcasts fresh masked snapshots, finishes terminal games,
// and hands the turn to the AI when a bot seat is active.
func (b *Broker) afterMutation() {
	inst := b.inst
	if inst == nil {
		return
	}
	b.broadcastState()
	if result, done := inst.Terminal(); done {
		b.deps.Counters.GameFinished()
		b.publish(logging.EventGameOver, "", logging.SeverityInfo, map[string]any{
			"winner": result.Winner,
			"draw":   result.Draw,
		})
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		b.inst = nil
		b.ai = nil
		b.broadcastRoomUpdate()
		return
	}
	b.driveAI()
	b.maybeScheduleAutoSkip()
}

// driveAI plays consecutive bot turns, bounded so a bot-vs-bot room cannot
// monopolize the mailbox.
func (b *Broker) driveAI() {
	for i := 0; i < maxAIChain; i++ {
		inst := b.inst
		if inst == nil || b.ai == nil {
			return
		}
		if _, done := inst.Terminal(); done {
			return
		}
		active := inst.Snapshot("").Turn.Active
		m := b.findMemberSafe(active)
		if m == nil || !m.bot {
			return
		}
		action := b.ai.Propose(inst, active)
		if err := b.applyAction(action); err != nil {
			// A rejected proposal means the policy and rules disagree;
			// skip to keep the game moving.
			b.deps.Logger.Printf("room %s: ai action rejected (%v), skipping", b.id, err)
			skip := game.Action{Issuer: active, Kind: game.ActionSkip, Name: string(game.ActionSkip)}
			if err := b.applyAction(skip); err != nil {
				b.deps.Logger.Printf("room %s: ai skip rejected: %v", b.id, err)
				return
			}
		}
		b.deps.Counters.ActionApplied()
		b.broadcastState()
		if result, done := b.inst.Terminal(); done {
			b.deps.Counters.GameFinished()
			b.publish(logging.EventGameOver, "", logging.SeverityInfo, map[string]any{
				"winner": result.Winner,
				"draw":   result.Draw,
			})
			b.mu.Lock()
			b.started = false
			b.mu.Unlock()
			b.inst = nil
			b.ai = nil
			b.broadcastRoomUpdate()
			return
		}
	}
	// Yield and reschedule so queued player events interleave fairly.
	if err := b.enqueue(op{kind: opAIContinue}); err != nil {
		b.deps.Logger.Printf("room %s: ai continuation dropped: %v", b.id, err)
	}
}

func (b *Broker) handleLeave(o op) {
	b.mu.Lock()
	idx := -1
	for i, m := range b.members {
		if m.account == o.account {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		b.sendTo(o.conn, newError(EventLeaveRoom, ErrUnknownPlayer.Error()))
		return
	}
	leaving := b.members[idx]
	b.members = append(b.members[:idx], b.members[idx+1:]...)
	wasHost := b.host == o.account
	if wasHost {
		b.host = ""
		for _, m := range b.members {
			if !m.bot {
				b.host = m.account
				break
			}
		}
	}
	humans := 0
	for _, m := range b.members {
		if !m.bot {
			humans++
		}
	}
	b.mu.Unlock()

	b.registry.unbind(o.account)
	if leaving.conn != nil {
		leaving.conn.Close()
		leaving.conn = nil
	}
	b.publish(logging.EventRoomLeft, o.account, logging.SeverityInfo, nil)

	if humans == 0 {
		b.destroy()
		return
	}

	// A departing seat in a live game forfeits: the engine eliminates the
	// player and keeps the turn order consistent.
	if b.inst != nil {
		if err := b.forfeit(o.account); err != nil && !errors.Is(err, game.ErrUnknownPlayer) {
			b.deps.Logger.Printf("room %s: forfeit for %s failed: %v", b.id, o.account, err)
		}
		b.afterMutation()
	}
	b.broadcastRoomUpdate()
}

func (b *Broker) forfeit(account string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.deps.Counters.EnginePanic()
			b.deps.Logger.Printf("room %s: engine panic during forfeit: %v", b.id, r)
			err = errors.New("internal error")
		}
	}()
	return b.inst.Forfeit(account)
}

func (b *Broker) destroy() {
	b.registry.remove(b.id)
	b.deps.Counters.RoomDestroyed()
	b.publish(logging.EventRoomDestroyed, "", logging.SeverityInfo, nil)

	b.mu.Lock()
	members := append([]*member(nil), b.members...)
	b.members = nil
	b.inst = nil
	b.started = false
	b.mu.Unlock()

	for _, m := range members {
		b.registry.unbind(m.account)
		if m.conn != nil {
			m.conn.Close()
		}
	}
	b.stop()
}

func (b *Broker) handleResync(o op) {
	m := b.findMemberSafe(o.account)
	if m == nil {
		b.sendTo(o.conn, newError(EventResync, ErrUnknownPlayer.Error()))
		return
	}
	if b.inst == nil {
		b.sendTo(o.conn, newError(EventResync, ErrNoActiveGame.Error()))
		return
	}
	b.deps.Counters.ResyncRequested()
	// Reconnection replays the current masked snapshot, never action
	// history; with no intervening action the payload is bit-identical.
	b.sendState(m, newGameStateUpdated(b.id, b.decorate(b.inst.Snapshot(o.account))))
}

func (b *Broker) handleDetach(o op) {
	b.mu.Lock()
	m := b.findMember(o.account)
	if m == nil {
		b.mu.Unlock()
		return
	}
	m.conn = nil
	b.mu.Unlock()
	b.broadcastRoomUpdate()
	b.maybeScheduleAutoSkip()
}

// maybeScheduleAutoSkip arms a skip timer whenever the active seat belongs to
// a disconnected human. The sequence pin voids the timer if any action lands
// or the player reconnects first. Armed on detach and again after every
// mutation, so the rotation returning to a still-absent player re-arms it.
func (b *Broker) maybeScheduleAutoSkip() {
	if b.deps.TurnAutoSkip <= 0 || b.inst == nil {
		return
	}
	active := b.inst.Snapshot("").Turn.Active
	m := b.findMemberSafe(active)
	if m == nil || m.bot || m.conn != nil {
		return
	}
	seq := b.inst.Sequence()
	time.AfterFunc(b.deps.TurnAutoSkip, func() {
		if err := b.enqueue(op{kind: opAutoSkip, account: active, seq: seq}); err != nil {
			b.deps.Logger.Printf("room %s: auto-skip dropped: %v", b.id, err)
		}
	})
}

func (b *Broker) handleAutoSkip(o op) {
	if b.inst == nil || b.inst.Sequence() != o.seq {
		return
	}
	m := b.findMemberSafe(o.account)
	if m == nil || m.conn != nil {
		return
	}
	if b.inst.Snapshot("").Turn.Active != o.account {
		return
	}
	skip := game.Action{Issuer: o.account, Kind: game.ActionSkip, Name: string(game.ActionSkip)}
	if err := b.applyAction(skip); err != nil {
		b.deps.Logger.Printf("room %s: auto-skip for %s rejected: %v", b.id, o.account, err)
		return
	}
	b.publish(logging.EventActionApplied, o.account, logging.SeverityInfo, map[string]any{
		"event":  "skip_turn",
		"reason": "auto_skip_disconnected",
	})
	b.afterMutation()
}

func (b *Broker) findMemberSafe(account string) *member {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.findMember(account)
}

func (b *Broker) eachConnected(fn func(m *member)) {
	b.mu.Lock()
	members := append([]*member(nil), b.members...)
	b.mu.Unlock()
	for _, m := range members {
		if m.conn != nil {
			fn(m)
		}
	}
}

// decorate stamps session-level roster flags onto an engine snapshot. The
// engine knows seats, the broker knows who hosts and who is connected.
func (b *Broker) decorate(view *game.StateView) *game.StateView {
	if view == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.members {
		entry, ok := view.Players[m.account]
		if !ok {
			continue
		}
		entry.Host = m.account == b.host
		entry.Connected = m.conn != nil || m.bot
	}
	return view
}

// broadcastState emits the full trio of projections to every connected
// member, each through that member's own mask. Rejected actions never reach
// this path, so other members cannot observe them.
func (b *Broker) broadcastState() {
	inst := b.inst
	if inst == nil {
		return
	}
	b.eachConnected(func(m *member) {
		view := b.decorate(inst.Snapshot(m.account))
		b.sendState(m, newGameStateUpdated(b.id, view))
		b.sendState(m, newBoardUpdate(view))
		b.sendState(m, newTurnEnded(view))
	})
}

func (b *Broker) broadcastRoomUpdate() {
	info := b.Info()
	b.eachConnected(func(m *member) {
		b.sendState(m, newRoomUpdate(info))
	})
}

func (b *Broker) sendState(m *member, v any) {
	if m == nil || m.conn == nil {
		return
	}
	if err := m.conn.Send(v); err != nil {
		b.deps.Logger.Printf("room %s: send to %s failed: %v", b.id, m.account, err)
	}
}

func (b *Broker) sendTo(conn Conn, v any) {
	if conn == nil {
		return
	}
	if err := conn.Send(v); err != nil {
		b.deps.Logger.Printf("room %s: ack send failed: %v", b.id, err)
	}
}

func (b *Broker) publish(eventType logging.EventType, actor string, severity logging.Severity, payload map[string]any) {
	turn := uint64(0)
	if b.inst != nil {
		if view := b.inst.Snapshot(""); view != nil {
			turn = view.Turn.Number
		}
	}
	ref := logging.EntityRef{ID: actor, Kind: logging.EntityKindPlayer}
	if actor == "" {
		ref = logging.EntityRef{ID: b.id, Kind: logging.EntityKindRoom}
	}
	b.deps.Publisher.Publish(context.Background(), logging.Event{
		Type:     eventType,
		Room:     b.id,
		Turn:     turn,
		Actor:    ref,
		Severity: severity,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}
