package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/auth"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/session"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/telemetry"
)

// Handler upgrades websocket connections, authenticates them, and feeds every
// inbound event to the room registry.
type Handler struct {
	registry *session.Registry
	resolver auth.TokenResolver
	logger   telemetry.Logger
	counters *telemetry.Counters
	upgrader websocket.Upgrader
}

func NewHandler(registry *session.Registry, resolver auth.TokenResolver, logger telemetry.Logger, counters *telemetry.Counters) *Handler {
	return &Handler{
		registry: registry,
		resolver: resolver,
		logger:   logger,
		counters: counters,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(timeNow().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(timeNow().Add(pongWait))
		return nil
	})

	identity, first, ok := h.authenticate(conn, r)
	if !ok {
		conn.Close()
		return
	}

	sess := newSession(identity.Account, conn, h.counters, h.logger)
	h.readLoop(sess, identity, first)
}

// authenticate resolves the connection's identity from the token query
// parameter, or from the first event's token field when the parameter is
// absent. The consumed first event, if any, is returned for dispatch.
func (h *Handler) authenticate(conn *websocket.Conn, r *http.Request) (auth.Identity, *session.ClientEvent, bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		identity, err := h.resolver.Resolve(token)
		if err != nil {
			h.rejectAuth(conn, err)
			return auth.Identity{}, nil, false
		}
		return identity, nil, true
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return auth.Identity{}, nil, false
	}
	var event session.ClientEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.rejectAuth(conn, err)
		return auth.Identity{}, nil, false
	}
	identity, err := h.resolver.Resolve(event.Token)
	if err != nil {
		h.rejectAuth(conn, err)
		return auth.Identity{}, nil, false
	}
	return identity, &event, true
}

func (h *Handler) rejectAuth(conn *websocket.Conn, cause error) {
	h.logger.Printf("ws: rejecting connection: %v", cause)
	conn.SetWriteDeadline(timeNow().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, mustJSON(session.ErrorPayload("auth", "authentication failed")))
}

func (h *Handler) readLoop(sess *Session, identity auth.Identity, first *session.ClientEvent) {
	defer func() {
		sess.Close()
		h.registry.Detach(identity.Account)
	}()

	if first != nil {
		h.dispatch(sess, identity, *first)
	}
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Printf("ws: read from %s failed: %v", identity.Account, err)
			}
			return
		}
		var event session.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			sess.Send(session.ErrorPayload("", "malformed event"))
			continue
		}
		h.dispatch(sess, identity, event)
	}
}

func (h *Handler) dispatch(sess *Session, identity auth.Identity, event session.ClientEvent) {
	if err := h.registry.Dispatch(identity.Account, identity.DisplayName, sess, event); err != nil {
		sess.Send(session.ErrorPayload(event.Type, err.Error()))
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
