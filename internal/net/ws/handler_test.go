package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/auth"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/session"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/telemetry"
)

func newTestServer(t *testing.T, resolver auth.TokenResolver) (*httptest.Server, *session.Registry) {
	t.Helper()
	variants := game.NewRegistry()
	if err := variants.Register(game.NewEchoVariant()); err != nil {
		t.Fatalf("register echo: %v", err)
	}
	registry := session.NewRegistry(session.Deps{
		Variants: variants,
		Logger:   telemetry.WrapLogger(log.New(io.Discard, "", 0)),
		Counters: telemetry.NewCounters(),
	})
	t.Cleanup(registry.Shutdown)

	handler := NewHandler(registry, resolver, telemetry.WrapLogger(log.New(io.Discard, "", 0)), telemetry.NewCounters())
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, registry
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("bad frame %s: %v", data, err)
	}
	return envelope
}

func envelopeType(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	if err := json.Unmarshal(envelope["type"], &typ); err != nil {
		t.Fatalf("frame missing type: %v", err)
	}
	return typ
}

func TestWebsocketCreateRoom(t *testing.T) {
	server, registry := newTestServer(t, auth.PassthroughResolver{})
	conn := dial(t, server, "?token=alice")

	if err := conn.WriteJSON(session.ClientEvent{Type: session.EventCreateRoom}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	envelope := readEnvelope(t, conn)
	if typ := envelopeType(t, envelope); typ != "room_update" {
		t.Fatalf("first frame type = %q, want room_update", typ)
	}

	var room struct {
		Host    string   `json:"host"`
		Players []string `json:"players"`
	}
	if err := json.Unmarshal(envelope["room"], &room); err != nil {
		t.Fatalf("bad room payload: %v", err)
	}
	if room.Host != "alice" || len(room.Players) != 1 {
		t.Fatalf("room = %+v, want alice hosting alone", room)
	}

	if _, ok := registry.RoomOf("alice"); !ok {
		t.Fatal("alice not bound to a room")
	}
}

func TestWebsocketFirstMessageToken(t *testing.T) {
	server, _ := newTestServer(t, auth.PassthroughResolver{})
	conn := dial(t, server, "")

	event := session.ClientEvent{Type: session.EventCreateRoom, Token: "bob"}
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	envelope := readEnvelope(t, conn)
	if typ := envelopeType(t, envelope); typ != "room_update" {
		t.Fatalf("first frame type = %q, want room_update", typ)
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	server, _ := newTestServer(t, auth.NewMemoryStore())
	conn := dial(t, server, "?token=forged")

	envelope := readEnvelope(t, conn)
	if typ := envelopeType(t, envelope); typ != "error" {
		t.Fatalf("frame type = %q, want error", typ)
	}
}

func TestWebsocketMalformedEvent(t *testing.T) {
	server, _ := newTestServer(t, auth.PassthroughResolver{})
	conn := dial(t, server, "?token=alice")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	envelope := readEnvelope(t, conn)
	if typ := envelopeType(t, envelope); typ != "error" {
		t.Fatalf("frame type = %q, want error", typ)
	}
}

func TestWebsocketUnknownRoomRouted(t *testing.T) {
	server, _ := newTestServer(t, auth.PassthroughResolver{})
	conn := dial(t, server, "?token=alice")

	event := session.ClientEvent{Type: session.EventJoinRoom, RoomID: "missing"}
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	envelope := readEnvelope(t, conn)
	if typ := envelopeType(t, envelope); typ != "error" {
		t.Fatalf("frame type = %q, want error", typ)
	}
}
