package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/telemetry"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before reads fail.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is the per-connection outbound queue. A full queue marks
	// the consumer too slow and the connection is closed.
	sendBuffer = 256

	maxMessageSize = 64 * 1024
)

// ErrSlowConsumer reports a connection whose outbound queue overflowed.
var ErrSlowConsumer = errors.New("outbound queue full")

var timeNow = time.Now

// Session pumps outbound messages onto one websocket connection. Send is
// non-blocking: room workers must never stall on a peer's socket, so a
// saturated queue closes the connection instead of applying backpressure.
type Session struct {
	account  string
	conn     *websocket.Conn
	send     chan []byte
	counters *telemetry.Counters
	logger   telemetry.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(account string, conn *websocket.Conn, counters *telemetry.Counters, logger telemetry.Logger) *Session {
	s := &Session{
		account:  account,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		counters: counters,
		logger:   logger,
		closed:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Account returns the authenticated account behind the connection.
func (s *Session) Account() string {
	return s.account
}

// Send marshals v and queues it for delivery.
func (s *Session) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-s.closed:
		return errors.New("session closed")
	default:
	}
	select {
	case s.send <- data:
		s.counters.RecordBroadcast(len(data))
		return nil
	default:
		s.logger.Printf("ws: closing slow consumer %s", s.account)
		s.Close()
		return ErrSlowConsumer
	}
}

// Close tears the connection down. Safe to call multiple times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case <-s.closed:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}
