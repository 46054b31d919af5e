package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging"
)

// NATS publishes events to a subject so external consumers (audit trail,
// dashboards) can follow gameplay without a connection to the game server.
type NATS struct {
	conn    *nats.Conn
	subject string
}

func NewNATS(cfg logging.NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats sink requires a URL")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "platform.events"
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("boardgame-platform-audit"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

func (s *NATS) Write(event logging.Event) error {
	if s.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.conn.Publish(s.subject, data)
}

func (s *NATS) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- s.conn.Drain()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.conn.Close()
		return ctx.Err()
	}
}
