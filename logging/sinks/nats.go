package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"npc-director/server/logging"
)

// NATS publishes each event as JSON on "<prefix>.<event type>".
type NATS struct {
	conn   *nats.Conn
	prefix string
}

// NewNATS connects to the configured server.
func NewNATS(cfg logging.NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats sink: url is required")
	}
	name := cfg.Name
	if name == "" {
		name = "npc-director"
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats sink: connect %s: %w", cfg.URL, err)
	}
	return NewNATSWithConn(conn, cfg.SubjectPrefix), nil
}

// NewNATSWithConn wraps an existing connection. The sink owns conn afterwards.
func NewNATSWithConn(conn *nats.Conn, prefix string) *NATS {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = "npc.events"
	}
	return &NATS{conn: conn, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (s *NATS) Subject(eventType logging.EventType) string {
	return s.prefix + "." + string(eventType)
}

func (s *NATS) Write(event logging.Event) error {
	data, err := json.Marshal(encodeEvent(event))
	if err != nil {
		return fmt.Errorf("nats sink: encode %s: %w", event.Type, err)
	}
	if err := s.conn.Publish(s.Subject(event.Type), data); err != nil {
		return fmt.Errorf("nats sink: publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending publishes and closes the connection.
func (s *NATS) Close(ctx context.Context) error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}
	defer s.conn.Close()
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	if err := s.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("nats sink: flush: %w", err)
	}
	return nil
}
