package ws

import (
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"npc-director/server/internal/net/intake"
	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/sim"
	"npc-director/server/internal/telemetry"
)

type subscription interface {
	WriteMessage(messageType int, data []byte) error
	LastCommandSeq() uint64
	StoreLastCommandSeq(seq uint64)
}

type HandlerConfig struct {
	Logger telemetry.Logger
	// Engine stages commands sent over the feed. Nil makes the feed
	// read-only: commands are rejected with queue_full.
	Engine intake.Enqueuer
	Now    func() time.Time
}

// Handler upgrades feed requests and serves one subscriber per connection.
type Handler struct {
	hub      *Hub
	logger   telemetry.Logger
	engine   intake.Enqueuer
	now      func() time.Time
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, cfg HandlerConfig) *Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		hub:      hub,
		logger:   cfg.Logger,
		engine:   cfg.Engine,
		now:      now,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h == nil || h.hub == nil {
		nethttp.Error(w, "feed unavailable", nethttp.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("[ws] upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub, latest, ok := h.hub.Subscribe(conn)
	session := subscription(sub)

	if ok {
		data, err := proto.EncodeFrame(latest)
		if err != nil {
			h.logf("[ws] failed to marshal initial frame for %s: %v", sub.id, err)
			h.hub.Disconnect(sub.id, "encode_failed")
			return
		}
		if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
			h.hub.Disconnect(sub.id, "write_failed")
			return
		}
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(sub.id, "closed")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logf("[ws] discarding malformed message from %s: %v", sub.id, err)
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			now := h.now()
			rtt := time.Duration(0)
			if msg.SentAt > 0 {
				rtt = now.Sub(time.UnixMilli(msg.SentAt))
			}
			if !h.write(session, sub.id, func() ([]byte, error) {
				return proto.EncodeHeartbeat(proto.Heartbeat{
					ServerTime: now.UnixMilli(),
					ClientTime: msg.SentAt,
					RTTMillis:  rtt.Milliseconds(),
				})
			}) {
				return
			}
			continue
		}

		seq := uint64(0)
		if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
			seq = *msg.CommandSeq
		}
		if seq > 0 {
			if last := session.LastCommandSeq(); last > 0 && seq <= last {
				if !h.write(session, sub.id, func() ([]byte, error) {
					return proto.EncodeCommandAck(proto.CommandAck{Seq: seq})
				}) {
					return
				}
				continue
			}
		}

		cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
			Engine: h.engine,
			Lookup: h.hub.LookupActor,
			Tick:   h.hub.Tick,
			Now:    h.now,
		}, msg)
		if !ok {
			if reason == intake.CommandRejectInvalidAction {
				h.logf("[ws] unknown command %q from %s", msg.Type, sub.id)
			}
			if seq == 0 {
				continue
			}
			if !h.write(session, sub.id, func() ([]byte, error) {
				return proto.EncodeCommandReject(proto.CommandReject{
					Seq:    seq,
					Reason: reason,
					Retry:  reason == sim.CommandRejectQueueLimit,
				})
			}) {
				return
			}
			continue
		}
		if seq == 0 {
			continue
		}
		if !h.write(session, sub.id, func() ([]byte, error) {
			return proto.EncodeCommandAck(proto.CommandAck{Seq: seq, Tick: cmd.OriginTick})
		}) {
			return
		}
		session.StoreLastCommandSeq(seq)
	}
}

// write encodes and sends one response. It reports false once the
// subscriber has been dropped.
func (h *Handler) write(session subscription, id string, encode func() ([]byte, error)) bool {
	data, err := encode()
	if err != nil {
		h.logf("[ws] failed to marshal response for %s: %v", id, err)
		return true
	}
	if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.Disconnect(id, "write_failed")
		return false
	}
	return true
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
