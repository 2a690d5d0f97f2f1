package ws

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/replica"
	"npc-director/server/internal/telemetry"
	"npc-director/server/logging"
	"npc-director/server/logging/network"
)

const (
	writeWait = 10 * time.Second

	broadcastBytesMetricKey = "ws_broadcast_bytes_total"
	broadcastFramesKey      = "ws_broadcast_frames_total"
	subscribersMetricKey    = "ws_subscribers"
)

type subscriber struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	mu         sync.Mutex

	lastCommandSeq atomic.Uint64
	dropped        atomic.Uint64
}

func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *subscriber) LastCommandSeq() uint64 {
	return s.lastCommandSeq.Load()
}

func (s *subscriber) StoreLastCommandSeq(seq uint64) {
	s.lastCommandSeq.Store(seq)
}

type HubConfig struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Hub fans replica frames out to websocket subscribers and remembers the
// latest one for new subscribers and off-loop lookups.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	latest      replica.Frame
	hasFrame    bool
	kinds       map[string]ai.ActorKind

	logger  telemetry.Logger
	metrics telemetry.Metrics
	pub     logging.Publisher
}

func NewHub(cfg HubConfig) *Hub {
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		kinds:       make(map[string]ai.ActorKind),
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		pub:         pub,
	}
}

// Subscribe registers conn and returns the latest frame, if any.
func (h *Hub) Subscribe(conn *websocket.Conn) (*subscriber, replica.Frame, bool) {
	id := fmt.Sprintf("sub-%d", h.nextID.Add(1))
	sub := &subscriber{id: id, conn: conn}
	if conn != nil {
		sub.remoteAddr = conn.RemoteAddr().String()
	}

	h.mu.Lock()
	h.subscribers[id] = sub
	count := len(h.subscribers)
	frame, ok := h.latest, h.hasFrame
	tick := h.latest.Tick
	h.mu.Unlock()

	h.storeMetric(subscribersMetricKey, uint64(count))
	network.SubscriberJoined(context.Background(), h.pub, tick, id, network.SubscriberPayload{
		RemoteAddr:  sub.remoteAddr,
		Subscribers: count,
	})
	return sub, frame, ok
}

// Disconnect removes the subscriber and closes its connection.
func (h *Hub) Disconnect(id string, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	tick := h.latest.Tick
	h.mu.Unlock()

	if !ok {
		return
	}
	if sub.conn != nil {
		sub.conn.Close()
	}
	h.storeMetric(subscribersMetricKey, uint64(count))
	network.SubscriberLeft(context.Background(), h.pub, tick, id, network.SubscriberPayload{
		RemoteAddr:  sub.remoteAddr,
		Reason:      reason,
		Subscribers: count,
	})
}

// Broadcast records frame as the latest and sends it to every subscriber.
// Subscribers that fail to accept the write are disconnected.
func (h *Hub) Broadcast(frame replica.Frame) {
	data, err := proto.EncodeFrame(frame)
	if err != nil {
		h.logf("[ws] failed to marshal frame %d: %v", frame.Tick, err)
		return
	}

	kinds := make(map[string]ai.ActorKind, len(frame.Agents)+len(frame.Players))
	for _, agent := range frame.Agents {
		kinds[string(agent.ID)] = ai.KindNPC
	}
	for _, player := range frame.Players {
		kinds[player.ID] = ai.KindPlayer
	}

	h.mu.Lock()
	h.latest = frame
	h.hasFrame = true
	h.kinds = kinds
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			dropped := sub.dropped.Add(1)
			network.FrameDropped(context.Background(), h.pub, frame.Tick, sub.id, network.FrameDroppedPayload{Dropped: dropped})
			h.logf("[ws] failed to send frame to %s: %v", sub.id, err)
			h.Disconnect(sub.id, "write_failed")
			continue
		}
		h.addMetric(broadcastBytesMetricKey, uint64(len(data)))
	}
	h.addMetric(broadcastFramesKey, 1)
}

// Latest returns the most recent broadcast frame.
func (h *Hub) Latest() (replica.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasFrame
}

// Tick is the tick of the latest frame.
func (h *Hub) Tick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest.Tick
}

// LookupActor reports the kind of an actor present in the latest frame.
func (h *Hub) LookupActor(id string) (ai.ActorKind, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kind, ok := h.kinds[id]
	return kind, ok
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Disconnect(id, "shutdown")
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func (h *Hub) addMetric(key string, delta uint64) {
	if h.metrics != nil {
		h.metrics.Add(key, delta)
	}
}

func (h *Hub) storeMetric(key string, value uint64) {
	if h.metrics != nil {
		h.metrics.Store(key, value)
	}
}
