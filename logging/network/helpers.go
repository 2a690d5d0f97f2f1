package network

import (
	"context"

	"npc-director/server/logging"
)

const (
	// EventSubscriberJoined is emitted when a replica feed subscriber connects.
	EventSubscriberJoined logging.EventType = "network.subscriber_joined"
	// EventSubscriberLeft is emitted when a subscriber disconnects or is evicted.
	EventSubscriberLeft logging.EventType = "network.subscriber_left"
	// EventFrameDropped is emitted when a slow subscriber misses a frame.
	EventFrameDropped logging.EventType = "network.frame_dropped"
)

// SubscriberPayload describes a feed subscriber.
type SubscriberPayload struct {
	RemoteAddr  string `json:"remoteAddr,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Subscribers int    `json:"subscribers"`
}

// FrameDroppedPayload records how many frames a subscriber has missed.
type FrameDroppedPayload struct {
	Dropped uint64 `json:"dropped"`
}

func subscriberRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown}
}

// SubscriberJoined publishes a subscriber connect event.
func SubscriberJoined(ctx context.Context, pub logging.Publisher, tick uint64, subscriber string, payload SubscriberPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscriberJoined,
		Tick:     tick,
		Actor:    subscriberRef(subscriber),
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
	})
}

// SubscriberLeft publishes a subscriber disconnect event.
func SubscriberLeft(ctx context.Context, pub logging.Publisher, tick uint64, subscriber string, payload SubscriberPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscriberLeft,
		Tick:     tick,
		Actor:    subscriberRef(subscriber),
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
	})
}

// FrameDropped publishes a warning when a subscriber's send buffer is full.
func FrameDropped(ctx context.Context, pub logging.Publisher, tick uint64, subscriber string, payload FrameDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrameDropped,
		Tick:     tick,
		Actor:    subscriberRef(subscriber),
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
	})
}
