package lifecycle

import (
	"context"

	"npc-director/server/logging"
)

const (
	// EventActorSpawned is emitted when the world registers a player or NPC.
	EventActorSpawned logging.EventType = "lifecycle.actor_spawned"
	// EventActorDespawned is emitted when the world removes an actor.
	EventActorDespawned logging.EventType = "lifecycle.actor_despawned"
	// EventRagdollCreated is emitted when a corpse is requested for a dead NPC.
	EventRagdollCreated logging.EventType = "lifecycle.ragdoll_created"
)

// ActorSpawnedPayload captures spawn metadata.
type ActorSpawnedPayload struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Relationship string  `json:"relationship,omitempty"`
	Profile      string  `json:"profile,omitempty"`
}

// ActorDespawnedPayload captures the reason an actor left the world.
type ActorDespawnedPayload struct {
	Reason string `json:"reason"`
}

// RagdollCreatedPayload records the corpse pose.
type RagdollCreatedPayload struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// ActorSpawned publishes a spawn event.
func ActorSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ActorSpawnedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventActorSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	})
}

// ActorDespawned publishes a despawn event.
func ActorDespawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ActorDespawnedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventActorDespawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	})
}

// RagdollCreated publishes a ragdoll request.
func RagdollCreated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RagdollCreatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRagdollCreated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "lifecycle",
		Payload:  payload,
	})
}
