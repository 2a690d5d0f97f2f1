package world

import (
	"context"
	"slices"

	"npc-director/server/internal/ai"
	"npc-director/server/logging"
	"npc-director/server/logging/lifecycle"
)

// Despawn reasons reported in lifecycle events.
const (
	DespawnReasonDied    = "died"
	DespawnReasonRemoved = "removed"
)

// CreateRagdoll implements ai.Lifecycle. Ragdolls are recorded and surfaced
// through the next snapshot.
func (w *World) CreateRagdoll(req ai.RagdollRequest) {
	w.ragdolls = append(w.ragdolls, req)
	lifecycle.RagdollCreated(context.Background(), w.pub, w.tick, logging.EntityRef{ID: string(req.Actor), Kind: logging.EntityKindNPC}, lifecycle.RagdollCreatedPayload{
		X:   req.Position.X(),
		Y:   req.Position.Y(),
		Yaw: req.Yaw,
	})
}

// Despawn implements ai.Lifecycle.
func (w *World) Despawn(id ai.ActorID) {
	w.remove(id, DespawnReasonDied)
}

// Remove takes an actor out of the world regardless of its state.
func (w *World) Remove(id ai.ActorID) bool {
	return w.remove(id, DespawnReasonRemoved)
}

func (w *World) remove(id ai.ActorID, reason string) bool {
	entity, ok := w.entities[id]
	if !ok {
		return false
	}
	kind := logging.EntityKindPlayer
	if _, isAgent := w.agents[id]; isAgent {
		kind = logging.EntityKindNPC
	}
	if w.ecs.Alive(entity) {
		w.ecs.RemoveEntity(entity)
	}
	delete(w.entities, id)
	delete(w.agents, id)
	delete(w.anims, id)
	w.index.markDirty()

	lifecycle.ActorDespawned(context.Background(), w.pub, w.tick, logging.EntityRef{ID: string(id), Kind: kind}, lifecycle.ActorDespawnedPayload{
		Reason: reason,
	})
	return true
}

// Ragdolls returns every ragdoll created so far.
func (w *World) Ragdolls() []ai.RagdollRequest {
	return slices.Clone(w.ragdolls)
}

var _ ai.Lifecycle = (*World)(nil)
