package world

import (
	"fmt"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/geom"
)

// ApplyDamage is the world's damage event source. NPC damage is delivered to
// the agent; players lose health and are removed at zero.
func (w *World) ApplyDamage(target ai.ActorID, info ai.DamageInfo) error {
	if info.Amount < 0 {
		return fmt.Errorf("world: negative damage %v for %s", info.Amount, target)
	}
	entity, ok := w.entities[target]
	if !ok || !w.ecs.Alive(entity) {
		return fmt.Errorf("%w: %s", ErrUnknownActor, target)
	}
	if agent, isAgent := w.agents[target]; isAgent {
		agent.OnDamage(info)
		return nil
	}
	vitals := w.vitals.Get(entity)
	vitals.Health = geom.Clamp(vitals.Health-info.Amount, 0, vitals.MaxHealth)
	if vitals.Health <= 0 {
		w.remove(target, DespawnReasonDied)
	}
	return nil
}

// PlayerHealth reports a player's remaining health.
func (w *World) PlayerHealth(id ai.ActorID) (float64, bool) {
	entity, err := w.playerEntity(id)
	if err != nil {
		return 0, false
	}
	return w.vitals.Get(entity).Health, true
}
