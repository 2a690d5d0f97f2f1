package ai

import (
	"context"
	"time"

	"npc-director/server/logging/npc"
)

// perceptionInterval is how stale the potential-target cache may get.
const perceptionInterval = time.Second

// refreshPerception rebuilds the potential-target cache when it is older than
// perceptionInterval. The ID buffer is overwritten in place.
func (a *Agent) refreshPerception(now time.Time) {
	if a.gathered && now.Sub(a.lastGather) <= perceptionInterval {
		return
	}
	a.gathered = true
	a.lastGather = now

	a.potential = a.potential[:0]
	for _, actor := range a.world.ActorsWithin(a.Position(), a.tun.DetectionRange) {
		if actor == nil || actor.ID() == a.id {
			continue
		}
		a.potential = append(a.potential, actor.ID())
	}
	npc.PerceptionRefreshed(context.Background(), a.pub, a.tick, a.ref(), npc.PerceptionRefreshedPayload{Candidates: len(a.potential)})
}

// resolvePotential turns the cached IDs into live handles for this tick.
// Entries that no longer resolve or are invalid are skipped, not evicted.
func (a *Agent) resolvePotential() {
	a.live = a.live[:0]
	for _, id := range a.potential {
		actor, ok := a.world.Resolve(id)
		if !ok || actor == nil || !actor.Valid() {
			continue
		}
		a.live = append(a.live, actor)
	}
}

func (a *Agent) classify() {
	a.friends, a.enemies = classifyInto(a.friends[:0], a.enemies[:0], a.relationship, a.attackers, a.live)
}

// Classify partitions live candidates into friends and enemies as seen by an
// agent with relationship self that remembers the given attackers.
func Classify(self Relationship, attackers map[ActorID]struct{}, candidates []Actor) (friends, enemies []Actor) {
	return classifyInto(nil, nil, self, attackers, candidates)
}

func classifyInto(friends, enemies []Actor, self Relationship, attackers map[ActorID]struct{}, candidates []Actor) ([]Actor, []Actor) {
	for _, candidate := range candidates {
		if candidate == nil || !candidate.Valid() {
			continue
		}
		if self == Hostile {
			enemies = append(enemies, candidate)
			continue
		}
		if _, revenge := attackers[candidate.ID()]; revenge {
			enemies = append(enemies, candidate)
			continue
		}
		switch candidate.Kind() {
		case KindPlayer:
			if self == Friendly || self == Neutral {
				friends = append(friends, candidate)
			}
		case KindNPC:
			other := relationshipOf(candidate)
			if other == Hostile {
				enemies = append(enemies, candidate)
			} else if self == Neutral && (other == Friendly || other == Neutral) {
				friends = append(friends, candidate)
			}
		}
	}
	return friends, enemies
}

func relationshipOf(actor Actor) Relationship {
	if d, ok := actor.(Disposition); ok {
		return d.Relationship()
	}
	return Neutral
}
