package world

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/geom"
)

// goalEpsilon treats destinations closer than this as unchanged so repeated
// MoveTo calls do not replan every tick.
const goalEpsilon = 1.0

// navHandle is the NavAgent handed to an agent. It reads and writes the
// agent's Body and Motion components.
type navHandle struct {
	world  *World
	entity ecs.Entity
}

func (h *navHandle) MoveTo(point mgl64.Vec3) {
	h.world.setGoal(h.entity, point)
}

func (h *navHandle) Stop() {
	h.world.stopEntity(h.entity)
}

func (h *navHandle) Velocity() mgl64.Vec3 {
	if !h.world.ecs.Alive(h.entity) {
		return mgl64.Vec3{}
	}
	return h.world.motions.Get(h.entity).Velocity
}

func (h *navHandle) Position() mgl64.Vec3 {
	if !h.world.ecs.Alive(h.entity) {
		return mgl64.Vec3{}
	}
	return h.world.bodies.Get(h.entity).Position
}

// setGoal plans a path for the entity. Unreachable goals stop it in place.
func (w *World) setGoal(entity ecs.Entity, point mgl64.Vec3) bool {
	if !w.ecs.Alive(entity) {
		return false
	}
	motion := w.motions.Get(entity)
	goal := geom.Flat(point)
	if motion.HasGoal && len(motion.Path) > 0 && geom.Distance(motion.Goal, goal) < goalEpsilon {
		return true
	}
	body := w.bodies.Get(entity)
	path, ok := w.nav.FindPath(body.Position, goal)
	if !ok {
		motion.Path = nil
		motion.HasGoal = false
		motion.Velocity = mgl64.Vec3{}
		return false
	}
	motion.Path = path
	motion.Goal = goal
	motion.HasGoal = true
	return true
}

func (w *World) stopEntity(entity ecs.Entity) {
	if !w.ecs.Alive(entity) {
		return
	}
	motion := w.motions.Get(entity)
	motion.Path = nil
	motion.HasGoal = false
	motion.Velocity = mgl64.Vec3{}
}

// MovePlayer sends a player to target along a planned path. Manual orders
// switch off wandering.
func (w *World) MovePlayer(id ai.ActorID, target mgl64.Vec3) error {
	entity, err := w.playerEntity(id)
	if err != nil {
		return err
	}
	w.wanders.Get(entity).Enabled = false
	if !w.setGoal(entity, target) {
		return fmt.Errorf("world: no path for %s to %v", id, target)
	}
	return nil
}

// StopPlayer clears a player's path.
func (w *World) StopPlayer(id ai.ActorID) error {
	entity, err := w.playerEntity(id)
	if err != nil {
		return err
	}
	w.stopEntity(entity)
	return nil
}

func (w *World) playerEntity(id ai.ActorID) (ecs.Entity, error) {
	entity, ok := w.entities[id]
	if !ok || !w.ecs.Alive(entity) {
		return ecs.Entity{}, fmt.Errorf("%w: %s", ErrUnknownActor, id)
	}
	if _, isAgent := w.agents[id]; isAgent {
		return ecs.Entity{}, fmt.Errorf("world: %s is an NPC; NPCs are driven by their agent", id)
	}
	return entity, nil
}

// moveBodies advances every entity with a path by Speed*dt, consuming
// waypoints as they are reached.
func (w *World) moveBodies(dt float64) {
	if dt <= 0 {
		return
	}
	moved := false
	query := w.movers.Query()
	for query.Next() {
		_, body, motion := query.Get()
		if len(motion.Path) == 0 {
			motion.Velocity = mgl64.Vec3{}
			continue
		}
		start := body.Position
		budget := motion.Speed * dt
		for budget > 0 && len(motion.Path) > 0 {
			next := motion.Path[0]
			remaining := geom.Distance(body.Position, next)
			if remaining <= budget {
				body.Position = next
				budget -= remaining
				motion.Path = motion.Path[1:]
				continue
			}
			body.Position = body.Position.Add(geom.Direction(body.Position, next).Mul(budget))
			budget = 0
		}
		body.Position = w.clampToBounds(body.Position)
		if len(motion.Path) == 0 {
			motion.Path = nil
			motion.HasGoal = false
			motion.Velocity = mgl64.Vec3{}
		} else {
			motion.Velocity = body.Position.Sub(start).Mul(1 / dt)
		}
		moved = moved || body.Position != start
	}
	if moved {
		w.index.markDirty()
	}
}

func (w *World) clampToBounds(pos mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		geom.Clamp(pos.X(), ActorRadius, w.cfg.Width-ActorRadius),
		geom.Clamp(pos.Y(), ActorRadius, w.cfg.Height-ActorRadius),
		0,
	}
}

// updateWanderers sends idle scripted players to a random walkable point
// after they have rested for PauseFor.
func (w *World) updateWanderers(now time.Time) {
	query := w.wanderers.Query()
	for query.Next() {
		body, motion, wander := query.Get()
		if !wander.Enabled || len(motion.Path) > 0 {
			continue
		}
		if wander.NextLeave.IsZero() {
			wander.NextLeave = now.Add(wander.PauseFor)
		}
		if now.Before(wander.NextLeave) {
			continue
		}
		wander.NextLeave = time.Time{}

		angle := RandomAngle(w.rng)
		distance := RandomDistance(w.rng, wander.Radius/4, wander.Radius)
		offset := mgl64.Vec3{distance, 0, 0}
		target := body.Position.Add(geom.RotateYaw(offset, mgl64.RadToDeg(angle)))
		target, ok := w.nav.ClosestPoint(target)
		if !ok {
			continue
		}
		path, ok := w.nav.FindPath(body.Position, target)
		if !ok {
			continue
		}
		motion.Path = path
		motion.Goal = target
		motion.HasGoal = true
	}
}
