package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/geom"
)

// playerActor is the ai.Actor view of a player entity. It reads the registry
// on every call so a despawned player turns invalid immediately.
type playerActor struct {
	world  *World
	id     ai.ActorID
	entity ecs.Entity
}

func (p *playerActor) ID() ai.ActorID       { return p.id }
func (p *playerActor) Kind() ai.ActorKind   { return ai.KindPlayer }
func (p *playerActor) Valid() bool          { return p.world.ecs.Alive(p.entity) }
func (p *playerActor) Position() mgl64.Vec3 { return p.body().Position }

func (p *playerActor) EyePosition() mgl64.Vec3 {
	body := p.body()
	return body.Position.Add(geom.Up.Mul(body.EyeHeight))
}

func (p *playerActor) body() Body {
	if !p.Valid() {
		return Body{}
	}
	return *p.world.bodies.Get(p.entity)
}

var _ ai.Actor = (*playerActor)(nil)
