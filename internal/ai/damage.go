package ai

import (
	"context"

	"npc-director/server/internal/geom"
	"npc-director/server/logging"
	"npc-director/server/logging/npc"
)

// deathThreshold is the health below which an agent dies.
const deathThreshold = 1

// OnDamage applies a damage event. Dead and replica agents ignore it.
func (a *Agent) OnDamage(info DamageInfo) {
	if a.dead || a.replica || a.health <= 0 {
		return
	}
	if info.Attacker != "" && info.Attacker != a.id {
		a.attackers[info.Attacker] = struct{}{}
	}
	a.health = geom.Clamp(a.health-info.Amount, 0, a.tun.MaxHealth)
	a.AddScare(info.Amount * a.tun.DamageScareMultiplier)

	var attacker *logging.EntityRef
	if info.Attacker != "" {
		ref := logging.EntityRef{ID: string(info.Attacker), Kind: logging.EntityKindUnknown}
		if a.world != nil {
			if actor, ok := a.world.Resolve(info.Attacker); ok && actor != nil {
				ref = refFor(actor)
			}
		}
		attacker = &ref
	}
	npc.Damaged(context.Background(), a.pub, a.tick, a.ref(), attacker, npc.DamagedPayload{
		Amount: info.Amount,
		Health: a.health,
		Scared: a.scared,
		Tags:   info.Tags,
	})

	if a.health >= deathThreshold {
		return
	}
	a.die()
}

func (a *Agent) die() {
	a.dead = true
	a.exec.stop()
	pos := a.Position()
	velocity := a.Velocity()
	if a.nav != nil {
		a.nav.Stop()
	}
	clear(a.attackers)
	a.target = ""
	a.lifecycle.CreateRagdoll(RagdollRequest{Actor: a.id, Position: pos, Yaw: a.yaw, Velocity: velocity})
	a.lifecycle.Despawn(a.id)
	npc.Died(context.Background(), a.pub, a.tick, a.ref(), npc.DiedPayload{X: pos.X(), Y: pos.Y(), Z: pos.Z()})
}
