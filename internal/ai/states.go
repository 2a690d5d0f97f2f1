package ai

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
	"npc-director/server/logging/npc"
)

// Animation trigger names fired from the attack loop.
const (
	TriggerAttack = "b_attack"
	TriggerReload = "b_reload"
)

func (a *Agent) loopFor(state State) (time.Duration, stepFunc) {
	switch state {
	case StateMove:
		return MovePollInterval, a.moveStep
	case StateAttack:
		return AttackPollInterval, a.newAttackLoop().step
	case StateFlee:
		return FleePollInterval, a.fleeStep
	case StateFollow:
		return FollowPollInterval, a.followStep
	case StateKeepDistance:
		return KeepDistancePollInterval, a.keepDistanceStep
	default:
		return IdlePollInterval, a.newIdleLoop()
	}
}

// newIdleLoop holds the current position and never ends on its own.
func (a *Agent) newIdleLoop() stepFunc {
	holding := false
	return func(*task, time.Time) bool {
		if !holding {
			a.nav.MoveTo(a.Position())
			holding = true
		}
		return true
	}
}

func (a *Agent) moveStep(_ *task, _ time.Time) bool {
	target, ok := a.resolveTarget()
	if !ok {
		return false
	}
	a.nav.MoveTo(target.Position())
	d := a.distanceTo(target)
	return d > a.tun.AttackRange && d <= a.tun.DetectionRange
}

type attackLoop struct {
	agent          *Agent
	started        bool
	lastReposition time.Time
	combatPosition mgl64.Vec3
	hasPosition    bool
	reload         <-chan error
}

func (a *Agent) newAttackLoop() *attackLoop {
	return &attackLoop{agent: a}
}

func (l *attackLoop) step(t *task, now time.Time) bool {
	a := l.agent
	if !l.started {
		l.started = true
		l.lastReposition = now
	}

	// A pending reload suspends the loop until the weapon reports back.
	if l.reload != nil {
		select {
		case err := <-l.reload:
			l.reload = nil
			if err != nil {
				return false
			}
		default:
		}
		return true
	}

	target, ok := a.resolveTarget()
	if !ok {
		return false
	}
	d := a.distanceTo(target)
	if d > a.tun.AttackRange {
		return false
	}

	if ShouldReposition(l.hasPosition, now.Sub(l.lastReposition), a.tun.repositionInterval(), d, a.tun.CombatRange) {
		result := FindTacticalPosition(TacticalQuery{
			Self:               a.Position(),
			SelfID:             a.id,
			Target:             target,
			CombatRange:        a.tun.CombatRange,
			RepositionDistance: a.tun.RepositionDistance,
			Navigation:         a.navigation,
			World:              a.world,
			Rand:               a.rng,
		})
		if pos, found := result.Position(); found {
			l.combatPosition = pos
			l.hasPosition = true
			l.lastReposition = now
			a.nav.MoveTo(pos)
			npc.Repositioned(context.Background(), a.pub, a.tick, a.ref(), refFor(target), npc.RepositionedPayload{
				X:          pos.X(),
				Y:          pos.Y(),
				Z:          pos.Z(),
				Score:      result.Candidates[result.Best].Score,
				Candidates: len(result.Candidates),
			})
		}
	} else if l.hasPosition && geom.Distance(a.Position(), l.combatPosition) > tacticalArrivalDistance {
		a.nav.MoveTo(l.combatPosition)
	}

	if a.weapon == nil {
		return true
	}
	if a.weapon.CanPrimaryAttack() {
		a.trigger(TriggerAttack)
		a.weapon.PrimaryAttack(Shot{Shooter: a.id, Origin: a.EyePosition(), Aim: a.shotAim(target, d)})
		if !a.exec.live(t) {
			return false
		}
	}
	if !a.weapon.HasAmmo() {
		a.trigger(TriggerReload)
		npc.ReloadStarted(context.Background(), a.pub, a.tick, a.ref())
		l.reload = a.weapon.ReloadAsync(t.ctx)
	}
	return true
}

// shotAim deviates the loop target's eye by the aiming skill. The eye target
// is not used because it still holds last tick's look point on the first
// step after a state change.
func (a *Agent) shotAim(target Actor, distance float64) mgl64.Vec3 {
	return AimPoint(target.EyePosition(), distance, a.tun.AimingSkill, a.rng)
}

func (a *Agent) fleeStep(_ *task, _ time.Time) bool {
	threat, ok := a.resolveTarget()
	if !ok {
		return false
	}
	d := a.distanceTo(threat)
	los := a.hasLineOfSight(threat)
	if FleeSafe(d, a.tun.FleeRange, a.scared, los) {
		before := a.scared
		clear(a.attackers)
		a.AddScare(fleeEscapeCalm)
		npc.FleeEscaped(context.Background(), a.pub, a.tick, a.ref(), refFor(threat), npc.FleeEscapedPayload{
			Distance:     d,
			LineOfSight:  los,
			ScaredBefore: before,
		})
		return false
	}
	pos, _ := FindFleePosition(FleeQuery{
		Self:       a.Position(),
		Threat:     threat.Position(),
		Facing:     geom.YawForward(a.yaw),
		FleeRange:  a.tun.FleeRange,
		Navigation: a.navigation,
	})
	a.nav.MoveTo(pos)
	return true
}

func (a *Agent) followStep(_ *task, _ time.Time) bool {
	target, ok := a.resolveTarget()
	if !ok || target.Kind() != KindPlayer {
		return false
	}
	d := a.distanceTo(target)
	desired := FollowDistanceFor(a.tun, a.scared)
	if d >= desired-a.tun.FollowTolerance && d <= desired+a.tun.FollowTolerance {
		return false
	}
	dir := geom.Direction(a.Position(), target.Position())
	a.nav.MoveTo(target.Position().Sub(dir.Mul(desired)))
	return true
}

func (a *Agent) keepDistanceStep(_ *task, _ time.Time) bool {
	target, ok := a.resolveTarget()
	if !ok {
		return false
	}
	d := a.distanceTo(target)
	desired := KeepDistanceFor(a.tun, a.scared)
	if d >= desired-a.tun.FollowTolerance {
		return false
	}
	dir := geom.Direction(target.Position(), a.Position())
	a.nav.MoveTo(a.Position().Add(dir.Mul(desired - d + a.tun.FollowTolerance)))
	return true
}

// trigger fires a one-shot animation parameter and records it for replicas.
func (a *Agent) trigger(name string) {
	a.anim.Set(name, true)
	a.triggers = append(a.triggers, name)
}
