package ai

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
)

const (
	lookAheadDistance  = 1024.0
	movingSpeed        = 10.0
	turnCompleteDegree = 5.0
)

// updateEyeTarget picks what the agent looks at for its current state.
func (a *Agent) updateEyeTarget() {
	var (
		target mgl64.Vec3
		ok     bool
	)
	switch {
	case a.state == StateIdle:
		target, ok = a.idleLookTarget()
	case a.state == StateFlee:
		dir := geom.Normal(a.Velocity())
		if geom.IsNearlyZero(dir) {
			dir = geom.YawForward(a.yaw)
		}
		target, ok = a.EyePosition().Add(dir.Mul(lookAheadDistance)), true
	default:
		if actor, valid := a.resolveTarget(); valid {
			if a.state == StateAttack {
				target = AimPoint(actor.EyePosition(), a.distanceTo(actor), a.tun.AimingSkill, a.rng)
			} else {
				target = actor.EyePosition()
			}
			ok = true
		}
	}
	a.SetEyeTarget(target, ok)
}

// SetEyeTarget overrides the look target until the next tick. Pass false to
// clear it.
func (a *Agent) SetEyeTarget(point mgl64.Vec3, ok bool) {
	a.eyeTarget, a.hasEyeTarget = point, ok
}

// idleLookTarget prefers the nearest friendly player in IdleLookRange and
// falls back to the nearest friendly NPC.
func (a *Agent) idleLookTarget() (mgl64.Vec3, bool) {
	self := a.Position()
	inRange := func(kind ActorKind) func(Actor) bool {
		return func(actor Actor) bool {
			return actor.Kind() == kind && geom.Distance(self, actor.Position()) <= a.tun.IdleLookRange
		}
	}
	if player, _, ok := nearest(self, a.friends, inRange(KindPlayer)); ok {
		return player.EyePosition(), true
	}
	if other, _, ok := nearest(self, a.friends, inRange(KindNPC)); ok {
		return other.EyePosition(), true
	}
	return mgl64.Vec3{}, false
}

// bodyTurnThreshold is the yaw error tolerated before the body turns.
func bodyTurnThreshold(state State, moving bool) float64 {
	switch {
	case state == StateAttack:
		return 0
	case moving && (state == StateFlee || state == StateFollow || state == StateIdle):
		return 5
	default:
		return 45
	}
}

// updateLook derives the planar look direction from the eye target.
func (a *Agent) updateLook() bool {
	if !a.hasEyeTarget {
		a.lookDir = mgl64.Vec3{}
		return false
	}
	eye := a.EyePosition()
	a.lookDir = geom.Direction(eye, geom.WithZ(a.eyeTarget, eye.Z()))
	return !geom.IsNearlyZero(a.lookDir)
}

// updateBody turns the body toward the eye target. A started turn runs until
// it is within turnCompleteDegree of where it was headed.
func (a *Agent) updateBody(dt float64) {
	if !a.updateLook() || dt <= 0 {
		a.rotationSpeed = 0
		return
	}
	moving := a.Velocity().Len() > movingSpeed
	desired := geom.YawOf(a.lookDir)
	threshold := bodyTurnThreshold(a.state, moving)

	rotate := false
	if a.turning {
		if math.Abs(geom.NormalizeAngle(a.turnTargetYaw-a.yaw)) > turnCompleteDegree {
			rotate = true
			desired = a.turnTargetYaw
		} else {
			a.turning = false
		}
	} else if math.Abs(geom.NormalizeAngle(desired-a.yaw)) > threshold {
		a.turning = true
		a.turnTargetYaw = desired
		rotate = true
	}

	if !rotate {
		a.rotationSpeed = 0
		return
	}
	previous := a.yaw
	a.yaw = geom.LerpAngle(a.yaw, desired, a.tun.BodyTurnSpeed*dt)
	a.rotationSpeed = math.Abs(geom.NormalizeAngle(a.yaw-previous)) / dt
}
