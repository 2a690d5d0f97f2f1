package ai

import (
	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
)

// Animation parameter names.
const (
	AnimMoveX         = "move_x"
	AnimMoveY         = "move_y"
	AnimMoveSpeed     = "move_speed"
	AnimRotationSpeed = "move_rotationspeed"
	AnimHoldType      = "holdtype"
	AnimAimHead       = "aim_head"
	AnimAimEyes       = "aim_eyes"
)

// emitAnimation writes the per-tick presentation parameters.
func (a *Agent) emitAnimation() {
	vel := a.Velocity()
	a.anim.Set(AnimMoveX, geom.YawForward(a.yaw).Dot(vel))
	a.anim.Set(AnimMoveY, geom.YawRight(a.yaw).Dot(vel))
	a.anim.Set(AnimMoveSpeed, vel.Len())
	a.anim.Set(AnimRotationSpeed, a.rotationSpeed)
	a.anim.Set(AnimHoldType, a.holdType())

	if !geom.IsNearlyZero(a.lookDir) {
		local := a.localLook()
		a.anim.Set(AnimAimHead, local)
		a.anim.Set(AnimAimEyes, local)
	}
	if a.replica {
		for _, name := range a.triggers {
			a.anim.Set(name, true)
		}
	}
}

// localLook is the look direction in the body frame, projected far ahead so
// close targets do not tilt the head.
func (a *Agent) localLook() mgl64.Vec3 {
	point := a.EyePosition().Add(a.lookDir.Mul(lookAheadDistance))
	return geom.Normal(geom.RotateYaw(point.Sub(a.Position()), -a.yaw))
}

func (a *Agent) holdType() int {
	if a.replica {
		return a.replicaHoldType
	}
	if a.weapon == nil {
		return 0
	}
	return a.weapon.HoldType()
}
