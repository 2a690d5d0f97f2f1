// Package geom holds the small vector helpers shared by the AI core and the
// reference world. Z is up; yaw is measured in degrees counter-clockwise from
// +X.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// Up is the world up axis.
	Up = mgl64.Vec3{0, 0, 1}
	// Forward is the zero-yaw facing.
	Forward = mgl64.Vec3{1, 0, 0}
)

const nearlyZero = 1e-6

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// IsNearlyZero reports whether v has (almost) no length.
func IsNearlyZero(v mgl64.Vec3) bool {
	return v.LenSqr() < nearlyZero*nearlyZero
}

// Normal returns v scaled to unit length, or the zero vector when v has no
// meaningful direction.
func Normal(v mgl64.Vec3) mgl64.Vec3 {
	if IsNearlyZero(v) {
		return mgl64.Vec3{}
	}
	return v.Normalize()
}

// Direction returns the unit vector pointing from a to b.
func Direction(from, to mgl64.Vec3) mgl64.Vec3 {
	return Normal(to.Sub(from))
}

// WithZ replaces the Z component of v.
func WithZ(v mgl64.Vec3, z float64) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), v.Y(), z}
}

// Flat drops the vertical component.
func Flat(v mgl64.Vec3) mgl64.Vec3 {
	return WithZ(v, 0)
}

// RotateYaw rotates v around the up axis by the given angle in degrees.
func RotateYaw(v mgl64.Vec3, degrees float64) mgl64.Vec3 {
	return mgl64.Rotate3DZ(mgl64.DegToRad(degrees)).Mul3x1(v)
}

// YawForward returns the unit facing vector for a yaw in degrees.
func YawForward(degrees float64) mgl64.Vec3 {
	return RotateYaw(Forward, degrees)
}

// YawRight returns the unit vector to the right of a yaw in degrees.
func YawRight(degrees float64) mgl64.Vec3 {
	return RotateYaw(Forward, degrees-90)
}

// YawOf returns the yaw in degrees of the planar part of v.
func YawOf(v mgl64.Vec3) float64 {
	return mgl64.RadToDeg(math.Atan2(v.Y(), v.X()))
}

// NormalizeAngle wraps degrees into (-180, 180].
func NormalizeAngle(degrees float64) float64 {
	wrapped := math.Mod(degrees, 360)
	if wrapped > 180 {
		wrapped -= 360
	} else if wrapped <= -180 {
		wrapped += 360
	}
	return wrapped
}

// LerpAngle moves from toward to along the shortest arc by fraction t.
func LerpAngle(from, to, t float64) float64 {
	t = Clamp(t, 0, 1)
	return NormalizeAngle(from + NormalizeAngle(to-from)*t)
}
