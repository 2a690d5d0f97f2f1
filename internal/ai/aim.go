package ai

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	baseSpreadDegrees  = 2.0
	skillSpreadFactor  = 5.0
	aimFalloffStart    = 2048.0
	aimFalloffDistance = 4096.0
)

// MaxAimSpread is the largest angular error in degrees for the given skill
// and target distance.
func MaxAimSpread(skill, distance float64) float64 {
	penalty := 1.0
	if distance > aimFalloffStart {
		penalty = 1 + (distance-aimFalloffStart)/aimFalloffDistance
	}
	return baseSpreadDegrees * (1 - skill) * skillSpreadFactor * penalty
}

// AimPoint perturbs target by a random planar offset scaled by skill and
// distance. A skill of 1 or more returns target unchanged.
func AimPoint(target mgl64.Vec3, distance, skill float64, rng *rand.Rand) mgl64.Vec3 {
	if skill >= 1 {
		return target
	}
	maxSpread := MaxAimSpread(skill, distance)
	angle := mgl64.DegToRad(rng.Float64() * 360)
	spread := mgl64.DegToRad(rng.Float64() * maxSpread)
	radius := math.Tan(spread) * distance
	return target.Add(mgl64.Vec3{math.Cos(angle) * radius, math.Sin(angle) * radius, 0})
}
