package ai

import (
	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
)

var (
	fleeAngles          = [...]float64{0, -30, 30, -60, 60, -45, 45}
	fleeDistanceFactors = [...]float64{1, 0.75, 0.5}
)

const (
	fleeNavTolerance     = 128.0
	fleeFallbackDistance = 256.0
	fleeEscapeCalm       = -10.0
)

// FleeQuery describes one escape point search.
type FleeQuery struct {
	Self       mgl64.Vec3
	Threat     mgl64.Vec3
	Facing     mgl64.Vec3
	FleeRange  float64
	Navigation Navigation
}

// FindFleePosition returns the first navigable escape point, trying the far
// distances first. When nothing projects within tolerance it returns a short
// hop straight away from the threat and false.
func FindFleePosition(q FleeQuery) (mgl64.Vec3, bool) {
	base := geom.Direction(geom.Flat(q.Threat), geom.Flat(q.Self))
	if geom.IsNearlyZero(base) {
		base = geom.Normal(geom.Flat(q.Facing))
		if geom.IsNearlyZero(base) {
			base = geom.Forward
		}
	}
	if q.Navigation != nil {
		for _, factor := range fleeDistanceFactors {
			distance := q.FleeRange * factor
			for _, angle := range fleeAngles {
				sample := q.Self.Add(geom.RotateYaw(base, angle).Mul(distance))
				projected, ok := q.Navigation.ClosestPoint(sample)
				if ok && geom.Distance(sample, projected) < fleeNavTolerance {
					return projected, true
				}
			}
		}
	}
	return q.Self.Add(base.Mul(fleeFallbackDistance)), false
}

// FleeSafe reports whether an agent at distance from its threat may stop
// fleeing. Scared agents need more distance.
func FleeSafe(distance, fleeRange, scared float64, lineOfSight bool) bool {
	multiplier := 1 + scared/100
	if distance > fleeRange*0.9*multiplier {
		return true
	}
	return distance > fleeRange*0.6*multiplier && !lineOfSight
}
