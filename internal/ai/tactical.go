package ai

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"

	"npc-director/server/internal/geom"
)

var (
	tacticalAngles          = [...]float64{-90, -45, 0, 45, 90, 135, 180, -135}
	tacticalDistanceFactors = [...]float64{1, 0.8, 1.2}
)

const (
	tacticalRandomSamples   = 5
	tacticalNavTolerance    = 64.0
	tacticalEyeLift         = 64.0
	tacticalArrivalDistance = 32.0
	tacticalFarPenalty      = 50.0
	tacticalLOSBonus        = 30.0
	tacticalLOSPenalty      = 20.0
	tacticalJitter          = 10.0
)

var losIgnoreTags = []string{"trigger"}

// TacticalQuery describes one combat reposition search.
type TacticalQuery struct {
	Self               mgl64.Vec3
	SelfID             ActorID
	Target             Actor
	CombatRange        float64
	RepositionDistance float64
	Navigation         Navigation
	World              World
	Rand               *rand.Rand
}

// TacticalCandidate is a sample that survived the navigation filter.
type TacticalCandidate struct {
	Sample      mgl64.Vec3
	Position    mgl64.Vec3
	Score       float64
	LineOfSight bool
}

// TacticalResult holds every scored candidate and the index of the winner,
// or -1 when nothing passed the filter.
type TacticalResult struct {
	Candidates []TacticalCandidate
	Best       int
}

// Position returns the selected combat position.
func (r TacticalResult) Position() (mgl64.Vec3, bool) {
	if r.Best < 0 || r.Best >= len(r.Candidates) {
		return mgl64.Vec3{}, false
	}
	return r.Candidates[r.Best].Position, true
}

// ShouldReposition reports whether the attack loop should search for a new
// combat position this iteration.
func ShouldReposition(hasPosition bool, sinceLast, interval time.Duration, distance, combatRange float64) bool {
	switch {
	case !hasPosition:
		return true
	case sinceLast > interval:
		return true
	case distance < combatRange*0.7:
		return true
	case distance > combatRange*1.5:
		return true
	}
	return false
}

// TacticalSamples generates the raw candidate points around the target: the
// fixed angle and distance grid followed by the random samples.
func TacticalSamples(self, target mgl64.Vec3, combatRange float64, rng *rand.Rand) []mgl64.Vec3 {
	toTarget := geom.Direction(geom.Flat(self), geom.Flat(target))
	samples := make([]mgl64.Vec3, 0, len(tacticalAngles)*len(tacticalDistanceFactors)+tacticalRandomSamples)
	for _, angle := range tacticalAngles {
		offset := geom.RotateYaw(toTarget, angle)
		for _, factor := range tacticalDistanceFactors {
			samples = append(samples, target.Sub(offset.Mul(combatRange*factor)))
		}
	}
	for i := 0; i < tacticalRandomSamples; i++ {
		angle := rng.Float64() * 360
		distance := combatRange * (0.7 + rng.Float64()*0.6)
		samples = append(samples, target.Sub(geom.YawForward(angle).Mul(distance)))
	}
	return samples
}

// FindTacticalPosition scores every navigable sample and picks the highest.
// Ties go to the earliest candidate.
func FindTacticalPosition(q TacticalQuery) TacticalResult {
	result := TacticalResult{Best: -1}
	if q.Target == nil || !q.Target.Valid() || q.Navigation == nil {
		return result
	}
	targetPos := q.Target.Position()
	for _, sample := range TacticalSamples(q.Self, targetPos, q.CombatRange, q.Rand) {
		projected, ok := q.Navigation.ClosestPoint(sample)
		if !ok || geom.Distance(sample, projected) > tacticalNavTolerance {
			continue
		}
		score, los := scoreTacticalPosition(q, projected)
		result.Candidates = append(result.Candidates, TacticalCandidate{
			Sample:      sample,
			Position:    projected,
			Score:       score,
			LineOfSight: los,
		})
	}
	if len(result.Candidates) == 0 {
		return result
	}
	scores := make([]float64, len(result.Candidates))
	for i, candidate := range result.Candidates {
		scores[i] = candidate.Score
	}
	result.Best = floats.MaxIdx(scores)
	return result
}

func scoreTacticalPosition(q TacticalQuery, position mgl64.Vec3) (float64, bool) {
	score := 100 - math.Abs(geom.Distance(position, q.Target.Position())-q.CombatRange)
	if geom.Distance(position, q.Self) > q.RepositionDistance*2 {
		score -= tacticalFarPenalty
	}
	los := clearLine(q.World, position.Add(geom.Up.Mul(tacticalEyeLift)), q.Target, q.SelfID)
	if los {
		score += tacticalLOSBonus
	} else {
		score -= tacticalLOSPenalty
	}
	score += (q.Rand.Float64()*2 - 1) * tacticalJitter
	return score, los
}

// clearLine reports whether nothing but target blocks the segment from the
// given point to the target's eye.
func clearLine(world World, from mgl64.Vec3, target Actor, ignore ActorID) bool {
	if world == nil || target == nil || !target.Valid() {
		return false
	}
	hit := world.Trace(Ray{From: from, To: target.EyePosition(), IgnoreTags: losIgnoreTags, Ignore: ignore})
	return !hit.Hit || hit.Actor == target.ID()
}
