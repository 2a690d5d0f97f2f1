package ai

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
)

// DecisionInput is everything the state decision looks at.
type DecisionInput struct {
	Self         mgl64.Vec3
	Relationship Relationship
	Scared       float64
	Tunables     Tunables
	// Potential is the full live potential-target list.
	Potential []Actor
	Friends   []Actor
	Enemies   []Actor
}

// Decision is the outcome of Decide. Target is empty for Idle.
type Decision struct {
	State    State
	Target   ActorID
	Distance float64
}

// Decide picks the behaviour state. Branches are evaluated in priority order
// and the first match wins.
func Decide(in DecisionInput) Decision {
	t := in.Tunables

	if in.Scared >= t.ScaredFleeThreshold {
		if target, d, ok := nearest(in.Self, in.Potential, nil); ok {
			return Decision{State: StateFlee, Target: target.ID(), Distance: d}
		}
	}

	if target, d, ok := nearest(in.Self, in.Enemies, nil); ok {
		if d <= t.AttackRange {
			return Decision{State: StateAttack, Target: target.ID(), Distance: d}
		}
		if d <= t.DetectionRange {
			return Decision{State: StateMove, Target: target.ID(), Distance: d}
		}
	}

	if in.Relationship == Friendly {
		if target, d, ok := nearest(in.Self, in.Friends, nil); ok && target.Kind() == KindPlayer {
			desired := FollowDistanceFor(t, in.Scared)
			if d > desired+t.FollowTolerance || d < desired-t.FollowTolerance {
				return Decision{State: StateFollow, Target: target.ID(), Distance: d}
			}
		}
	}

	if in.Relationship == Neutral {
		if player, d, ok := nearest(in.Self, in.Friends, isPlayer); ok {
			if d < KeepDistanceFor(t, in.Scared)-t.FollowTolerance {
				return Decision{State: StateKeepDistance, Target: player.ID(), Distance: d}
			}
		}
	}

	return Decision{State: StateIdle}
}

// FollowDistanceFor is the follow distance of a Friendly agent. Scared agents
// stay closer.
func FollowDistanceFor(t Tunables, scared float64) float64 {
	return t.FollowDistance * (1 - scared/200)
}

// KeepDistanceFor is the distance a Neutral agent keeps from players. Scared
// agents keep more.
func KeepDistanceFor(t Tunables, scared float64) float64 {
	return t.FollowDistance + scared*2
}

func isPlayer(actor Actor) bool {
	return actor.Kind() == KindPlayer
}

// nearest returns the closest valid actor accepted by filter. Ties keep the
// earliest entry.
func nearest(from mgl64.Vec3, actors []Actor, filter func(Actor) bool) (Actor, float64, bool) {
	var (
		best     Actor
		bestDist = math.Inf(1)
	)
	for _, actor := range actors {
		if actor == nil || !actor.Valid() {
			continue
		}
		if filter != nil && !filter(actor) {
			continue
		}
		d := geom.Distance(from, actor.Position())
		if d < bestDist {
			best, bestDist = actor, d
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestDist, true
}
