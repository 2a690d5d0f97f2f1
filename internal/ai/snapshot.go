package ai

import (
	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
)

// Snapshot is the replicated view of an agent: everything a presentation
// client needs and nothing the decision logic owns.
type Snapshot struct {
	ID            ActorID      `json:"id"`
	Relationship  Relationship `json:"relationship"`
	State         State        `json:"state"`
	Target        ActorID      `json:"target,omitempty"`
	Health        float64      `json:"health"`
	MaxHealth     float64      `json:"maxHealth"`
	Scared        float64      `json:"scared"`
	Position      mgl64.Vec3   `json:"position"`
	Velocity      mgl64.Vec3   `json:"velocity"`
	Yaw           float64      `json:"yaw"`
	RotationSpeed float64      `json:"rotationSpeed"`
	EyeTarget     *mgl64.Vec3  `json:"eyeTarget,omitempty"`
	HoldType      int          `json:"holdType"`
	Triggers      []string     `json:"triggers,omitempty"`
	Alive         bool         `json:"alive"`
}

// Snapshot captures the agent's replicated state.
func (a *Agent) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            a.id,
		Relationship:  a.relationship,
		State:         a.state,
		Target:        a.target,
		Health:        a.health,
		MaxHealth:     a.tun.MaxHealth,
		Scared:        a.scared,
		Position:      a.Position(),
		Velocity:      a.Velocity(),
		Yaw:           a.yaw,
		RotationSpeed: a.rotationSpeed,
		HoldType:      a.holdType(),
		Alive:         !a.dead,
	}
	if a.hasEyeTarget {
		eye := a.eyeTarget
		snap.EyeTarget = &eye
	}
	if len(a.triggers) > 0 {
		snap.Triggers = append([]string(nil), a.triggers...)
	}
	return snap
}

// ApplyReplica copies an authoritative snapshot into a replica agent. It is a
// no-op on authoritative agents.
func (a *Agent) ApplyReplica(s Snapshot) {
	if !a.replica {
		return
	}
	a.relationship = s.Relationship
	a.state = s.State
	a.target = s.Target
	a.health = geom.Clamp(s.Health, 0, a.tun.MaxHealth)
	a.scared = geom.Clamp(s.Scared, 0, MaxScare)
	a.replicaPos = s.Position
	a.replicaVelocity = s.Velocity
	a.yaw = s.Yaw
	a.rotationSpeed = s.RotationSpeed
	a.replicaHoldType = s.HoldType
	a.hasEyeTarget = s.EyeTarget != nil
	if s.EyeTarget != nil {
		a.eyeTarget = *s.EyeTarget
	}
	a.triggers = append(a.triggers[:0], s.Triggers...)
	a.dead = !s.Alive
}
