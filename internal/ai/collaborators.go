package ai

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
)

// NavAgent is the agent's handle on the navigation service. The core only
// issues destinations; path planning happens behind MoveTo.
type NavAgent interface {
	MoveTo(point mgl64.Vec3)
	Stop()
	Velocity() mgl64.Vec3
	Position() mgl64.Vec3
}

// Navigation projects points onto the navigable surface.
type Navigation interface {
	ClosestPoint(point mgl64.Vec3) (mgl64.Vec3, bool)
}

// Ray describes a line-of-sight query.
type Ray struct {
	From       mgl64.Vec3
	To         mgl64.Vec3
	IgnoreTags []string
	// Ignore is skipped when testing actors, normally the caster.
	Ignore ActorID
}

// TraceResult is the outcome of a ray query.
type TraceResult struct {
	Hit      bool
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	Surface  string
	Actor    ActorID
	Tags     []string
}

// World answers perception and line-of-sight queries.
type World interface {
	ActorsWithin(center mgl64.Vec3, radius float64) []Actor
	Resolve(id ActorID) (Actor, bool)
	Trace(ray Ray) TraceResult
}

// Shot is a single primary attack aimed at a world point.
type Shot struct {
	Shooter ActorID
	Origin  mgl64.Vec3
	Aim     mgl64.Vec3
}

// Weapon is the optional combat component carried by an agent.
type Weapon interface {
	CanPrimaryAttack() bool
	PrimaryAttack(shot Shot)
	HasAmmo() bool
	// ReloadAsync starts a reload. The returned channel yields exactly one
	// value: nil on completion or ctx.Err() when cancelled first.
	ReloadAsync(ctx context.Context) <-chan error
	HoldType() int
}

// WeaponFactory builds a weapon for a freshly activated agent.
type WeaponFactory func(owner ActorID) Weapon

// AnimationSink receives named presentation parameters. Nothing is read back.
type AnimationSink interface {
	Set(name string, value any)
}

// RagdollRequest carries what the ragdoll factory needs to pose a corpse.
type RagdollRequest struct {
	Actor    ActorID
	Position mgl64.Vec3
	Yaw      float64
	Velocity mgl64.Vec3
}

// Lifecycle creates ragdolls and removes dead agents from the world.
type Lifecycle interface {
	CreateRagdoll(req RagdollRequest)
	Despawn(id ActorID)
}

// DamageInfo is delivered by the damage event source.
type DamageInfo struct {
	Amount   float64
	Attacker ActorID
	Tags     []string
}

type nopAnimation struct{}

func (nopAnimation) Set(string, any) {}

type nopLifecycle struct{}

func (nopLifecycle) CreateRagdoll(RagdollRequest) {}
func (nopLifecycle) Despawn(ActorID)              {}
