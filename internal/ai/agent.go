package ai

import (
	"errors"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/geom"
	"npc-director/server/logging"
)

// Config wires a new agent to its collaborators.
type Config struct {
	ID           ActorID
	Relationship Relationship
	Tunables     Tunables
	// Health defaults to Tunables.MaxHealth.
	Health float64
	Yaw    float64
	// Replica agents only consume snapshots and drive animation.
	Replica bool

	Nav        NavAgent
	Navigation Navigation
	World      World
	Weapon     WeaponFactory
	Animation  AnimationSink
	Lifecycle  Lifecycle
	Publisher  logging.Publisher
	Rand       *rand.Rand
}

// TickContext carries the simulation clock into Agent.Tick. Delta is in
// seconds.
type TickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// Agent is the behavioural state of one NPC. It is not safe for concurrent
// use; the simulation goroutine owns it.
type Agent struct {
	id           ActorID
	relationship Relationship
	tun          Tunables
	replica      bool

	health float64
	scared float64
	state  State
	target ActorID
	dead   bool

	attackers  map[ActorID]struct{}
	potential  []ActorID
	live       []Actor
	friends    []Actor
	enemies    []Actor
	gathered   bool
	lastGather time.Time

	weapon Weapon
	exec   executor

	eyeTarget     mgl64.Vec3
	hasEyeTarget  bool
	lookDir       mgl64.Vec3
	yaw           float64
	turning       bool
	turnTargetYaw float64
	rotationSpeed float64
	triggers      []string

	// replicated view, used when replica is set
	replicaPos      mgl64.Vec3
	replicaVelocity mgl64.Vec3
	replicaHoldType int

	nav        NavAgent
	navigation Navigation
	world      World
	anim       AnimationSink
	lifecycle  Lifecycle
	pub        logging.Publisher
	rng        *rand.Rand

	tick uint64
	now  time.Time
}

// NewAgent builds an agent. Authoritative agents need navigation and world
// collaborators; replica agents need none.
func NewAgent(cfg Config) (*Agent, error) {
	if !cfg.Replica {
		if cfg.Nav == nil {
			return nil, errors.New("ai: authoritative agent requires a nav agent")
		}
		if cfg.Navigation == nil {
			return nil, errors.New("ai: authoritative agent requires navigation")
		}
		if cfg.World == nil {
			return nil, errors.New("ai: authoritative agent requires a world")
		}
	}
	id := cfg.ID
	if id == "" {
		id = NewActorID()
	}
	tun := cfg.Tunables.Normalized()
	health := cfg.Health
	if health <= 0 || health > tun.MaxHealth {
		health = tun.MaxHealth
	}
	a := &Agent{
		id:           id,
		relationship: cfg.Relationship,
		tun:          tun,
		replica:      cfg.Replica,
		health:       health,
		state:        StateIdle,
		attackers:    make(map[ActorID]struct{}),
		yaw:          geom.NormalizeAngle(cfg.Yaw),
		nav:          cfg.Nav,
		navigation:   cfg.Navigation,
		world:        cfg.World,
		anim:         cfg.Animation,
		lifecycle:    cfg.Lifecycle,
		pub:          cfg.Publisher,
		rng:          cfg.Rand,
	}
	if a.anim == nil {
		a.anim = nopAnimation{}
	}
	if a.lifecycle == nil {
		a.lifecycle = nopLifecycle{}
	}
	if a.pub == nil {
		a.pub = logging.NopPublisher()
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if !a.replica && cfg.Weapon != nil {
		a.weapon = cfg.Weapon(id)
	}
	return a, nil
}

// Tick advances the agent by one simulation step.
func (a *Agent) Tick(tc TickContext) {
	if a.dead {
		return
	}
	a.tick = tc.Tick
	a.now = tc.Now

	if a.replica {
		a.updateLook()
		a.emitAnimation()
		a.triggers = a.triggers[:0]
		return
	}
	a.triggers = a.triggers[:0]

	a.refreshPerception(tc.Now)
	a.resolvePotential()
	a.classify()
	a.updateFear(tc.Delta)
	a.updateState(tc.Now)
	a.exec.poll(tc.Now)
	if a.dead {
		return
	}

	a.updateEyeTarget()
	a.updateBody(tc.Delta)
	a.emitAnimation()
}

func (a *Agent) ID() ActorID                { return a.id }
func (a *Agent) Kind() ActorKind            { return KindNPC }
func (a *Agent) Relationship() Relationship { return a.relationship }
func (a *Agent) Valid() bool                { return !a.dead }
func (a *Agent) Authoritative() bool        { return !a.replica }

// Position is the agent's world position as reported by navigation.
func (a *Agent) Position() mgl64.Vec3 {
	if a.replica || a.nav == nil {
		return a.replicaPos
	}
	return a.nav.Position()
}

// EyePosition is EyeHeight above the agent's feet.
func (a *Agent) EyePosition() mgl64.Vec3 {
	return a.Position().Add(geom.Up.Mul(a.tun.EyeHeight))
}

// Velocity is the navigation velocity.
func (a *Agent) Velocity() mgl64.Vec3 {
	if a.replica || a.nav == nil {
		return a.replicaVelocity
	}
	return a.nav.Velocity()
}

func (a *Agent) Health() float64        { return a.health }
func (a *Agent) MaxHealth() float64     { return a.tun.MaxHealth }
func (a *Agent) ScaredLevel() float64   { return a.scared }
func (a *Agent) CurrentState() State    { return a.state }
func (a *Agent) CurrentTarget() ActorID { return a.target }
func (a *Agent) Tunables() Tunables     { return a.tun }
func (a *Agent) Weapon() Weapon         { return a.weapon }
func (a *Agent) Yaw() float64           { return a.yaw }
func (a *Agent) RotationSpeed() float64 { return a.rotationSpeed }

// EyeTarget returns the world point the agent is looking at, if any.
func (a *Agent) EyeTarget() (mgl64.Vec3, bool) {
	return a.eyeTarget, a.hasEyeTarget
}

// IsAttacker reports whether id has damaged the agent since the last escape.
func (a *Agent) IsAttacker(id ActorID) bool {
	_, ok := a.attackers[id]
	return ok
}

// Attackers lists remembered attackers in no particular order.
func (a *Agent) Attackers() []ActorID {
	out := make([]ActorID, 0, len(a.attackers))
	for id := range a.attackers {
		out = append(out, id)
	}
	return out
}

// PotentialTargets returns a copy of the cached perception IDs.
func (a *Agent) PotentialTargets() []ActorID {
	return append([]ActorID(nil), a.potential...)
}

// Friends returns this tick's friends.
func (a *Agent) Friends() []Actor {
	return append([]Actor(nil), a.friends...)
}

// Enemies returns this tick's enemies.
func (a *Agent) Enemies() []Actor {
	return append([]Actor(nil), a.enemies...)
}

func (a *Agent) resolveTarget() (Actor, bool) {
	if a.target == "" || a.world == nil {
		return nil, false
	}
	actor, ok := a.world.Resolve(a.target)
	if !ok || actor == nil || !actor.Valid() {
		return nil, false
	}
	return actor, true
}

func (a *Agent) distanceTo(actor Actor) float64 {
	return geom.Distance(a.Position(), actor.Position())
}

// hasLineOfSight traces eye to eye, ignoring triggers and the agent itself.
func (a *Agent) hasLineOfSight(target Actor) bool {
	return clearLine(a.world, a.EyePosition(), target, a.id)
}

func (a *Agent) ref() logging.EntityRef {
	return logging.EntityRef{ID: string(a.id), Kind: logging.EntityKindNPC}
}

func (a *Agent) targetRef() *logging.EntityRef {
	target, ok := a.resolveTarget()
	if !ok {
		return nil
	}
	ref := refFor(target)
	return &ref
}

func refFor(actor Actor) logging.EntityRef {
	kind := logging.EntityKindUnknown
	switch actor.Kind() {
	case KindPlayer:
		kind = logging.EntityKindPlayer
	case KindNPC:
		kind = logging.EntityKindNPC
	}
	return logging.EntityRef{ID: string(actor.ID()), Kind: kind}
}
