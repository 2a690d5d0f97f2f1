package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/sim"
	"npc-director/server/logging"
	"npc-director/server/logging/lifecycle"
)

var (
	ErrDuplicateActor = errors.New("world: actor already registered")
	ErrUnknownActor   = errors.New("world: unknown actor")
	ErrNotWalkable    = errors.New("world: spawn point is not walkable")
)

// Advancer is ticked after the agents every step. Weapons use it to finish
// reloads on simulation time.
type Advancer interface {
	Advance(now time.Time)
}

// World is the reference world service behind the NPC core: an entity
// registry, obstacle geometry, navigation and line-of-sight. It is owned by
// the simulation goroutine and is not safe for concurrent use.
type World struct {
	cfg Config

	ecs          *ecs.World
	npcMapper    *ecs.Map3[Identity, Body, Motion]
	playerMapper *ecs.Map5[Identity, Body, Motion, Vitals, Wander]
	movers       *ecs.Filter3[Identity, Body, Motion]
	wanderers    *ecs.Filter3[Body, Motion, Wander]
	identities   *ecs.Map1[Identity]
	bodies       *ecs.Map1[Body]
	motions      *ecs.Map1[Motion]
	vitals       *ecs.Map1[Vitals]
	wanders      *ecs.Map1[Wander]

	entities map[ai.ActorID]ecs.Entity
	agents   map[ai.ActorID]*ai.Agent
	anims    map[ai.ActorID]*AnimationParams

	obstacles []Obstacle
	nav       *Navigation
	index     spatialIndex
	rng       *rand.Rand

	advancers []Advancer
	ragdolls  []ai.RagdollRequest
	reported  int

	deps sim.Deps
	pub  logging.Publisher
	tick uint64
	now  time.Time
}

// New builds a world from cfg. Configured obstacles are placed first, then
// RandomObstacles more are generated from the seed.
func New(cfg Config, deps sim.Deps) *World {
	cfg = cfg.normalized()
	pub := deps.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
		deps.Publisher = pub
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}

	obstacles := append([]Obstacle(nil), cfg.Obstacles...)
	obstacleRNG := NewDeterministicRNG(cfg.Seed, "obstacles")
	obstacles = append(obstacles, GenerateObstacles(cfg, obstacleRNG, cfg.RandomObstacles, obstacles)...)

	world := ecs.NewWorld()
	w := &World{
		cfg:          cfg,
		ecs:          world,
		npcMapper:    ecs.NewMap3[Identity, Body, Motion](world),
		playerMapper: ecs.NewMap5[Identity, Body, Motion, Vitals, Wander](world),
		movers:       ecs.NewFilter3[Identity, Body, Motion](world),
		wanderers:    ecs.NewFilter3[Body, Motion, Wander](world),
		identities:   ecs.NewMap1[Identity](world),
		bodies:       ecs.NewMap1[Body](world),
		motions:      ecs.NewMap1[Motion](world),
		vitals:       ecs.NewMap1[Vitals](world),
		wanders:      ecs.NewMap1[Wander](world),
		entities:     make(map[ai.ActorID]ecs.Entity),
		agents:       make(map[ai.ActorID]*ai.Agent),
		anims:        make(map[ai.ActorID]*AnimationParams),
		obstacles:    obstacles,
		nav:          NewNavigation(obstacles, cfg.Width, cfg.Height, cfg.NavCellSize),
		rng:          NewDeterministicRNG(cfg.Seed, "world"),
		deps:         deps,
		pub:          pub,
		now:          deps.Clock.Now(),
	}
	return w
}

// Deps implements sim.EngineCore.
func (w *World) Deps() sim.Deps { return w.deps }

func (w *World) Config() Config               { return w.cfg }
func (w *World) Navigation() *Navigation      { return w.nav }
func (w *World) Publisher() logging.Publisher { return w.pub }
func (w *World) Tick() uint64                 { return w.tick }
func (w *World) Now() time.Time               { return w.now }

// Obstacles returns a copy of the placed obstacles.
func (w *World) Obstacles() []Obstacle {
	return slices.Clone(w.obstacles)
}

// Rand is the world's deterministic generator, shared by spawners.
func (w *World) Rand() *rand.Rand { return w.rng }

// RegisterAdvancer adds a component ticked after the agents each step.
func (w *World) RegisterAdvancer(a Advancer) {
	if a == nil {
		return
	}
	w.advancers = append(w.advancers, a)
}

// PlayerSpec describes a player to place in the world.
type PlayerSpec struct {
	ID        ai.ActorID
	Position  mgl64.Vec3
	Speed     float64
	Health    float64
	EyeHeight float64
	// WanderRadius > 0 makes the player walk between random points.
	WanderRadius float64
	WanderPause  time.Duration
}

// SpawnPlayer registers a player entity.
func (w *World) SpawnPlayer(spec PlayerSpec) (ai.ActorID, error) {
	id := spec.ID
	if id == "" {
		id = ai.NewActorID()
	}
	if _, exists := w.entities[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateActor, id)
	}
	pos, ok := w.nav.ClosestPoint(spec.Position)
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrNotWalkable, spec.Position)
	}
	speed := spec.Speed
	if speed <= 0 {
		speed = DefaultPlayerSpeed
	}
	health := spec.Health
	if health <= 0 {
		health = DefaultPlayerHealth
	}
	eye := spec.EyeHeight
	if eye <= 0 {
		eye = DefaultEyeHeight
	}

	identity := Identity{ID: id, Kind: ai.KindPlayer}
	body := Body{Position: pos, EyeHeight: eye, Radius: ActorRadius}
	motion := Motion{Speed: speed}
	vitals := Vitals{Health: health, MaxHealth: health}
	wander := Wander{Enabled: spec.WanderRadius > 0, Radius: spec.WanderRadius, PauseFor: spec.WanderPause}
	entity := w.playerMapper.NewEntity(&identity, &body, &motion, &vitals, &wander)
	w.entities[id] = entity
	w.index.markDirty()

	lifecycle.ActorSpawned(context.Background(), w.pub, w.tick, logging.EntityRef{ID: string(id), Kind: logging.EntityKindPlayer}, lifecycle.ActorSpawnedPayload{
		X: pos.X(),
		Y: pos.Y(),
	})
	return id, nil
}

// NPCSpec describes an agent to place in the world.
type NPCSpec struct {
	ID           ai.ActorID
	Profile      string
	Relationship ai.Relationship
	Tunables     ai.Tunables
	Position     mgl64.Vec3
	Yaw          float64
	Weapon       ai.WeaponFactory
}

// SpawnNPC registers an NPC entity and builds its authoritative agent.
func (w *World) SpawnNPC(spec NPCSpec) (*ai.Agent, error) {
	id := spec.ID
	if id == "" {
		id = ai.NewActorID()
	}
	if _, exists := w.entities[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActor, id)
	}
	pos, ok := w.nav.ClosestPoint(spec.Position)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotWalkable, spec.Position)
	}
	tun := spec.Tunables.Normalized()

	identity := Identity{ID: id, Kind: ai.KindNPC}
	body := Body{Position: pos, EyeHeight: tun.EyeHeight, Radius: ActorRadius}
	motion := Motion{Speed: tun.MoveSpeed}
	entity := w.npcMapper.NewEntity(&identity, &body, &motion)

	anim := NewAnimationParams()
	agent, err := ai.NewAgent(ai.Config{
		ID:           id,
		Relationship: spec.Relationship,
		Tunables:     tun,
		Yaw:          spec.Yaw,
		Nav:          &navHandle{world: w, entity: entity},
		Navigation:   w.nav,
		World:        w,
		Weapon:       spec.Weapon,
		Animation:    anim,
		Lifecycle:    w,
		Publisher:    w.pub,
		Rand:         rand.New(rand.NewSource(DeterministicSeedValue(w.cfg.Seed, string(id)))),
	})
	if err != nil {
		w.ecs.RemoveEntity(entity)
		return nil, fmt.Errorf("world: build agent %s: %w", id, err)
	}
	w.entities[id] = entity
	w.agents[id] = agent
	w.anims[id] = anim
	w.index.markDirty()

	lifecycle.ActorSpawned(context.Background(), w.pub, w.tick, logging.EntityRef{ID: string(id), Kind: logging.EntityKindNPC}, lifecycle.ActorSpawnedPayload{
		X:            pos.X(),
		Y:            pos.Y(),
		Relationship: spec.Relationship.String(),
		Profile:      spec.Profile,
	})
	return agent, nil
}

// Agent returns the live agent registered under id.
func (w *World) Agent(id ai.ActorID) (*ai.Agent, bool) {
	agent, ok := w.agents[id]
	return agent, ok
}

// Agents returns the live agents sorted by ID.
func (w *World) Agents() []*ai.Agent {
	agents := make([]*ai.Agent, 0, len(w.agents))
	for _, agent := range w.agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID() < agents[j].ID() })
	return agents
}

// Animation returns the last presentation parameters emitted by an agent.
func (w *World) Animation(id ai.ActorID) (map[string]any, bool) {
	anim, ok := w.anims[id]
	if !ok {
		return nil, false
	}
	return anim.Values(), true
}

// Resolve implements ai.World. NPCs resolve to their agent, players to a
// handle reading the registry.
func (w *World) Resolve(id ai.ActorID) (ai.Actor, bool) {
	entity, ok := w.entities[id]
	if !ok || !w.ecs.Alive(entity) {
		return nil, false
	}
	if agent, ok := w.agents[id]; ok {
		return agent, true
	}
	return &playerActor{world: w, id: id, entity: entity}, true
}

// ActorsWithin implements ai.World. Results are nearest first.
func (w *World) ActorsWithin(center mgl64.Vec3, radius float64) []ai.Actor {
	if w.index.dirty {
		w.rebuildIndex()
	}
	ids := w.index.within(center, radius)
	actors := make([]ai.Actor, 0, len(ids))
	for _, id := range ids {
		if actor, ok := w.Resolve(id); ok {
			actors = append(actors, actor)
		}
	}
	return actors
}

func (w *World) rebuildIndex() {
	points := make(actorPoints, 0, len(w.entities))
	query := w.movers.Query()
	for query.Next() {
		identity, body, _ := query.Get()
		points = append(points, actorPoint{id: identity.ID, pos: body.Position})
	}
	w.index.rebuild(points)
}

// Players returns the IDs of registered players sorted by ID.
func (w *World) Players() []ai.ActorID {
	ids := make([]ai.ActorID, 0, len(w.entities))
	for id := range w.entities {
		if _, isAgent := w.agents[id]; !isAgent {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Apply implements sim.Engine.
func (w *World) Apply(cmds []sim.Command) error {
	var errs []error
	for _, cmd := range cmds {
		if err := w.applyCommand(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *World) applyCommand(cmd sim.Command) error {
	id := ai.ActorID(cmd.ActorID)
	switch cmd.Type {
	case sim.CommandDamage:
		if cmd.Damage == nil {
			return fmt.Errorf("world: damage command for %s without payload", id)
		}
		return w.ApplyDamage(id, ai.DamageInfo{
			Amount:   cmd.Damage.Amount,
			Attacker: ai.ActorID(cmd.Damage.Attacker),
			Tags:     cmd.Damage.Tags,
		})
	case sim.CommandScare:
		if cmd.Scare == nil {
			return fmt.Errorf("world: scare command for %s without payload", id)
		}
		agent, ok := w.agents[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownActor, id)
		}
		agent.AddScare(cmd.Scare.Amount)
		return nil
	case sim.CommandSetPath:
		if cmd.Path == nil {
			return fmt.Errorf("world: path command for %s without payload", id)
		}
		return w.MovePlayer(id, mgl64.Vec3{cmd.Path.TargetX, cmd.Path.TargetY, 0})
	case sim.CommandClearPath:
		return w.StopPlayer(id)
	case sim.CommandHeartbeat:
		return nil
	default:
		return fmt.Errorf("world: unsupported command %q", cmd.Type)
	}
}

// Step implements sim.Engine: bodies move, wanderers pick goals, agents tick
// in ID order, then advancers run.
func (w *World) Step(ctx sim.LoopTickContext) {
	w.tick = ctx.Tick
	w.now = ctx.Now

	w.updateWanderers(ctx.Now)
	w.moveBodies(ctx.Delta)
	w.rebuildIndex()

	tc := ai.TickContext{Tick: ctx.Tick, Now: ctx.Now, Delta: ctx.Delta}
	for _, agent := range w.Agents() {
		if _, live := w.agents[agent.ID()]; !live {
			continue
		}
		agent.Tick(tc)
	}
	for _, advancer := range w.advancers {
		advancer.Advance(ctx.Now)
	}
}

// Snapshot implements sim.Engine. Ragdolls are those created since the
// previous snapshot.
func (w *World) Snapshot() sim.Snapshot {
	snap := sim.Snapshot{Tick: w.tick}
	for _, agent := range w.Agents() {
		snap.Agents = append(snap.Agents, agent.Snapshot())
	}
	for _, id := range w.Players() {
		entity := w.entities[id]
		body := w.bodies.Get(entity)
		motion := w.motions.Get(entity)
		vitals := w.vitals.Get(entity)
		snap.Players = append(snap.Players, sim.PlayerState{
			ID:        string(id),
			Position:  body.Position,
			Velocity:  motion.Velocity,
			Health:    vitals.Health,
			MaxHealth: vitals.MaxHealth,
		})
	}
	if w.reported < len(w.ragdolls) {
		snap.Ragdolls = slices.Clone(w.ragdolls[w.reported:])
		w.reported = len(w.ragdolls)
	}
	return snap
}

var _ sim.EngineCore = (*World)(nil)
var _ ai.World = (*World)(nil)
