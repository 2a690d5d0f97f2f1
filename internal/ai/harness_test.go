package ai

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"npc-director/server/logging"
)

type testActor struct {
	id      ActorID
	kind    ActorKind
	rel     Relationship
	pos     mgl64.Vec3
	eyeLift float64
	invalid bool
}

func newPlayer(id string, pos mgl64.Vec3) *testActor {
	return &testActor{id: ActorID(id), kind: KindPlayer, pos: pos, eyeLift: 64}
}

func newNPC(id string, rel Relationship, pos mgl64.Vec3) *testActor {
	return &testActor{id: ActorID(id), kind: KindNPC, rel: rel, pos: pos, eyeLift: 64}
}

func (a *testActor) ID() ActorID                { return a.id }
func (a *testActor) Kind() ActorKind            { return a.kind }
func (a *testActor) Position() mgl64.Vec3       { return a.pos }
func (a *testActor) Valid() bool                { return !a.invalid }
func (a *testActor) Relationship() Relationship { return a.rel }

func (a *testActor) EyePosition() mgl64.Vec3 {
	return a.pos.Add(mgl64.Vec3{0, 0, a.eyeLift})
}

type testWorld struct {
	order       []ActorID
	actors      map[ActorID]Actor
	trace       func(Ray) TraceResult
	withinCalls int
}

func newTestWorld(actors ...Actor) *testWorld {
	w := &testWorld{actors: make(map[ActorID]Actor)}
	for _, actor := range actors {
		w.add(actor)
	}
	return w
}

func (w *testWorld) add(actor Actor) {
	w.order = append(w.order, actor.ID())
	w.actors[actor.ID()] = actor
}

func (w *testWorld) remove(id ActorID) {
	delete(w.actors, id)
}

func (w *testWorld) ActorsWithin(center mgl64.Vec3, radius float64) []Actor {
	w.withinCalls++
	var out []Actor
	for _, id := range w.order {
		actor, ok := w.actors[id]
		if !ok {
			continue
		}
		if actor.Position().Sub(center).Len() <= radius {
			out = append(out, actor)
		}
	}
	return out
}

func (w *testWorld) Resolve(id ActorID) (Actor, bool) {
	actor, ok := w.actors[id]
	return actor, ok
}

func (w *testWorld) Trace(ray Ray) TraceResult {
	if w.trace == nil {
		return TraceResult{}
	}
	return w.trace(ray)
}

type testNav struct {
	pos     mgl64.Vec3
	vel     mgl64.Vec3
	moves   []mgl64.Vec3
	stopped int
}

func (n *testNav) MoveTo(point mgl64.Vec3) { n.moves = append(n.moves, point) }
func (n *testNav) Stop()                   { n.stopped++ }
func (n *testNav) Velocity() mgl64.Vec3    { return n.vel }
func (n *testNav) Position() mgl64.Vec3    { return n.pos }

func (n *testNav) lastMove() (mgl64.Vec3, bool) {
	if len(n.moves) == 0 {
		return mgl64.Vec3{}, false
	}
	return n.moves[len(n.moves)-1], true
}

// testNavigation projects every point onto itself unless reject claims it, in
// which case the point snaps to the origin.
type testNavigation struct {
	reject func(mgl64.Vec3) bool
}

func (n testNavigation) ClosestPoint(point mgl64.Vec3) (mgl64.Vec3, bool) {
	if n.reject != nil && n.reject(point) {
		return mgl64.Vec3{}, true
	}
	return point, true
}

type testWeapon struct {
	clip      int
	ammo      int
	hold      int
	shots     []Shot
	reloadCtx context.Context
	reloads   int
	done      chan error
}

func (w *testWeapon) CanPrimaryAttack() bool { return w.ammo > 0 }
func (w *testWeapon) HasAmmo() bool          { return w.ammo > 0 }
func (w *testWeapon) HoldType() int          { return w.hold }

func (w *testWeapon) PrimaryAttack(shot Shot) {
	w.shots = append(w.shots, shot)
	w.ammo--
}

func (w *testWeapon) ReloadAsync(ctx context.Context) <-chan error {
	w.reloads++
	w.reloadCtx = ctx
	w.done = make(chan error, 1)
	return w.done
}

func (w *testWeapon) finishReload() {
	w.ammo = w.clip
	w.done <- nil
}

type testAnimation struct {
	values map[string]any
	counts map[string]int
}

func newTestAnimation() *testAnimation {
	return &testAnimation{values: make(map[string]any), counts: make(map[string]int)}
}

func (a *testAnimation) Set(name string, value any) {
	a.values[name] = value
	a.counts[name]++
}

type testLifecycle struct {
	ragdolls []RagdollRequest
	despawns []ActorID
}

func (l *testLifecycle) CreateRagdoll(req RagdollRequest) { l.ragdolls = append(l.ragdolls, req) }
func (l *testLifecycle) Despawn(id ActorID)               { l.despawns = append(l.despawns, id) }

type eventLog struct {
	mu     sync.Mutex
	events []logging.Event
}

func (l *eventLog) Publish(_ context.Context, event logging.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) ofType(eventType logging.EventType) []logging.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logging.Event
	for _, event := range l.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type agentHarness struct {
	t         *testing.T
	agent     *Agent
	world     *testWorld
	nav       *testNav
	anim      *testAnimation
	lifecycle *testLifecycle
	events    *eventLog
	weapon    *testWeapon
	tick      uint64
	now       time.Time
}

type harnessOption func(*Config, *agentHarness)

func withTunables(mutate func(*Tunables)) harnessOption {
	return func(cfg *Config, _ *agentHarness) {
		mutate(&cfg.Tunables)
	}
}

func withWeapon(w *testWeapon) harnessOption {
	return func(cfg *Config, h *agentHarness) {
		h.weapon = w
		cfg.Weapon = func(ActorID) Weapon { return w }
	}
}

func withNavigation(n Navigation) harnessOption {
	return func(cfg *Config, _ *agentHarness) {
		cfg.Navigation = n
	}
}

func newHarness(t *testing.T, rel Relationship, actors []Actor, opts ...harnessOption) *agentHarness {
	t.Helper()
	h := &agentHarness{
		t:         t,
		world:     newTestWorld(actors...),
		nav:       &testNav{},
		anim:      newTestAnimation(),
		lifecycle: &testLifecycle{},
		events:    &eventLog{},
		now:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	cfg := Config{
		ID:           "npc-under-test",
		Relationship: rel,
		Tunables:     DefaultTunables(),
		Nav:          h.nav,
		Navigation:   testNavigation{},
		World:        h.world,
		Animation:    h.anim,
		Lifecycle:    h.lifecycle,
		Publisher:    h.events,
		Rand:         rand.New(rand.NewSource(7)),
	}
	for _, opt := range opts {
		opt(&cfg, h)
	}
	agent, err := NewAgent(cfg)
	require.NoError(t, err)
	h.agent = agent
	h.world.add(agent)
	return h
}

// step advances the agent by dt on the harness clock.
func (h *agentHarness) step(dt time.Duration) {
	h.tick++
	h.now = h.now.Add(dt)
	h.agent.Tick(TickContext{Tick: h.tick, Now: h.now, Delta: dt.Seconds()})
}

// pollLoop runs only the state loop, skipping the decision, so a loop's own
// exit conditions can be observed.
func (h *agentHarness) pollLoop(dt time.Duration) {
	h.now = h.now.Add(dt)
	h.agent.exec.poll(h.now)
}
