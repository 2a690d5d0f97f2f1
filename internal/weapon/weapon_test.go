package weapon

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"npc-director/server/internal/ai"
	"npc-director/server/logging"
	"npc-director/server/logging/combat"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type stubActor struct {
	id   ai.ActorID
	kind ai.ActorKind
}

func (a stubActor) ID() ai.ActorID          { return a.id }
func (a stubActor) Kind() ai.ActorKind      { return a.kind }
func (a stubActor) Position() mgl64.Vec3    { return mgl64.Vec3{} }
func (a stubActor) EyePosition() mgl64.Vec3 { return mgl64.Vec3{} }
func (a stubActor) Valid() bool             { return true }

type damageCall struct {
	target ai.ActorID
	info   ai.DamageInfo
}

type fakeWorld struct {
	now       time.Time
	tick      uint64
	result    ai.TraceResult
	rays      []ai.Ray
	damage    []damageCall
	actors    map[ai.ActorID]ai.Actor
	damageErr error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{now: epoch, actors: make(map[ai.ActorID]ai.Actor)}
}

func (w *fakeWorld) Trace(ray ai.Ray) ai.TraceResult {
	w.rays = append(w.rays, ray)
	return w.result
}

func (w *fakeWorld) ApplyDamage(target ai.ActorID, info ai.DamageInfo) error {
	w.damage = append(w.damage, damageCall{target: target, info: info})
	return w.damageErr
}

func (w *fakeWorld) Resolve(id ai.ActorID) (ai.Actor, bool) {
	actor, ok := w.actors[id]
	return actor, ok
}

func (w *fakeWorld) Now() time.Time { return w.now }
func (w *fakeWorld) Tick() uint64   { return w.tick }

func (w *fakeWorld) advance(d time.Duration) {
	w.now = w.now.Add(d)
	w.tick++
}

type eventLog struct {
	events []logging.Event
}

func (l *eventLog) Publish(_ context.Context, event logging.Event) {
	l.events = append(l.events, event)
}

func (l *eventLog) types() []logging.EventType {
	out := make([]logging.EventType, 0, len(l.events))
	for _, event := range l.events {
		out = append(out, event.Type)
	}
	return out
}

func testConfig() Config {
	return Config{ClipSize: 3, FireInterval: 0.5, ReloadSeconds: 2, Damage: 10, Range: 1000, HoldType: 4}
}

func TestPrimaryAttackDamagesFirstActorHit(t *testing.T) {
	world := newFakeWorld()
	world.actors["player"] = stubActor{id: "player", kind: ai.KindPlayer}
	world.result = ai.TraceResult{Hit: true, Actor: "player", Surface: "flesh", Position: mgl64.Vec3{300, 0, 64}}
	events := &eventLog{}
	w := New(testConfig(), "npc", world, events)

	require.True(t, w.CanPrimaryAttack())
	w.PrimaryAttack(ai.Shot{Shooter: "npc", Origin: mgl64.Vec3{0, 0, 64}, Aim: mgl64.Vec3{10, 0, 64}})

	require.Len(t, world.rays, 1)
	ray := world.rays[0]
	assert.Equal(t, ai.ActorID("npc"), ray.Ignore)
	assert.InDelta(t, 1000, ray.To.X(), 1e-9, "ray extends to the weapon range")
	assert.InDelta(t, 64, ray.To.Z(), 1e-9)

	require.Len(t, world.damage, 1)
	assert.Equal(t, ai.ActorID("player"), world.damage[0].target)
	assert.Equal(t, 10.0, world.damage[0].info.Amount)
	assert.Equal(t, ai.ActorID("npc"), world.damage[0].info.Attacker)
	assert.Equal(t, []string{TagBullet}, world.damage[0].info.Tags)
	assert.Equal(t, 2, w.Clip())

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, combat.EventShotFired, event.Type)
	require.Len(t, event.Targets, 1)
	assert.Equal(t, logging.EntityKindPlayer, event.Targets[0].Kind)
	payload, ok := event.Payload.(combat.ShotFiredPayload)
	require.True(t, ok)
	assert.InDelta(t, 300, payload.Distance, 1e-9)
	assert.Equal(t, 10.0, payload.Damage)
}

func TestPrimaryAttackMissDealsNoDamage(t *testing.T) {
	world := newFakeWorld()
	world.result = ai.TraceResult{Hit: true, Surface: "concrete"}
	w := New(testConfig(), "npc", world, nil)

	w.PrimaryAttack(ai.Shot{Shooter: "npc", Origin: mgl64.Vec3{}, Aim: mgl64.Vec3{0, 5, 0}})

	assert.Empty(t, world.damage)
	assert.Equal(t, 2, w.Clip(), "a miss still spends a round")
}

func TestFireIntervalGatesShots(t *testing.T) {
	world := newFakeWorld()
	w := New(testConfig(), "npc", world, nil)
	shot := ai.Shot{Shooter: "npc", Aim: mgl64.Vec3{1, 0, 0}}

	w.PrimaryAttack(shot)
	assert.False(t, w.CanPrimaryAttack())
	w.PrimaryAttack(shot)
	assert.Equal(t, 2, w.Clip(), "second shot inside the interval is ignored")

	world.advance(500 * time.Millisecond)
	assert.True(t, w.CanPrimaryAttack())
	w.PrimaryAttack(shot)
	assert.Equal(t, 1, w.Clip())
}

func TestEmptyClipRefusesToFire(t *testing.T) {
	world := newFakeWorld()
	cfg := testConfig()
	cfg.FireInterval = 0
	w := New(cfg, "npc", world, nil)

	for i := 0; i < 5; i++ {
		w.PrimaryAttack(ai.Shot{Aim: mgl64.Vec3{1, 0, 0}})
	}
	assert.Equal(t, 0, w.Clip())
	assert.False(t, w.HasAmmo())
	assert.False(t, w.CanPrimaryAttack())
	assert.Len(t, world.rays, 3)
}

func TestReloadCompletesOnSimulationTime(t *testing.T) {
	world := newFakeWorld()
	events := &eventLog{}
	cfg := testConfig()
	cfg.FireInterval = 0
	w := New(cfg, "npc", world, events)
	for i := 0; i < 3; i++ {
		w.PrimaryAttack(ai.Shot{Aim: mgl64.Vec3{1, 0, 0}})
	}

	done := w.ReloadAsync(context.Background())
	assert.True(t, w.Reloading())
	assert.False(t, w.CanPrimaryAttack())

	world.advance(time.Second)
	w.Advance(world.Now())
	select {
	case <-done:
		t.Fatal("reload finished early")
	default:
	}

	world.advance(time.Second)
	w.Advance(world.Now())
	select {
	case err := <-done:
		assert.NoError(t, err)
	default:
		t.Fatal("reload did not finish after ReloadSeconds")
	}
	assert.Equal(t, 3, w.Clip())
	assert.False(t, w.Reloading())
	assert.True(t, w.CanPrimaryAttack())
	assert.Equal(t, combat.EventReloadCompleted, events.types()[len(events.events)-1])
}

func TestReloadCancelledByContext(t *testing.T) {
	world := newFakeWorld()
	events := &eventLog{}
	w := New(testConfig(), "npc", world, events)
	w.PrimaryAttack(ai.Shot{Aim: mgl64.Vec3{1, 0, 0}})

	ctx, cancel := context.WithCancel(context.Background())
	done := w.ReloadAsync(ctx)
	cancel()
	w.Advance(world.Now())

	err, ok := <-done
	require.True(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, w.Clip(), "cancelled reload leaves the clip untouched")
	assert.Equal(t, []logging.EventType{combat.EventShotFired, combat.EventReloadCancelled}, events.types())

	_, ok = <-done
	assert.False(t, ok, "channel yields exactly one value")
}

func TestReloadReplacesPendingReload(t *testing.T) {
	world := newFakeWorld()
	w := New(testConfig(), "npc", world, nil)

	first := w.ReloadAsync(context.Background())
	second := w.ReloadAsync(context.Background())

	assert.ErrorIs(t, <-first, context.Canceled)
	world.advance(2 * time.Second)
	w.Advance(world.Now())
	assert.NoError(t, <-second)
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{ClipSize: -1, FireInterval: -1, ReloadSeconds: -2}.normalized()
	assert.Equal(t, DefaultConfig().ClipSize, cfg.ClipSize)
	assert.Zero(t, cfg.FireInterval)
	assert.Zero(t, cfg.ReloadSeconds)
	assert.Equal(t, DefaultConfig().Range, cfg.Range)
}

func TestArmoryIssuesAndAdvances(t *testing.T) {
	world := newFakeWorld()
	world.actors["a"] = stubActor{id: "a", kind: ai.KindNPC}
	world.actors["b"] = stubActor{id: "b", kind: ai.KindNPC}
	armory := NewArmory(testConfig(), world, nil)
	factory := armory.Factory()

	wa := factory("a")
	assert.Same(t, wa, factory("a"), "one weapon per owner")
	wb := armory.Issue("b")
	assert.Equal(t, 4, wb.HoldType())

	done := wb.ReloadAsync(context.Background())
	world.advance(2 * time.Second)
	armory.Advance(world.Now())
	assert.NoError(t, <-done)

	delete(world.actors, "a")
	armory.Advance(world.Now())
	_, ok := armory.Weapon("a")
	assert.False(t, ok, "weapons of departed owners are dropped")
	_, ok = armory.Weapon("b")
	assert.True(t, ok)
}

func TestArmorySettlesReloadOfDepartedOwner(t *testing.T) {
	world := newFakeWorld()
	world.actors["a"] = stubActor{id: "a", kind: ai.KindNPC}
	armory := NewArmory(testConfig(), world, nil)
	w := armory.Issue("a")

	ctx, cancel := context.WithCancel(context.Background())
	done := w.ReloadAsync(ctx)
	delete(world.actors, "a")
	cancel()
	armory.Advance(world.Now())

	assert.ErrorIs(t, <-done, context.Canceled)
	_, ok := armory.Weapon("a")
	assert.False(t, ok)
}
