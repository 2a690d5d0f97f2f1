package replica

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/sim"
	"npc-director/server/internal/world"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type sinkRegistry map[ai.ActorID]*world.AnimationParams

func (r sinkRegistry) factory(id ai.ActorID) ai.AnimationSink {
	params := world.NewAnimationParams()
	r[id] = params
	return params
}

func agentSnapshot(id ai.ActorID, state ai.State) ai.Snapshot {
	return ai.Snapshot{
		ID:        id,
		State:     state,
		Health:    80,
		MaxHealth: 100,
		Position:  mgl64.Vec3{100, 100, 0},
		Velocity:  mgl64.Vec3{50, 0, 0},
		HoldType:  2,
		Alive:     true,
	}
}

func TestStoreMirrorsAgentsAndDrivesAnimation(t *testing.T) {
	sinks := sinkRegistry{}
	store := NewStore(sinks.factory)

	attacker := agentSnapshot("npc-a", ai.StateAttack)
	attacker.Triggers = []string{ai.TriggerAttack}
	require.NoError(t, store.Apply(Frame{
		Tick:    1,
		Time:    epoch,
		Agents:  []ai.Snapshot{attacker, agentSnapshot("npc-b", ai.StateIdle)},
		Players: []sim.PlayerState{{ID: "p1", Health: 100, MaxHealth: 100}},
	}))

	assert.Equal(t, uint64(1), store.Tick())
	assert.Equal(t, 2, store.Len())
	require.Contains(t, sinks, ai.ActorID("npc-a"))
	values := sinks["npc-a"].Values()
	assert.Equal(t, 2, values[ai.AnimHoldType])
	assert.InDelta(t, 50, values[ai.AnimMoveSpeed].(float64), 1e-9)
	assert.Equal(t, 1, sinks["npc-a"].Triggers()[ai.TriggerAttack])

	view, ok := store.Agent("npc-a")
	require.True(t, ok)
	assert.Equal(t, ai.StateAttack, view.State)
	assert.InDelta(t, 80, view.Health, 1e-9)
	assert.Equal(t, mgl64.Vec3{100, 100, 0}, view.Position)

	ids := []ai.ActorID{}
	for _, snap := range store.Agents() {
		ids = append(ids, snap.ID)
	}
	assert.Equal(t, []ai.ActorID{"npc-a", "npc-b"}, ids)
	assert.Len(t, store.Players(), 1)
}

func TestStoreReusesReplicaAcrossFrames(t *testing.T) {
	sinks := sinkRegistry{}
	store := NewStore(sinks.factory)

	first := agentSnapshot("npc-a", ai.StateIdle)
	require.NoError(t, store.Apply(Frame{Tick: 1, Time: epoch, Agents: []ai.Snapshot{first}}))
	sink := sinks["npc-a"]

	second := agentSnapshot("npc-a", ai.StateFlee)
	second.Scared = 70
	require.NoError(t, store.Apply(Frame{Tick: 2, Time: epoch.Add(time.Second), Agents: []ai.Snapshot{second}}))

	assert.Same(t, sink, sinks["npc-a"], "sink is created once per agent")
	view, _ := store.Agent("npc-a")
	assert.Equal(t, ai.StateFlee, view.State)
	assert.InDelta(t, 70, view.Scared, 1e-9)
}

func TestStoreDropsAgentsMissingFromFrame(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Apply(Frame{Tick: 1, Agents: []ai.Snapshot{
		agentSnapshot("npc-a", ai.StateIdle),
		agentSnapshot("npc-b", ai.StateIdle),
	}}))
	require.NoError(t, store.Apply(Frame{Tick: 2, Agents: []ai.Snapshot{
		agentSnapshot("npc-b", ai.StateIdle),
	}}))

	_, ok := store.Agent("npc-a")
	assert.False(t, ok)
	assert.Equal(t, []ai.ActorID{"npc-a"}, store.Dropped())
	assert.Empty(t, store.Dropped(), "drained")
}

func TestStoreRejectsStaleFrames(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Apply(Frame{Tick: 5}))

	err := store.Apply(Frame{Tick: 5, Agents: []ai.Snapshot{agentSnapshot("npc-a", ai.StateIdle)}})
	assert.ErrorIs(t, err, ErrStaleFrame)
	assert.Zero(t, store.Len())
}

func TestStoreAcceptsTickZeroFirst(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Apply(Frame{Tick: 0}))
	assert.ErrorIs(t, store.Apply(Frame{Tick: 0}), ErrStaleFrame)
	require.NoError(t, store.Apply(Frame{Tick: 1}))
}

func TestFrameFromSnapshotCopies(t *testing.T) {
	snapshot := sim.Snapshot{
		Tick:   9,
		Agents: []ai.Snapshot{agentSnapshot("npc-a", ai.StateIdle)},
		Ragdolls: []ai.RagdollRequest{{
			Actor:    "npc-z",
			Position: mgl64.Vec3{1, 2, 0},
		}},
	}
	frame := FrameFromSnapshot(snapshot, epoch)
	snapshot.Agents[0].Health = 1

	assert.Equal(t, uint64(9), frame.Tick)
	assert.Equal(t, epoch, frame.Time)
	got, ok := frame.Agent("npc-a")
	require.True(t, ok)
	assert.InDelta(t, 80, got.Health, 1e-9)
	assert.Len(t, frame.Ragdolls, 1)
	_, ok = frame.Agent("missing")
	assert.False(t, ok)
}
