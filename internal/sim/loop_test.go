package sim

import (
	"errors"
	"testing"
	"time"

	"npc-director/server/internal/ai"
)

type fakeCore struct {
	applied  [][]Command
	steps    []LoopTickContext
	applyErr error
	deps     Deps
}

func (c *fakeCore) Apply(cmds []Command) error {
	c.applied = append(c.applied, cmds)
	return c.applyErr
}

func (c *fakeCore) Step(ctx LoopTickContext) { c.steps = append(c.steps, ctx) }

func (c *fakeCore) Snapshot() Snapshot {
	tick := uint64(0)
	if len(c.steps) > 0 {
		tick = c.steps[len(c.steps)-1].Tick
	}
	return Snapshot{Tick: tick, Agents: []ai.Snapshot{{ID: "npc-1", Alive: true}}}
}

func (c *fakeCore) Deps() Deps { return c.deps }

func TestNewLoopRequiresCore(t *testing.T) {
	if loop := NewLoop(nil, LoopConfig{}, LoopHooks{}); loop != nil {
		t.Fatalf("expected nil loop without a core")
	}
}

func TestLoopConfigDefaults(t *testing.T) {
	loop := NewLoop(&fakeCore{}, LoopConfig{}, LoopHooks{})
	cfg := loop.Config()
	if cfg.TickRate != DefaultTickRate {
		t.Fatalf("expected default tick rate %d, got %d", DefaultTickRate, cfg.TickRate)
	}
	if cfg.CatchupMaxTicks != 1 {
		t.Fatalf("expected catchup floor of 1, got %d", cfg.CatchupMaxTicks)
	}
	if cfg.CommandCapacity != DefaultCommandCapacity {
		t.Fatalf("expected default capacity, got %d", cfg.CommandCapacity)
	}
}

func TestLoopAdvanceDrainsCommandsIntoCore(t *testing.T) {
	core := &fakeCore{}
	var prepared []uint64
	loop := NewLoop(core, LoopConfig{CommandCapacity: 8}, LoopHooks{
		Prepare: func(ctx LoopTickContext) { prepared = append(prepared, ctx.Tick) },
	})

	loop.Enqueue(Command{ActorID: "npc-1", Type: CommandDamage, Damage: &DamageCommand{Amount: 10}})
	loop.Enqueue(Command{ActorID: "npc-2", Type: CommandScare, Scare: &ScareCommand{Amount: 5}})
	if loop.Pending() != 2 {
		t.Fatalf("expected 2 pending commands, got %d", loop.Pending())
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := loop.Advance(LoopTickContext{Tick: 3, Now: now, Delta: 1.0 / 30})
	if loop.Pending() != 0 {
		t.Fatalf("expected the queue to drain")
	}
	if len(core.applied) != 1 || len(core.applied[0]) != 2 {
		t.Fatalf("expected both commands applied in one batch, got %+v", core.applied)
	}
	if core.applied[0][0].ActorID != "npc-1" || core.applied[0][1].ActorID != "npc-2" {
		t.Fatalf("expected FIFO order, got %+v", core.applied[0])
	}
	if len(core.steps) != 1 || core.steps[0].Tick != 3 || !core.steps[0].Now.Equal(now) {
		t.Fatalf("unexpected step context %+v", core.steps)
	}
	if len(prepared) != 1 || prepared[0] != 3 {
		t.Fatalf("expected prepare hook for tick 3, got %v", prepared)
	}
	if result.Tick != 3 || result.Snapshot.Tick != 3 || len(result.Commands) != 2 {
		t.Fatalf("unexpected step result %+v", result)
	}
}

func TestLoopAdvanceLogsApplyErrors(t *testing.T) {
	var logged []string
	core := &fakeCore{applyErr: errors.New("boom")}
	core.deps.Logger = loggerFunc(func(format string, args ...any) { logged = append(logged, format) })
	loop := NewLoop(core, LoopConfig{}, LoopHooks{})
	loop.Advance(LoopTickContext{Tick: 1})
	if len(logged) != 1 {
		t.Fatalf("expected apply error to be logged once, got %v", logged)
	}
	if len(core.steps) != 1 {
		t.Fatalf("expected the step to run despite the apply error")
	}
}

func TestLoopEnqueuePerActorLimit(t *testing.T) {
	var drops []string
	loop := NewLoop(&fakeCore{}, LoopConfig{PerActorLimit: 2, CommandCapacity: 8}, LoopHooks{
		OnCommandDrop: func(reason string, cmd Command) { drops = append(drops, reason+":"+cmd.ActorID) },
	})
	for i := 0; i < 2; i++ {
		if ok, reason := loop.Enqueue(Command{ActorID: "client-a"}); !ok {
			t.Fatalf("expected enqueue %d to succeed, got %s", i, reason)
		}
	}
	ok, reason := loop.Enqueue(Command{ActorID: "client-a"})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected queue_limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "client-b"}); !ok {
		t.Fatalf("expected another actor to be unaffected")
	}
	if len(drops) != 1 || drops[0] != "queue_limit:client-a" {
		t.Fatalf("unexpected drop callbacks %v", drops)
	}

	loop.Advance(LoopTickContext{Tick: 1})
	if ok, _ := loop.Enqueue(Command{ActorID: "client-a"}); !ok {
		t.Fatalf("expected per-actor budget to reset after a step")
	}
}

func TestLoopEnqueueRejectsWhenFull(t *testing.T) {
	loop := NewLoop(&fakeCore{}, LoopConfig{CommandCapacity: 1}, LoopHooks{})
	loop.Enqueue(Command{ActorID: "a"})
	ok, reason := loop.Enqueue(Command{ActorID: "b"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected queue_full rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestLoopQueueWarning(t *testing.T) {
	var warnings []int
	loop := NewLoop(&fakeCore{}, LoopConfig{CommandCapacity: 8, WarningStep: 2}, LoopHooks{
		OnQueueWarning: func(length int) { warnings = append(warnings, length) },
	})
	for i := 0; i < 5; i++ {
		loop.Enqueue(Command{})
	}
	if len(warnings) != 2 || warnings[0] != 2 || warnings[1] != 4 {
		t.Fatalf("expected warnings at 2 and 4, got %v", warnings)
	}
}

func TestLoopRunStopsAndReportsSteps(t *testing.T) {
	core := &fakeCore{}
	steps := make(chan LoopStepResult, 16)
	loop := NewLoop(core, LoopConfig{TickRate: 200}, LoopHooks{
		AfterStep: func(result LoopStepResult) {
			select {
			case steps <- result:
			default:
			}
		},
	})
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	var first LoopStepResult
	select {
	case first = <-steps:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not step")
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}
	if first.Tick != 1 {
		t.Fatalf("expected first tick 1, got %d", first.Tick)
	}
	if first.Budget != 5*time.Millisecond {
		t.Fatalf("expected 5ms budget, got %v", first.Budget)
	}
	if first.Delta <= 0 || first.Delta > first.MaxDelta {
		t.Fatalf("expected delta within (0, %v], got %v", first.MaxDelta, first.Delta)
	}
}

type loggerFunc func(format string, args ...any)

func (f loggerFunc) Printf(format string, args ...any) { f(format, args...) }
