package ai

import (
	"context"
	"time"

	"npc-director/server/logging/npc"
)

// Poll intervals of the per-state loops.
const (
	IdlePollInterval         = 200 * time.Millisecond
	MovePollInterval         = 50 * time.Millisecond
	AttackPollInterval       = 100 * time.Millisecond
	FleePollInterval         = 150 * time.Millisecond
	FollowPollInterval       = 150 * time.Millisecond
	KeepDistancePollInterval = 150 * time.Millisecond
)

// stepFunc runs one iteration of a state loop. Returning false ends the loop.
type stepFunc func(t *task, now time.Time) bool

// task is one running state loop. The context only exists for collaborators
// that take one (weapon reloads); liveness is decided by the generation.
type task struct {
	gen      uint64
	state    State
	target   ActorID
	interval time.Duration
	nextPoll time.Time
	step     stepFunc
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

// executor holds at most one task. Starting a task cancels the previous one
// before the new one takes its first step.
type executor struct {
	generation uint64
	current    *task
}

func (e *executor) start(state State, target ActorID, interval time.Duration, step stepFunc, now time.Time) *task {
	e.stop()
	e.generation++
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		gen:      e.generation,
		state:    state,
		target:   target,
		interval: interval,
		step:     step,
		ctx:      ctx,
		cancel:   cancel,
		running:  true,
	}
	e.current = t
	e.run(t, now)
	return t
}

// stop cancels the running task, if any.
func (e *executor) stop() {
	if e.current == nil {
		return
	}
	e.current.running = false
	e.current.cancel()
	e.current = nil
}

// poll runs the current task's next iteration once its interval has elapsed.
func (e *executor) poll(now time.Time) {
	t := e.current
	if t == nil || !t.running || now.Before(t.nextPoll) {
		return
	}
	e.run(t, now)
}

func (e *executor) run(t *task, now time.Time) {
	if !e.live(t) {
		return
	}
	more := t.step(t, now)
	if !e.live(t) {
		return
	}
	if !more {
		t.running = false
		t.cancel()
		return
	}
	t.nextPoll = now.Add(t.interval)
}

// live reports whether t is still the task this executor is running.
func (e *executor) live(t *task) bool {
	return t != nil && e.current == t && t.gen == e.generation && t.running
}

// Generation is incremented every time a state loop starts.
func (a *Agent) Generation() uint64 {
	return a.exec.generation
}

// LoopRunning reports whether a state loop is still active.
func (a *Agent) LoopRunning() bool {
	return a.exec.current != nil && a.exec.current.running
}

// updateState applies the decision. A new loop starts only when the state
// changes; a loop that ended on its own stays ended while the state holds,
// whatever the decision's target.
func (a *Agent) updateState(now time.Time) {
	decision := Decide(DecisionInput{
		Self:         a.Position(),
		Relationship: a.relationship,
		Scared:       a.scared,
		Tunables:     a.tun,
		Potential:    a.live,
		Friends:      a.friends,
		Enemies:      a.enemies,
	})
	a.target = decision.Target

	if decision.State == a.state {
		if a.exec.current == nil {
			a.startLoop(decision.State, now)
		}
		return
	}

	previous := a.state
	a.state = decision.State
	npc.StateChanged(context.Background(), a.pub, a.tick, a.ref(), a.targetRef(), npc.StateChangedPayload{
		From:   previous.String(),
		To:     decision.State.String(),
		Scared: a.scared,
	})
	a.startLoop(decision.State, now)
}

func (a *Agent) startLoop(state State, now time.Time) {
	interval, step := a.loopFor(state)
	a.exec.start(state, a.target, interval, step, now)
}
