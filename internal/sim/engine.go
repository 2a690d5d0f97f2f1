package sim

import "time"

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Apply([]Command) error
	Step(LoopTickContext)
	Snapshot() Snapshot
}

// EngineCore is the world behind the loop.
type EngineCore interface {
	Engine
	Deps() Deps
}

// LoopTickContext is the clock handed to a single step. Delta is in seconds.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult reports what a step consumed and produced.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Snapshot     Snapshot
	Commands     []Command
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	RawDelta     float64
	MaxDelta     float64
}

// LoopHooks lets callers observe the loop. All hooks run on the loop
// goroutine.
type LoopHooks struct {
	NextTick       func() uint64
	Prepare        func(LoopTickContext)
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}
