package intake

import (
	"math"
	"time"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/net/proto"
	"npc-director/server/internal/sim"
)

const (
	// CommandRejectInvalidAction marks payloads that do not describe a command.
	CommandRejectInvalidAction = "invalid_action"
	// CommandRejectUnknownActor marks commands naming an actor not in the
	// latest frame.
	CommandRejectUnknownActor = "unknown_actor"
	// CommandRejectWrongKind marks commands sent to the wrong kind of actor,
	// such as a path for an NPC.
	CommandRejectWrongKind = "wrong_actor_kind"
)

// Enqueuer stages commands for the next tick. *sim.Loop satisfies it.
type Enqueuer interface {
	Enqueue(cmd sim.Command) (bool, string)
}

// CommandContext carries what staging needs. Lookup reports the kind of a
// live actor and must be safe to call off the simulation goroutine.
type CommandContext struct {
	Engine Enqueuer
	Lookup func(id string) (ai.ActorKind, bool)
	Tick   func() uint64
	Now    func() time.Time
}

// StageClientCommand validates msg and enqueues the command it carries.
func StageClientCommand(ctx CommandContext, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok || msg.Actor == "" {
		return zero, false, CommandRejectInvalidAction
	}

	want := ai.ActorKind(0)
	switch command.Type {
	case sim.CommandDamage:
		if command.Damage == nil || !validAmount(command.Damage.Amount) {
			return zero, false, CommandRejectInvalidAction
		}
	case sim.CommandScare:
		if command.Scare == nil || !validAmount(command.Scare.Amount) {
			return zero, false, CommandRejectInvalidAction
		}
		want = ai.KindNPC
	case sim.CommandSetPath:
		if command.Path == nil || !finite(command.Path.TargetX) || !finite(command.Path.TargetY) {
			return zero, false, CommandRejectInvalidAction
		}
		want = ai.KindPlayer
	case sim.CommandClearPath:
		want = ai.KindPlayer
	default:
		return zero, false, CommandRejectInvalidAction
	}

	if ctx.Lookup != nil {
		kind, ok := ctx.Lookup(msg.Actor)
		if !ok {
			return zero, false, CommandRejectUnknownActor
		}
		if want != 0 && kind != want {
			return zero, false, CommandRejectWrongKind
		}
	}

	command.ActorID = msg.Actor
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}

func validAmount(v float64) bool {
	return finite(v) && v > 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
