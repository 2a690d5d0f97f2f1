// Package replica carries authoritative agent state to presentation clients
// and keeps replica agents in step with it.
package replica

import (
	"slices"
	"time"

	"npc-director/server/internal/ai"
	"npc-director/server/internal/sim"
)

// Frame is one tick of replicated state.
type Frame struct {
	Tick     uint64              `json:"tick"`
	Time     time.Time           `json:"time"`
	Agents   []ai.Snapshot       `json:"agents"`
	Players  []sim.PlayerState   `json:"players,omitempty"`
	Ragdolls []ai.RagdollRequest `json:"ragdolls,omitempty"`
}

// FrameFromSnapshot copies an engine snapshot into a frame stamped with now.
func FrameFromSnapshot(snapshot sim.Snapshot, now time.Time) Frame {
	return Frame{
		Tick:     snapshot.Tick,
		Time:     now,
		Agents:   slices.Clone(snapshot.Agents),
		Players:  slices.Clone(snapshot.Players),
		Ragdolls: slices.Clone(snapshot.Ragdolls),
	}
}

// Agent returns the snapshot of id carried by the frame.
func (f Frame) Agent(id ai.ActorID) (ai.Snapshot, bool) {
	for _, snap := range f.Agents {
		if snap.ID == id {
			return snap, true
		}
	}
	return ai.Snapshot{}, false
}
