package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/ai"
)

// PlayerState mirrors the replicated state of a scripted or remote player.
type PlayerState struct {
	ID        string     `json:"id"`
	Position  mgl64.Vec3 `json:"position"`
	Velocity  mgl64.Vec3 `json:"velocity"`
	Health    float64    `json:"health"`
	MaxHealth float64    `json:"maxHealth"`
}

// Snapshot is the engine state after a step. Agents and Players are sorted by
// ID.
type Snapshot struct {
	Tick     uint64              `json:"tick"`
	Agents   []ai.Snapshot       `json:"agents"`
	Players  []PlayerState       `json:"players"`
	Ragdolls []ai.RagdollRequest `json:"ragdolls,omitempty"`
}
