package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"npc-director/server/internal/ai"
)

// Identity ties an entity to its stable actor ID.
type Identity struct {
	ID   ai.ActorID
	Kind ai.ActorKind
}

// Body is an actor's physical presence. Position is the feet on the ground
// plane.
type Body struct {
	Position  mgl64.Vec3
	EyeHeight float64
	Radius    float64
}

// Motion is the navigation state driven by the movement system.
type Motion struct {
	Path     []mgl64.Vec3
	Velocity mgl64.Vec3
	Speed    float64
	Goal     mgl64.Vec3
	HasGoal  bool
}

// Vitals is only carried by players; NPC health lives in the agent.
type Vitals struct {
	Health    float64
	MaxHealth float64
}

// Wander drives scripted players between random walkable points.
type Wander struct {
	Enabled   bool
	Radius    float64
	PauseFor  time.Duration
	NextLeave time.Time
}
