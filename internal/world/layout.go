package world

const (
	DefaultWidth       = 4096.0
	DefaultHeight      = 4096.0
	DefaultNavCellSize = 32.0
	DefaultSeed        = "npc-director"

	// ActorRadius is the footprint used for navigation clearance and for the
	// vertical cylinders that stand in for actor hitboxes.
	ActorRadius = 16.0
	// ActorHeight is the top of an actor's hitbox above its feet.
	ActorHeight = 72.0
	// DefaultEyeHeight applies to players; agents use their tunables.
	DefaultEyeHeight = 64.0

	ObstacleSpawnMargin = 128.0
	SpawnSafeRadius     = 160.0
	ObstacleMinWidth    = 64.0
	ObstacleMaxWidth    = 256.0
	ObstacleMinDepth    = 64.0
	ObstacleMaxDepth    = 256.0
	ObstacleMinHeight   = 48.0
	ObstacleMaxHeight   = 160.0
	DefaultPlayerSpeed  = 160.0
	DefaultPlayerHealth = 100.0
)

// Obstacle tags understood by the world.
const (
	TagTrigger = "trigger"
	TagCover   = "cover"
)
