package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	// CommandDamage applies damage to an actor through the world's damage
	// event source.
	CommandDamage    CommandType = "Damage"
	CommandScare     CommandType = "Scare"
	CommandSetPath   CommandType = "SetPath"
	CommandClearPath CommandType = "ClearPath"
	CommandHeartbeat CommandType = "Heartbeat"
)

// DamageCommand targets ActorID with Amount damage attributed to Attacker.
type DamageCommand struct {
	Attacker string   `json:"attacker,omitempty"`
	Amount   float64  `json:"amount"`
	Tags     []string `json:"tags,omitempty"`
}

// ScareCommand adds fear to an NPC without damaging it.
type ScareCommand struct {
	Amount float64 `json:"amount"`
}

// PathCommand moves a scripted player to a navigation target.
type PathCommand struct {
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
}

// HeartbeatCommand updates connectivity metadata for a client.
type HeartbeatCommand struct {
	ReceivedAt time.Time     `json:"receivedAt"`
	ClientSent int64         `json:"clientSent"`
	RTT        time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64            `json:"originTick"`
	ActorID    string            `json:"actorId"`
	Type       CommandType       `json:"type"`
	IssuedAt   time.Time         `json:"issuedAt"`
	Damage     *DamageCommand    `json:"damage,omitempty"`
	Scare      *ScareCommand     `json:"scare,omitempty"`
	Path       *PathCommand      `json:"path,omitempty"`
	Heartbeat  *HeartbeatCommand `json:"heartbeat,omitempty"`
}
