package ai

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// ActorID is the stable identity of an actor. Agents never hold actor
// pointers across ticks; they keep IDs and resolve them through the World.
type ActorID string

// NewActorID allocates a fresh random actor identity.
func NewActorID() ActorID {
	return ActorID(uuid.NewString())
}

// ActorKind distinguishes the two concrete actor kinds.
type ActorKind uint8

const (
	KindPlayer ActorKind = iota + 1
	KindNPC
)

func (k ActorKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	default:
		return "unknown"
	}
}

// Actor is any world entity the core can perceive: a player or an NPC.
type Actor interface {
	ID() ActorID
	Kind() ActorKind
	Position() mgl64.Vec3
	EyePosition() mgl64.Vec3
	Valid() bool
}

// Disposition is implemented by NPC actors so other agents can classify them.
type Disposition interface {
	Relationship() Relationship
}

// Relationship is an NPC's disposition toward players and other NPCs.
type Relationship uint8

const (
	Neutral Relationship = iota
	Friendly
	Hostile
)

func (r Relationship) String() string {
	switch r {
	case Neutral:
		return "neutral"
	case Friendly:
		return "friendly"
	case Hostile:
		return "hostile"
	default:
		return fmt.Sprintf("relationship(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Relationship) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Relationship) UnmarshalText(text []byte) error {
	parsed, err := ParseRelationship(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRelationship converts a config value into a Relationship.
func ParseRelationship(value string) (Relationship, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "neutral":
		return Neutral, nil
	case "friendly":
		return Friendly, nil
	case "hostile":
		return Hostile, nil
	default:
		return Neutral, fmt.Errorf("unknown relationship %q", value)
	}
}

// State is one of the fixed behavioural states.
type State uint8

const (
	StateIdle State = iota
	StateMove
	StateAttack
	StateFlee
	StateFollow
	StateKeepDistance
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMove:
		return "move"
	case StateAttack:
		return "attack"
	case StateFlee:
		return "flee"
	case StateFollow:
		return "follow"
	case StateKeepDistance:
		return "keep_distance"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler so snapshots carry readable
// state names.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateIdle; candidate <= StateKeepDistance; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}
